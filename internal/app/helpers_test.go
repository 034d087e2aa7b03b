package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/domain"
	"dopamine-dashboard/internal/infra/memory"
	"dopamine-dashboard/internal/scoring"
)

// clock is a settable time source shared by the services under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store       *memory.Store
	clock       *clock
	meets       *app.MeetService
	submissions *app.SubmissionService
	deps        app.Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := &clock{now: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)}
	var seq int
	var seqMu sync.Mutex
	deps := app.Deps{
		Users:        store,
		Meets:        store,
		Cache:        memory.NewMeetCache(store, time.Minute),
		Attempts:     store,
		Leaderboards: store,
		Stats:        store,
		Locker:       memory.NewLocker(),
		Feeds:        memory.NewFeedStore(),
		Now:          clk.Now,
		NewID: func() string {
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	}
	return &fixture{
		store:       store,
		clock:       clk,
		meets:       app.NewMeetService(deps),
		submissions: app.NewSubmissionService(deps, scoring.DefaultPolicy()),
		deps:        deps,
	}
}

func (f *fixture) addUser(t *testing.T, id, name string) domain.User {
	t.Helper()
	u := domain.User{ID: id, Email: id + "@example.com", Name: name, Role: domain.RoleStudent, CreatedAt: f.clock.Now()}
	if err := f.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// addMeet creates a meet with two 10 point questions whose answers are 1 and 2.
func (f *fixture) addMeet(t *testing.T) domain.Meet {
	t.Helper()
	meet, err := f.meets.CreateMeet(context.Background(), "admin", app.CreateMeetInput{
		Title:       "Biology",
		Category:    "Science",
		ScheduledAt: f.clock.Now(),
		Questions: []app.QuestionInput{
			{Text: "q1", Options: []string{"a", "b", "c"}, CorrectIndex: 1, Points: 10},
			{Text: "q2", Options: []string{"a", "b", "c"}, CorrectIndex: 2, Points: 10},
		},
	})
	if err != nil {
		t.Fatalf("create meet: %v", err)
	}
	return meet
}

func answers(meet domain.Meet, selected []int, times []float64) []domain.AnswerSubmission {
	out := make([]domain.AnswerSubmission, len(selected))
	for i := range selected {
		out[i] = domain.AnswerSubmission{QuestionID: meet.Questions[i].ID, SelectedOption: selected[i], TimeTaken: times[i]}
	}
	return out
}
