package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/domain"
)

func TestCreateMeetDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	meet, err := f.meets.CreateMeet(ctx, "admin", app.CreateMeetInput{
		Title:       "  Chemistry  ",
		ScheduledAt: f.clock.Now(),
		Questions: []app.QuestionInput{
			{Text: "H2O is?", Options: []string{"water", "salt"}, CorrectIndex: 0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Chemistry", meet.Title)
	assert.Equal(t, domain.DefaultCategory, meet.Category)
	assert.Equal(t, "medium", meet.Difficulty)
	assert.Equal(t, domain.MeetUpcoming, meet.Status)
	require.Len(t, meet.Questions, 1)
	assert.Equal(t, domain.DefaultQuestionPoints, meet.Questions[0].Points)
	assert.Equal(t, domain.DefaultQuestionTimeLimit, meet.Questions[0].TimeLimitSeconds)
	assert.Equal(t, meet.ID, meet.Questions[0].MeetID)

	_, err = f.meets.CreateMeet(ctx, "admin", app.CreateMeetInput{
		Difficulty: "impossible",
		Questions:  []app.QuestionInput{{Text: "", Options: []string{"only"}}},
	})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	fields := map[string]bool{}
	for _, fe := range ve.Fields {
		fields[fe.Field] = true
	}
	assert.True(t, fields["title"])
	assert.True(t, fields["difficulty"])
	assert.True(t, fields["scheduledAt"])
	assert.True(t, fields["questions[0].text"])
	assert.True(t, fields["questions[0].options"])

	_, err = f.meets.CreateMeet(ctx, "admin", app.CreateMeetInput{
		Title:       "Bad key",
		ScheduledAt: f.clock.Now(),
		Questions:   []app.QuestionInput{{Text: "q", Options: []string{"a", "b"}, CorrectIndex: 2}},
	})
	assert.True(t, domain.IsValidation(err))
}

func TestMeetStatusAndListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.addMeet(t)
	f.clock.Advance(1)
	second := f.addMeet(t)

	updated, err := f.meets.UpdateStatus(ctx, first.ID, domain.MeetActive)
	require.NoError(t, err)
	assert.Equal(t, domain.MeetActive, updated.Status)

	_, err = f.meets.UpdateStatus(ctx, first.ID, "paused")
	assert.True(t, domain.IsValidation(err))
	_, err = f.meets.UpdateStatus(ctx, "missing", domain.MeetActive)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := f.meets.ListMeets(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	active, err := f.meets.ListMeets(ctx, domain.MeetActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID)

	_, err = f.meets.ListMeets(ctx, "bogus")
	assert.True(t, domain.IsValidation(err))
}

func TestAddAndRemoveQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meet := f.addMeet(t)

	_, err := f.meets.AddQuestions(ctx, meet.ID, nil)
	assert.True(t, domain.IsValidation(err))

	updated, err := f.meets.AddQuestions(ctx, meet.ID, []app.QuestionInput{
		{Text: "q3", Options: []string{"a", "b"}, CorrectIndex: 1},
		{Text: "q4", Options: []string{"a", "b"}, CorrectIndex: 0, Points: 25},
	})
	require.NoError(t, err)
	require.Len(t, updated.Questions, 4)
	for i, q := range updated.Questions {
		assert.Equal(t, i, q.Position)
	}
	assert.Equal(t, 25, updated.Questions[3].Points)

	updated, err = f.meets.RemoveQuestion(ctx, meet.ID, updated.Questions[1].ID)
	require.NoError(t, err)
	require.Len(t, updated.Questions, 3)

	// Positions keep growing after a removal.
	updated, err = f.meets.AddQuestions(ctx, meet.ID, []app.QuestionInput{{Text: "q5", Options: []string{"a", "b"}}})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Questions[len(updated.Questions)-1].Position)

	_, err = f.meets.RemoveQuestion(ctx, meet.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)
	_, err = f.meets.AddQuestions(ctx, "missing", []app.QuestionInput{{Text: "q", Options: []string{"a", "b"}}})
	assert.ErrorIs(t, err, domain.ErrMeetNotFound)
}

func TestStartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meet := f.addMeet(t)
	alice := f.addUser(t, "u1", "Alice")

	first, err := f.meets.Start(ctx, meet.ID, alice)
	require.NoError(t, err)
	assert.True(t, first.Meet.HasParticipant("u1"))
	assert.Equal(t, 2, first.Attempt.TotalQuestions)
	assert.False(t, first.Attempt.Completed)

	second, err := f.meets.Start(ctx, meet.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, first.Attempt.ID, second.Attempt.ID)

	got, err := f.meets.GetMeet(ctx, meet.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, got.Participants)

	lb, err := f.submissions.Leaderboard(ctx, meet.ID)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 1)
	assert.False(t, lb.Entries[0].Submitted)
	assert.Equal(t, "Alice", lb.Entries[0].Name)

	_, err = f.meets.Start(ctx, "missing", alice)
	assert.ErrorIs(t, err, domain.ErrMeetNotFound)
}

func TestDeleteMeetCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	meet := f.addMeet(t)
	alice := f.addUser(t, "u1", "Alice")
	_, err := f.submissions.SubmitAttempt(ctx, meet.ID, alice, answers(meet, []int{1, 2}, []float64{9, 9}))
	require.NoError(t, err)

	require.NoError(t, f.meets.DeleteMeet(ctx, meet.ID))
	_, err = f.meets.GetMeet(ctx, meet.ID)
	assert.ErrorIs(t, err, domain.ErrMeetNotFound)
	_, err = f.store.GetAttempt(ctx, meet.ID, "u1")
	assert.ErrorIs(t, err, domain.ErrAttemptNotFound)
	assert.ErrorIs(t, f.meets.DeleteMeet(ctx, meet.ID), domain.ErrMeetNotFound)

	// Stats survive the meet.
	view, err := f.submissions.MyStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Stat.TotalMeetsAttended)
}

func TestDashboardTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "Alice")
	f.addUser(t, "u2", "Bob")
	meet := f.addMeet(t)
	f.addMeet(t)
	_, err := f.meets.UpdateStatus(ctx, meet.ID, domain.MeetActive)
	require.NoError(t, err)

	totals, err := f.meets.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DashboardTotals{TotalStudents: 2, TotalQuestions: 4, ActiveMeets: 1}, totals)
}
