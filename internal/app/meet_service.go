package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"dopamine-dashboard/internal/domain"
)

// QuestionInput is an admin-supplied question.
type QuestionInput struct {
	Text             string   `json:"text" validate:"required,max=1000"`
	Options          []string `json:"options" validate:"min=2,max=10,dive,required"`
	CorrectIndex     int      `json:"correctIndex" validate:"gte=0"`
	Points           int      `json:"points" validate:"gte=0"`
	TimeLimitSeconds int      `json:"timeLimitSeconds" validate:"gte=0"`
}

// CreateMeetInput is the payload of an admin meet creation.
type CreateMeetInput struct {
	Title           string          `json:"title" validate:"required,max=200"`
	Description     string          `json:"description" validate:"max=2000"`
	Category        string          `json:"category" validate:"max=100"`
	Difficulty      string          `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Transcript      string          `json:"transcript"`
	ScheduledAt     time.Time       `json:"scheduledAt" validate:"required"`
	DurationMinutes int             `json:"durationMinutes" validate:"gte=0"`
	Questions       []QuestionInput `json:"questions" validate:"dive"`
}

// StartResult is returned when a user enters a meet.
type StartResult struct {
	Meet    domain.Meet    `json:"meet"`
	Attempt domain.Attempt `json:"attempt"`
}

// MeetService covers meet reads, admin writes and participant registration.
type MeetService struct {
	deps Deps
}

func NewMeetService(deps Deps) *MeetService {
	return &MeetService{deps: deps.withDefaults()}
}

// ValidStatus reports whether status is a known meet status.
func ValidStatus(status string) bool {
	switch status {
	case domain.MeetUpcoming, domain.MeetActive, domain.MeetCompleted:
		return true
	}
	return false
}

// ListMeets returns meets newest first, optionally filtered by status.
func (s *MeetService) ListMeets(ctx context.Context, status string) ([]domain.Meet, error) {
	if status != "" && !ValidStatus(status) {
		return nil, statusError(status)
	}
	return s.deps.Meets.ListMeets(ctx, status)
}

// GetMeet returns a meet with its ordered questions.
func (s *MeetService) GetMeet(ctx context.Context, meetID string) (domain.Meet, error) {
	return s.deps.Cache.GetMeet(ctx, meetID)
}

// CreateMeet validates in and stores a new upcoming meet.
func (s *MeetService) CreateMeet(ctx context.Context, createdBy string, in CreateMeetInput) (domain.Meet, error) {
	if err := validateStruct(in); err != nil {
		return domain.Meet{}, err
	}
	if err := checkCorrectIndexes(in.Questions, "questions"); err != nil {
		return domain.Meet{}, err
	}

	now := s.deps.now()
	meet := domain.Meet{
		ID:              s.deps.NewID(),
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Category:        in.Category,
		Difficulty:      in.Difficulty,
		Transcript:      in.Transcript,
		ScheduledAt:     in.ScheduledAt.UTC(),
		DurationMinutes: in.DurationMinutes,
		Status:          domain.MeetUpcoming,
		Participants:    []string{},
		CreatedBy:       createdBy,
		CreatedAt:       now,
	}
	if meet.Category == "" {
		meet.Category = domain.DefaultCategory
	}
	if meet.Difficulty == "" {
		meet.Difficulty = "medium"
	}
	meet.Questions = s.buildQuestions(meet.ID, 0, in.Questions)

	if err := s.deps.Meets.CreateMeet(ctx, meet); err != nil {
		return domain.Meet{}, fmt.Errorf("create meet: %w", err)
	}
	return meet, nil
}

// UpdateStatus sets a meet's status.
func (s *MeetService) UpdateStatus(ctx context.Context, meetID, status string) (domain.Meet, error) {
	if !ValidStatus(status) {
		return domain.Meet{}, statusError(status)
	}
	if err := s.deps.Meets.UpdateMeetStatus(ctx, meetID, status); err != nil {
		return domain.Meet{}, err
	}
	return s.reload(ctx, meetID)
}

// DeleteMeet removes a meet together with its questions, attempts and leaderboard.
func (s *MeetService) DeleteMeet(ctx context.Context, meetID string) error {
	if err := s.deps.Meets.DeleteMeet(ctx, meetID); err != nil {
		return err
	}
	s.invalidate(ctx, meetID)
	return nil
}

// AddQuestions appends questions after the meet's current last question.
func (s *MeetService) AddQuestions(ctx context.Context, meetID string, in []QuestionInput) (domain.Meet, error) {
	if len(in) == 0 {
		return domain.Meet{}, domain.NewValidationError("at least one question is required",
			domain.FieldError{Field: "questions", Message: "must have at least 1"})
	}
	wrapper := struct {
		Questions []QuestionInput `validate:"dive"`
	}{Questions: in}
	if err := validateStruct(wrapper); err != nil {
		return domain.Meet{}, err
	}
	if err := checkCorrectIndexes(in, "questions"); err != nil {
		return domain.Meet{}, err
	}

	meet, err := s.deps.Cache.GetMeet(ctx, meetID)
	if err != nil {
		return domain.Meet{}, err
	}
	next := 0
	for _, q := range meet.Questions {
		if q.Position >= next {
			next = q.Position + 1
		}
	}
	if err := s.deps.Meets.AddQuestions(ctx, meetID, s.buildQuestions(meetID, next, in)); err != nil {
		return domain.Meet{}, err
	}
	return s.reload(ctx, meetID)
}

// RemoveQuestion deletes one question of a meet.
func (s *MeetService) RemoveQuestion(ctx context.Context, meetID, questionID string) (domain.Meet, error) {
	if err := s.deps.Meets.RemoveQuestion(ctx, meetID, questionID); err != nil {
		return domain.Meet{}, err
	}
	return s.reload(ctx, meetID)
}

// Start registers user as a participant and prepares the leaderboard placeholder
// and the attempt record. Calling it again is harmless.
func (s *MeetService) Start(ctx context.Context, meetID string, user domain.User) (StartResult, error) {
	meet, err := s.deps.Cache.GetMeet(ctx, meetID)
	if err != nil {
		return StartResult{}, err
	}

	unlock, err := s.deps.Locker.Lock(ctx, meetLockKey(meetID))
	if err != nil {
		return StartResult{}, err
	}
	defer unlock()

	if !meet.HasParticipant(user.ID) {
		if err := s.deps.Meets.AddParticipant(ctx, meetID, user.ID); err != nil {
			return StartResult{}, err
		}
		s.invalidate(ctx, meetID)
		meet.Participants = append(meet.Participants, user.ID)
	}

	entries, err := s.deps.Leaderboards.ListEntries(ctx, meetID)
	if err != nil {
		return StartResult{}, err
	}
	if !hasEntry(entries, user.ID) {
		placeholder := domain.LeaderboardEntry{
			MeetID:         meetID,
			UserID:         user.ID,
			Name:           user.Name,
			TotalQuestions: len(meet.Questions),
		}
		if err := s.deps.Leaderboards.SaveEntry(ctx, placeholder); err != nil {
			return StartResult{}, err
		}
	}

	attempt, err := s.deps.Attempts.GetAttempt(ctx, meetID, user.ID)
	if errors.Is(err, domain.ErrAttemptNotFound) {
		attempt = newAttempt(s.deps, meetID, user.ID, len(meet.Questions))
		if err := s.deps.Attempts.SaveAttempt(ctx, attempt); err != nil {
			return StartResult{}, err
		}
	} else if err != nil {
		return StartResult{}, err
	}
	return StartResult{Meet: meet, Attempt: attempt}, nil
}

// Dashboard returns the admin totals.
func (s *MeetService) Dashboard(ctx context.Context) (domain.DashboardTotals, error) {
	students, err := s.deps.Users.CountUsersByRole(ctx, domain.RoleStudent)
	if err != nil {
		return domain.DashboardTotals{}, err
	}
	questions, err := s.deps.Meets.CountQuestions(ctx)
	if err != nil {
		return domain.DashboardTotals{}, err
	}
	active, err := s.deps.Meets.CountMeetsByStatus(ctx, domain.MeetActive)
	if err != nil {
		return domain.DashboardTotals{}, err
	}
	return domain.DashboardTotals{TotalStudents: students, TotalQuestions: questions, ActiveMeets: active}, nil
}

func (s *MeetService) reload(ctx context.Context, meetID string) (domain.Meet, error) {
	s.invalidate(ctx, meetID)
	return s.deps.Cache.GetMeet(ctx, meetID)
}

func (s *MeetService) invalidate(ctx context.Context, meetID string) {
	if err := s.deps.Cache.Invalidate(ctx, meetID); err != nil {
		log.Printf("invalidate meet %s: %v", meetID, err)
	}
}

func (s *MeetService) buildQuestions(meetID string, start int, in []QuestionInput) []domain.Question {
	out := make([]domain.Question, 0, len(in))
	for i, q := range in {
		points := q.Points
		if points == 0 {
			points = domain.DefaultQuestionPoints
		}
		limit := q.TimeLimitSeconds
		if limit == 0 {
			limit = domain.DefaultQuestionTimeLimit
		}
		out = append(out, domain.Question{
			ID:               s.deps.NewID(),
			MeetID:           meetID,
			Position:         start + i,
			Text:             strings.TrimSpace(q.Text),
			Options:          q.Options,
			CorrectIndex:     q.CorrectIndex,
			Points:           points,
			TimeLimitSeconds: limit,
		})
	}
	return out
}

func checkCorrectIndexes(in []QuestionInput, field string) error {
	var fields []domain.FieldError
	for i, q := range in {
		if q.CorrectIndex >= len(q.Options) {
			fields = append(fields, domain.FieldError{
				Field:   fmt.Sprintf("%s[%d].correctIndex", field, i),
				Message: fmt.Sprintf("must be < %d", len(q.Options)),
			})
		}
	}
	if len(fields) > 0 {
		return domain.NewValidationError("invalid input", fields...)
	}
	return nil
}

func statusError(status string) error {
	return domain.NewValidationError("unknown meet status",
		domain.FieldError{Field: "status", Message: fmt.Sprintf("%q is not one of upcoming active completed", status)})
}

func hasEntry(entries []domain.LeaderboardEntry, userID string) bool {
	for _, e := range entries {
		if e.UserID == userID {
			return true
		}
	}
	return false
}

func newAttempt(deps Deps, meetID, userID string, totalQuestions int) domain.Attempt {
	return domain.Attempt{
		ID:             deps.NewID(),
		MeetID:         meetID,
		UserID:         userID,
		Answers:        []domain.AnswerRecord{},
		Pending:        []domain.AnswerRecord{},
		TotalQuestions: totalQuestions,
		StartedAt:      deps.now(),
	}
}
