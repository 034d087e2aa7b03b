package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"dopamine-dashboard/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            string     `bun:"id,pk"`
	Email         string     `bun:"email,notnull"`
	Name          string     `bun:"name"`
	Avatar        string     `bun:"avatar"`
	Role          string     `bun:"role"`
	GoogleID      string     `bun:"google_id,nullzero"`
	PasswordHash  string     `bun:"password_hash"`
	TotalScore    int        `bun:"total_score"`
	Accuracy      float64    `bun:"accuracy"`
	CurrentStreak int        `bun:"current_streak"`
	CreatedAt     time.Time  `bun:"created_at"`
	LastActive    *time.Time `bun:"last_active"`
}

func newUserRow(u domain.User) *userRow {
	return &userRow{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Avatar:        u.Avatar,
		Role:          u.Role,
		GoogleID:      u.GoogleID,
		PasswordHash:  u.PasswordHash,
		TotalScore:    u.TotalScore,
		Accuracy:      u.Accuracy,
		CurrentStreak: u.CurrentStreak,
		CreatedAt:     u.CreatedAt,
		LastActive:    u.LastActive,
	}
}

func (r *userRow) toDomain() domain.User {
	return domain.User{
		ID:            r.ID,
		Email:         r.Email,
		Name:          r.Name,
		Avatar:        r.Avatar,
		Role:          r.Role,
		GoogleID:      r.GoogleID,
		PasswordHash:  r.PasswordHash,
		TotalScore:    r.TotalScore,
		Accuracy:      r.Accuracy,
		CurrentStreak: r.CurrentStreak,
		CreatedAt:     r.CreatedAt,
		LastActive:    r.LastActive,
	}
}

type meetRow struct {
	bun.BaseModel `bun:"table:meets,alias:m"`

	ID              string         `bun:"id,pk"`
	Title           string         `bun:"title"`
	Description     string         `bun:"description"`
	Category        string         `bun:"category"`
	Difficulty      string         `bun:"difficulty"`
	Transcript      string         `bun:"transcript"`
	ScheduledAt     time.Time      `bun:"scheduled_at"`
	DurationMinutes int            `bun:"duration_minutes"`
	Status          string         `bun:"status"`
	Participants    []string       `bun:"participants,array"`
	CreatedBy       string         `bun:"created_by"`
	CreatedAt       time.Time      `bun:"created_at"`
	Questions       []*questionRow `bun:"rel:has-many,join:id=meet_id"`
}

func newMeetRow(m domain.Meet) *meetRow {
	participants := m.Participants
	if participants == nil {
		participants = []string{}
	}
	return &meetRow{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		Category:        m.Category,
		Difficulty:      m.Difficulty,
		Transcript:      m.Transcript,
		ScheduledAt:     m.ScheduledAt,
		DurationMinutes: m.DurationMinutes,
		Status:          m.Status,
		Participants:    participants,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
}

func (r *meetRow) toDomain() domain.Meet {
	m := domain.Meet{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Difficulty:      r.Difficulty,
		Transcript:      r.Transcript,
		ScheduledAt:     r.ScheduledAt,
		DurationMinutes: r.DurationMinutes,
		Status:          r.Status,
		Participants:    append([]string{}, r.Participants...),
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		Questions:       make([]domain.Question, 0, len(r.Questions)),
	}
	for _, q := range r.Questions {
		m.Questions = append(m.Questions, q.toDomain())
	}
	return m
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID               string   `bun:"id,pk"`
	MeetID           string   `bun:"meet_id"`
	Position         int      `bun:"position"`
	Text             string   `bun:"text"`
	Options          []string `bun:"options,type:jsonb"`
	CorrectIndex     int      `bun:"correct_index"`
	Points           int      `bun:"points"`
	TimeLimitSeconds int      `bun:"time_limit_seconds"`
}

func newQuestionRow(q domain.Question) *questionRow {
	return &questionRow{
		ID:               q.ID,
		MeetID:           q.MeetID,
		Position:         q.Position,
		Text:             q.Text,
		Options:          q.Options,
		CorrectIndex:     q.CorrectIndex,
		Points:           q.Points,
		TimeLimitSeconds: q.TimeLimitSeconds,
	}
}

func (r *questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:               r.ID,
		MeetID:           r.MeetID,
		Position:         r.Position,
		Text:             r.Text,
		Options:          r.Options,
		CorrectIndex:     r.CorrectIndex,
		Points:           r.Points,
		TimeLimitSeconds: r.TimeLimitSeconds,
	}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:a"`

	ID             string                `bun:"id,pk"`
	MeetID         string                `bun:"meet_id"`
	UserID         string                `bun:"user_id"`
	Answers        []domain.AnswerRecord `bun:"answers,type:jsonb"`
	Pending        []domain.AnswerRecord `bun:"pending,type:jsonb"`
	Score          int                   `bun:"score"`
	CorrectAnswers int                   `bun:"correct_answers"`
	TotalQuestions int                   `bun:"total_questions"`
	TimeTaken      float64               `bun:"time_taken"`
	Completed      bool                  `bun:"completed"`
	StartedAt      time.Time             `bun:"started_at"`
	CompletedAt    *time.Time            `bun:"completed_at"`
}

func newAttemptRow(a domain.Attempt) *attemptRow {
	row := &attemptRow{
		ID:             a.ID,
		MeetID:         a.MeetID,
		UserID:         a.UserID,
		Answers:        a.Answers,
		Pending:        a.Pending,
		Score:          a.Score,
		CorrectAnswers: a.CorrectAnswers,
		TotalQuestions: a.TotalQuestions,
		TimeTaken:      a.TimeTaken,
		Completed:      a.Completed,
		StartedAt:      a.StartedAt,
		CompletedAt:    a.CompletedAt,
	}
	if row.Answers == nil {
		row.Answers = []domain.AnswerRecord{}
	}
	if row.Pending == nil {
		row.Pending = []domain.AnswerRecord{}
	}
	return row
}

func (r *attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:             r.ID,
		MeetID:         r.MeetID,
		UserID:         r.UserID,
		Answers:        r.Answers,
		Pending:        r.Pending,
		Score:          r.Score,
		CorrectAnswers: r.CorrectAnswers,
		TotalQuestions: r.TotalQuestions,
		TimeTaken:      r.TimeTaken,
		Completed:      r.Completed,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
}

type entryRow struct {
	bun.BaseModel `bun:"table:leaderboard_entries,alias:le"`

	MeetID         string     `bun:"meet_id,pk"`
	UserID         string     `bun:"user_id,pk"`
	Name           string     `bun:"name"`
	Score          int        `bun:"score"`
	TimeTaken      float64    `bun:"time_taken"`
	CorrectAnswers int        `bun:"correct_answers"`
	TotalQuestions int        `bun:"total_questions"`
	Submitted      bool       `bun:"submitted"`
	SubmittedAt    *time.Time `bun:"submitted_at"`
}

func newEntryRow(e domain.LeaderboardEntry) *entryRow {
	return &entryRow{
		MeetID:         e.MeetID,
		UserID:         e.UserID,
		Name:           e.Name,
		Score:          e.Score,
		TimeTaken:      e.TimeTaken,
		CorrectAnswers: e.CorrectAnswers,
		TotalQuestions: e.TotalQuestions,
		Submitted:      e.Submitted,
		SubmittedAt:    e.SubmittedAt,
	}
}

func (r *entryRow) toDomain() domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		MeetID:         r.MeetID,
		UserID:         r.UserID,
		Name:           r.Name,
		Score:          r.Score,
		TimeTaken:      r.TimeTaken,
		CorrectAnswers: r.CorrectAnswers,
		TotalQuestions: r.TotalQuestions,
		Submitted:      r.Submitted,
		SubmittedAt:    r.SubmittedAt,
	}
}

type statRow struct {
	bun.BaseModel `bun:"table:stats,alias:s"`

	UserID                  string                                `bun:"user_id,pk"`
	TotalMeetsAttended      int                                   `bun:"total_meets_attended"`
	TotalQuestionsAttempted int                                   `bun:"total_questions_attempted"`
	TotalCorrectAnswers     int                                   `bun:"total_correct_answers"`
	TotalScore              int                                   `bun:"total_score"`
	AverageScore            float64                               `bun:"average_score"`
	CategoryPerformance     map[string]domain.CategoryPerformance `bun:"category_performance,type:jsonb"`
	MeetHistory             []domain.HistoryRecord                `bun:"meet_history,type:jsonb"`
	CurrentStreak           int                                   `bun:"current_streak"`
	LongestStreak           int                                   `bun:"longest_streak"`
	LastActive              *time.Time                            `bun:"last_active"`
	Version                 int64                                 `bun:"version"`
}

func newStatRow(s domain.Stat) *statRow {
	row := &statRow{
		UserID:                  s.UserID,
		TotalMeetsAttended:      s.TotalMeetsAttended,
		TotalQuestionsAttempted: s.TotalQuestionsAttempted,
		TotalCorrectAnswers:     s.TotalCorrectAnswers,
		TotalScore:              s.TotalScore,
		AverageScore:            s.AverageScore,
		CategoryPerformance:     s.CategoryPerformance,
		MeetHistory:             s.MeetHistory,
		CurrentStreak:           s.CurrentStreak,
		LongestStreak:           s.LongestStreak,
		LastActive:              s.LastActive,
		Version:                 s.Version,
	}
	if row.CategoryPerformance == nil {
		row.CategoryPerformance = map[string]domain.CategoryPerformance{}
	}
	if row.MeetHistory == nil {
		row.MeetHistory = []domain.HistoryRecord{}
	}
	return row
}

func (r *statRow) toDomain() domain.Stat {
	return domain.Stat{
		UserID:                  r.UserID,
		TotalMeetsAttended:      r.TotalMeetsAttended,
		TotalQuestionsAttempted: r.TotalQuestionsAttempted,
		TotalCorrectAnswers:     r.TotalCorrectAnswers,
		TotalScore:              r.TotalScore,
		AverageScore:            r.AverageScore,
		CategoryPerformance:     r.CategoryPerformance,
		MeetHistory:             r.MeetHistory,
		CurrentStreak:           r.CurrentStreak,
		LongestStreak:           r.LongestStreak,
		LastActive:              r.LastActive,
		Version:                 r.Version,
	}
}
