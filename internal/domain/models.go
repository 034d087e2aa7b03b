package domain

import "time"

// Roles a user can hold.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Meet statuses. Transitions are set by admins, never computed.
const (
	MeetUpcoming  = "upcoming"
	MeetActive    = "active"
	MeetCompleted = "completed"
)

// Question defaults applied when an admin leaves the fields empty.
const (
	DefaultQuestionPoints    = 10
	DefaultQuestionTimeLimit = 30
	DefaultCategory          = "General"
)

// User is an authenticated participant or admin.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar"`
	Role          string     `json:"role"`
	GoogleID      string     `json:"-"`
	PasswordHash  string     `json:"-"`
	TotalScore    int        `json:"totalScore"`
	Accuracy      float64    `json:"accuracy"`
	CurrentStreak int        `json:"currentStreak"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastActive    *time.Time `json:"lastActive,omitempty"`
}

// IsAdmin reports whether the user may manage meets.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Question is a multiple-choice question owned by exactly one meet.
type Question struct {
	ID               string   `json:"id"`
	MeetID           string   `json:"meetId"`
	Position         int      `json:"position"`
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	CorrectIndex     int      `json:"correctIndex"`
	Points           int      `json:"points"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

// Meet is a scheduled quiz session with an ordered list of questions.
type Meet struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Difficulty      string     `json:"difficulty"`
	Transcript      string     `json:"transcript"`
	ScheduledAt     time.Time  `json:"scheduledAt"`
	DurationMinutes int        `json:"durationMinutes"`
	Status          string     `json:"status"`
	Participants    []string   `json:"participants"`
	Questions       []Question `json:"questions"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// HasParticipant reports whether userID already joined the meet.
func (m Meet) HasParticipant(userID string) bool {
	for _, id := range m.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Question returns the meet question with the given id.
func (m Meet) Question(questionID string) (Question, bool) {
	for _, q := range m.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return Question{}, false
}

// AnswerSubmission is a single client-submitted answer.
type AnswerSubmission struct {
	QuestionID     string  `json:"questionId"`
	SelectedOption int     `json:"selectedAnswer"`
	TimeTaken      float64 `json:"timeTaken"`
}

// AnswerRecord is an evaluated answer.
type AnswerRecord struct {
	QuestionID     string    `json:"questionId"`
	SelectedOption int       `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	Points         int       `json:"points"`
	TimeTaken      float64   `json:"timeTaken"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// Attempt is a user's pass through a meet. There is at most one per (meet, user):
// it keeps the best completed pass plus the answers of the pass in progress.
type Attempt struct {
	ID             string         `json:"id"`
	MeetID         string         `json:"meetId"`
	UserID         string         `json:"userId"`
	Answers        []AnswerRecord `json:"answers"`
	Pending        []AnswerRecord `json:"pending"`
	Score          int            `json:"score"`
	CorrectAnswers int            `json:"correctAnswers"`
	TotalQuestions int            `json:"totalQuestions"`
	TimeTaken      float64        `json:"timeTaken"`
	Completed      bool           `json:"completed"`
	StartedAt      time.Time      `json:"startedAt"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
}

// LeaderboardEntry is a user's best recorded result for a meet. Rank is positional
// and only meaningful on a freshly ranked slice.
type LeaderboardEntry struct {
	MeetID         string     `json:"meetId"`
	UserID         string     `json:"userId"`
	Name           string     `json:"name"`
	Score          int        `json:"score"`
	TimeTaken      float64    `json:"timeTaken"`
	CorrectAnswers int        `json:"correctAnswers"`
	TotalQuestions int        `json:"totalQuestions"`
	Submitted      bool       `json:"submitted"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	Rank           int        `json:"rank"`
}

// Leaderboard is a ranked snapshot of one meet.
type Leaderboard struct {
	MeetID  string             `json:"meetId"`
	Entries []LeaderboardEntry `json:"entries"`
	// Seq orders snapshots of one meet across instances; a higher Seq is newer.
	Seq       int64     `json:"seq"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CumulativeEntry aggregates a user's best results across all meets.
type CumulativeEntry struct {
	UserID         string  `json:"userId"`
	Name           string  `json:"name"`
	TotalScore     int     `json:"totalScore"`
	Meets          int     `json:"meets"`
	TotalTime      float64 `json:"totalTime"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalQuestions int     `json:"totalQuestions"`
	Accuracy       float64 `json:"accuracy"`
	Rank           int     `json:"rank"`
}

// CategoryPerformance is the per-category slice of a Stat.
type CategoryPerformance struct {
	Meets          int     `json:"meets"`
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
	AverageScore   float64 `json:"averageScore"`
}

// HistoryRecord is one attempt in a user's meet history.
type HistoryRecord struct {
	MeetID             string    `json:"meetId"`
	Date               time.Time `json:"date"`
	Score              int       `json:"score"`
	QuestionsAttempted int       `json:"questionsAttempted"`
	CorrectAnswers     int       `json:"correctAnswers"`
	TimeSpentMinutes   float64   `json:"timeSpentMinutes"`
}

// Stat is a user's lifetime aggregate, derived from their attempts.
type Stat struct {
	UserID                  string                         `json:"userId"`
	TotalMeetsAttended      int                            `json:"totalMeetsAttended"`
	TotalQuestionsAttempted int                            `json:"totalQuestionsAttempted"`
	TotalCorrectAnswers     int                            `json:"totalCorrectAnswers"`
	TotalScore              int                            `json:"totalScore"`
	AverageScore            float64                        `json:"averageScore"`
	CategoryPerformance     map[string]CategoryPerformance `json:"categoryPerformance"`
	MeetHistory             []HistoryRecord                `json:"meetHistory"`
	CurrentStreak           int                            `json:"currentStreak"`
	LongestStreak           int                            `json:"longestStreak"`
	LastActive              *time.Time                     `json:"lastActive,omitempty"`
	Version                 int64                          `json:"-"`
}

// AttemptSummary is what the stats aggregator needs from a scored attempt.
type AttemptSummary struct {
	MeetID         string
	Category       string
	TotalQuestions int
	CorrectAnswers int
	TotalScore     int
	TimeTaken      float64
}

// DashboardTotals backs the admin dashboard.
type DashboardTotals struct {
	TotalStudents  int `json:"totalStudents"`
	TotalQuestions int `json:"totalQuestions"`
	ActiveMeets    int `json:"activeMeets"`
}
