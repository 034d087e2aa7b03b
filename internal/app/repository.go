package app

import (
	"context"

	"dopamine-dashboard/internal/domain"
)

// UserRepository persists accounts. CreateUser returns domain.ErrConflict on a
// duplicate email or google id.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	FindUserByGoogleID(ctx context.Context, googleID string) (domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) error
	CountUsersByRole(ctx context.Context, role string) (int, error)
}

// MeetRepository is the write side of meets and their questions.
type MeetRepository interface {
	CreateMeet(ctx context.Context, meet domain.Meet) error
	ListMeets(ctx context.Context, status string) ([]domain.Meet, error)
	UpdateMeetStatus(ctx context.Context, meetID, status string) error
	DeleteMeet(ctx context.Context, meetID string) error
	AddQuestions(ctx context.Context, meetID string, questions []domain.Question) error
	RemoveQuestion(ctx context.Context, meetID, questionID string) error
	FindQuestion(ctx context.Context, questionID string) (domain.Question, error)
	AddParticipant(ctx context.Context, meetID, userID string) error
	CountQuestions(ctx context.Context) (int, error)
	CountMeetsByStatus(ctx context.Context, status string) (int, error)
}

// MeetLoader fetches a meet with its ordered questions from the backing store.
type MeetLoader interface {
	LoadMeet(ctx context.Context, meetID string) (domain.Meet, error)
}

// MeetCache serves meets from a cache in front of a MeetLoader.
type MeetCache interface {
	GetMeet(ctx context.Context, meetID string) (domain.Meet, error)
	Invalidate(ctx context.Context, meetID string) error
}

// AttemptRepository stores the single attempt per (meet, user).
type AttemptRepository interface {
	GetAttempt(ctx context.Context, meetID, userID string) (domain.Attempt, error)
	SaveAttempt(ctx context.Context, attempt domain.Attempt) error
}

// LeaderboardRepository stores one entry per (meet, user).
type LeaderboardRepository interface {
	ListEntries(ctx context.Context, meetID string) ([]domain.LeaderboardEntry, error)
	SaveEntry(ctx context.Context, entry domain.LeaderboardEntry) error
	ListSubmittedEntries(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// StatRepository stores user stats. SaveStat succeeds only when stat.Version equals
// the stored version (0 for a new row) and returns the stat with its new version;
// otherwise it returns domain.ErrConflict.
type StatRepository interface {
	GetStat(ctx context.Context, userID string) (domain.Stat, error)
	SaveStat(ctx context.Context, stat domain.Stat) (domain.Stat, error)
}

// Locker serializes writers on a key across goroutines (and instances, for Redis).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// FeedRepository abstracts where live leaderboard feeds are registered and how
// snapshots reach them.
type FeedRepository interface {
	GetOrCreate(meetID string) *Feed
	Get(meetID string) (*Feed, bool)
	DeleteIfEmpty(meetID string)
	Broadcast(ctx context.Context, lb domain.Leaderboard) error
	// NextSeq advances the snapshot sequence of a meet. Callers hold the meet lock.
	NextSeq(ctx context.Context, meetID string) (int64, error)
	CurrentSeq(ctx context.Context, meetID string) (int64, error)
}

func meetLockKey(meetID string) string {
	return "meet:" + meetID
}

func userLockKey(userID string) string {
	return "user:" + userID
}
