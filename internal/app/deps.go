package app

import (
	"time"

	"github.com/google/uuid"
)

// Deps wires the stores shared by the services.
type Deps struct {
	Users        UserRepository
	Meets        MeetRepository
	Cache        MeetCache
	Attempts     AttemptRepository
	Leaderboards LeaderboardRepository
	Stats        StatRepository
	Locker       Locker
	Feeds        FeedRepository

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}

func (d Deps) now() time.Time {
	return d.Now().UTC()
}
