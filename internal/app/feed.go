package app

import (
	"sync"

	"dopamine-dashboard/internal/domain"
)

const feedBuffer = 8

// Feed fans ranked leaderboard snapshots of one meet out to live subscribers.
type Feed struct {
	meetID      string
	mu          sync.RWMutex
	latest      *domain.Leaderboard
	subscribers map[chan domain.Leaderboard]struct{}
}

// NewFeed is exported for infrastructure layers that register feeds.
func NewFeed(meetID string) *Feed {
	return &Feed{
		meetID:      meetID,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// MeetID returns the meet this feed publishes.
func (f *Feed) MeetID() string {
	return f.meetID
}

// IsEmpty reports whether the feed has no subscribers.
func (f *Feed) IsEmpty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers) == 0
}

// Publish delivers lb to every subscriber. A slow subscriber loses its oldest
// pending snapshot rather than blocking the publisher.
func (f *Feed) Publish(lb domain.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest != nil && lb.Seq < f.latest.Seq {
		return
	}
	f.latest = &lb
	for ch := range f.subscribers {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// Subscribe registers a channel primed with the freshest of initial and the last
// published snapshot. cancel closes the channel and may be called more than once.
func (f *Feed) Subscribe(initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, feedBuffer)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	first := initial
	if f.latest != nil && f.latest.Seq > initial.Seq {
		first = *f.latest
	}
	ch <- first
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			if _, ok := f.subscribers[ch]; ok {
				delete(f.subscribers, ch)
				close(ch)
			}
			f.mu.Unlock()
		})
	}
	return ch, cancel
}
