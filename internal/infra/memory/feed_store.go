package memory

import (
	"context"
	"sync"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/domain"
)

// FeedStore is an in-memory implementation of app.FeedRepository.
type FeedStore struct {
	mu    sync.RWMutex
	feeds map[string]*app.Feed
	seqs  map[string]int64
}

func NewFeedStore() *FeedStore {
	return &FeedStore{
		feeds: make(map[string]*app.Feed),
		seqs:  make(map[string]int64),
	}
}

func (s *FeedStore) GetOrCreate(meetID string) *app.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if feed, ok := s.feeds[meetID]; ok {
		return feed
	}
	feed := app.NewFeed(meetID)
	s.feeds[meetID] = feed
	return feed
}

func (s *FeedStore) Get(meetID string) (*app.Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed, ok := s.feeds[meetID]
	return feed, ok
}

func (s *FeedStore) DeleteIfEmpty(meetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[meetID]
	if !ok {
		return
	}
	if feed.IsEmpty() {
		delete(s.feeds, meetID)
	}
}

func (s *FeedStore) NextSeq(_ context.Context, meetID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[meetID]++
	return s.seqs[meetID], nil
}

func (s *FeedStore) CurrentSeq(_ context.Context, meetID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seqs[meetID], nil
}

// Broadcast publishes lb to the local feed of its meet, if any.
func (s *FeedStore) Broadcast(_ context.Context, lb domain.Leaderboard) error {
	if feed, ok := s.Get(lb.MeetID); ok {
		feed.Publish(lb)
	}
	return nil
}
