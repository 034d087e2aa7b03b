package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/domain"
)

const (
	feedChannelPrefix = "meet:feed:"
	feedSeqPrefix     = "meet:seq:"
)

// FeedStore is a Redis-backed implementation of app.FeedRepository.
// Notes:
//   - Feeds live in a local map; subscribers are always attached to this instance.
//   - Broadcast publishes locally and on a Redis channel per meet so that viewers
//     connected to other instances receive the snapshot through Run.
type FeedStore struct {
	client *redis.Client
	origin string
	mu     sync.RWMutex
	feeds  map[string]*app.Feed
}

type feedMessage struct {
	Origin      string             `json:"origin"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
}

func NewFeedStore(client *redis.Client) *FeedStore {
	return &FeedStore{
		client: client,
		origin: uuid.NewString(),
		feeds:  make(map[string]*app.Feed),
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

// Broadcast delivers lb to local subscribers and publishes it for other instances.
func (s *FeedStore) Broadcast(ctx context.Context, lb domain.Leaderboard) error {
	if feed, ok := s.Get(lb.MeetID); ok {
		feed.Publish(lb)
	}
	payload, err := json.Marshal(feedMessage{Origin: s.origin, Leaderboard: lb})
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel(lb.MeetID), payload).Err()
}

// NextSeq increments meet:seq:{meetID}, shared by every instance.
func (s *FeedStore) NextSeq(ctx context.Context, meetID string) (int64, error) {
	return s.client.Incr(ctx, feedSeqPrefix+meetID).Result()
}

func (s *FeedStore) CurrentSeq(ctx context.Context, meetID string) (int64, error) {
	seq, err := s.client.Get(ctx, feedSeqPrefix+meetID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return seq, err
}

// Run relays snapshots published by other instances to local feeds until ctx is done.
func (s *FeedStore) Run(ctx context.Context) error {
	sub := s.client.PSubscribe(ctx, feedChannelPrefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.deliver(msg.Payload)
		}
	}
}

func (s *FeedStore) deliver(payload string) {
	var msg feedMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		log.Printf("feed: drop malformed message: %v", err)
		return
	}
	if msg.Origin == s.origin {
		return
	}
	if feed, ok := s.Get(msg.Leaderboard.MeetID); ok {
		feed.Publish(msg.Leaderboard)
	}
}

func (s *FeedStore) channel(meetID string) string {
	return feedChannelPrefix + meetID
}
