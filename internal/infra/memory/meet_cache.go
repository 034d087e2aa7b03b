package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/domain"
	"golang.org/x/sync/singleflight"
)

// MeetCache caches meets with TTL to avoid repeated DB hits.
type MeetCache struct {
	loader app.MeetLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedMeet
	gens  map[string]uint64
}

type cachedMeet struct {
	meet      domain.Meet
	expiresAt time.Time
}

func NewMeetCache(loader app.MeetLoader, ttl time.Duration) *MeetCache {
	return &MeetCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedMeet),
		gens:   make(map[string]uint64),
	}
}

func (c *MeetCache) GetMeet(ctx context.Context, meetID string) (domain.Meet, error) {
	if meet, ok := c.lookup(meetID); ok {
		return meet, nil
	}

	result, err, _ := c.sf.Do(meetID, func() (interface{}, error) {
		if meet, ok := c.lookup(meetID); ok {
			return meet, nil
		}

		c.mu.RLock()
		gen := c.gens[meetID]
		c.mu.RUnlock()

		meet, err := c.loader.LoadMeet(ctx, meetID)
		if err != nil {
			return domain.Meet{}, err
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			c.mu.Lock()
			// an Invalidate during the load means meet may predate the write
			if c.gens[meetID] == gen {
				c.cache[meetID] = cachedMeet{meet: meet, expiresAt: c.clock().Add(ttl)}
			}
			c.mu.Unlock()
		}
		return meet, nil
	})
	if err != nil {
		return domain.Meet{}, err
	}
	return copyMeet(result.(domain.Meet)), nil
}

// Invalidate drops meetID so the next read goes to the loader. Loads already in
// flight still return to their callers but are not stored.
func (c *MeetCache) Invalidate(_ context.Context, meetID string) error {
	c.mu.Lock()
	delete(c.cache, meetID)
	c.gens[meetID]++
	c.mu.Unlock()
	c.sf.Forget(meetID)
	return nil
}

func (c *MeetCache) lookup(meetID string) (domain.Meet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[meetID]; ok && entry.expiresAt.After(c.clock()) {
		return copyMeet(entry.meet), true
	}
	return domain.Meet{}, false
}

func (c *MeetCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
