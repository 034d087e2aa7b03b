package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// MeetCache caches meets as JSON in Redis (one key per meet) and falls back to a loader on cache miss.
// Meets are stored as: SET meet:{meetID} <json> PX <ttl>
// Invalidate bumps meet:gen:{meetID}; a load only stores its result if the generation it
// started with is still current.
// storeIfCurrentScript sets KEYS[2] only while KEYS[1] still holds the generation ARGV[1].
var storeIfCurrentScript = redis.NewScript(`
if (redis.call("GET", KEYS[1]) or "0") == ARGV[1] then
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

type MeetCache struct {
	client *redis.Client
	loader app.MeetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewMeetCache(client *redis.Client, loader app.MeetLoader, ttl time.Duration) *MeetCache {
	return &MeetCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *MeetCache) GetMeet(ctx context.Context, meetID string) (domain.Meet, error) {
	if meet, ok := c.lookup(ctx, meetID); ok {
		return meet, nil
	}

	result, err, _ := c.sf.Do(meetID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if meet, ok := c.lookup(ctx, meetID); ok {
			return meet, nil
		}

		gen, err := c.client.Get(ctx, c.genKey(meetID)).Result()
		if errors.Is(err, redis.Nil) {
			gen = "0"
		} else if err != nil {
			log.Printf("read meet generation %s: %v", meetID, err)
			gen = ""
		}

		meet, err := c.loader.LoadMeet(ctx, meetID)
		if err != nil {
			return domain.Meet{}, err
		}

		raw, err := json.Marshal(meet)
		if err != nil {
			return domain.Meet{}, fmt.Errorf("marshal meet: %w", err)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 && gen != "" {
			keys := []string{c.genKey(meetID), c.key(meetID)}
			if err := storeIfCurrentScript.Run(ctx, c.client, keys, gen, raw, ttl.Milliseconds()).Err(); err != nil {
				log.Printf("cache meet %s: %v", meetID, err)
			}
		}
		return meet, nil
	})
	if err != nil {
		return domain.Meet{}, err
	}
	return result.(domain.Meet), nil
}

// Invalidate deletes the cached copy of meetID and stops loads in flight from storing theirs.
func (c *MeetCache) Invalidate(ctx context.Context, meetID string) error {
	c.sf.Forget(meetID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(meetID))
		pipe.Del(ctx, c.key(meetID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate meet: %w", err)
	}
	return nil
}

// lookup reads the cached meet. Redis errors are treated as a miss.
func (c *MeetCache) lookup(ctx context.Context, meetID string) (domain.Meet, bool) {
	raw, err := c.client.Get(ctx, c.key(meetID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("read cached meet %s: %v", meetID, err)
		}
		return domain.Meet{}, false
	}
	var meet domain.Meet
	if err := json.Unmarshal(raw, &meet); err != nil {
		log.Printf("decode cached meet %s: %v", meetID, err)
		return domain.Meet{}, false
	}
	return meet, true
}

func (c *MeetCache) key(meetID string) string {
	return "meet:" + meetID
}

func (c *MeetCache) genKey(meetID string) string {
	return "meet:gen:" + meetID
}

func (c *MeetCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
