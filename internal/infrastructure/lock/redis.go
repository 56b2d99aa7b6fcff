package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "swipematch:lock:"

// releaseScript deletes the key only while it still holds the caller's token, so an
// expired holder never frees a lock that someone else has taken over.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease-based lock shared by every engine instance that talks to the same Redis.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

// NewRedis creates a Redis locker. ttl bounds how long a crashed holder can block a pair;
// retry is the polling interval while the key is taken.
func NewRedis(client redis.UniversalClient, ttl, retry time.Duration) *Redis {
	if retry <= 0 {
		retry = 5 * time.Millisecond
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		retry:  retry,
		prefix: defaultKeyPrefix,
	}
}

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, domain.Transient(fmt.Errorf("failed to acquire redis lock: %w", err))
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The TTL reclaims the key if this release fails.
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
		})
	}, nil
}
