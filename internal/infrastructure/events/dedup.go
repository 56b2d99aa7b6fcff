package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Publisher is anything that accepts match notifications.
type Publisher interface {
	PublishMatch(ctx context.Context, match *domain.Match) error
}

// Marker records that a key has been seen. MarkOnce returns true only for the first caller.
type Marker interface {
	MarkOnce(ctx context.Context, key string) (bool, error)
}

// Dedup forwards at most one notification per pair to next.
type Dedup struct {
	next   Publisher
	marker Marker
	logger *slog.Logger
}

func NewDedup(next Publisher, marker Marker, logger *slog.Logger) *Dedup {
	return &Dedup{next: next, marker: marker, logger: logger}
}

func (d *Dedup) PublishMatch(ctx context.Context, match *domain.Match) error {
	first, err := d.marker.MarkOnce(ctx, "match:"+match.Pair().Key())
	if err != nil {
		// Without the marker, prefer a possible duplicate over a lost notification.
		d.logger.Warn("match dedup unavailable, publishing anyway",
			slog.String("match_id", match.ID.String()),
			slog.Any("error", err),
		)
		return d.next.PublishMatch(ctx, match)
	}
	if !first {
		d.logger.Info("duplicate match notification dropped", slog.String("match_id", match.ID.String()))
		return nil
	}
	return d.next.PublishMatch(ctx, match)
}

// RedisMarker keeps seen keys in Redis for ttl.
type RedisMarker struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedisMarker(client redis.UniversalClient, ttl time.Duration) *RedisMarker {
	return &RedisMarker{client: client, ttl: ttl, prefix: "swipematch:dedup:"}
}

func (m *RedisMarker) MarkOnce(ctx context.Context, key string) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.prefix+key, time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %q: %w", key, err)
	}
	return ok, nil
}

// MemoryMarker keeps seen keys in process memory for ttl.
type MemoryMarker struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func NewMemoryMarker(ttl time.Duration) *MemoryMarker {
	return &MemoryMarker{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (m *MemoryMarker) MarkOnce(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, at := range m.seen {
		if m.ttl > 0 && now.Sub(at) > m.ttl {
			delete(m.seen, k)
		}
	}
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = now
	return true, nil
}
