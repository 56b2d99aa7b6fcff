// Package events delivers "matched" notifications to in-process subscribers.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
)

var ErrBusClosed = errors.New("event bus is closed")

// DefaultHandlerTimeout applies when NewBus is given a non-positive timeout.
const DefaultHandlerTimeout = 30 * time.Second

// Handler reacts to a newly formed match.
type Handler func(ctx context.Context, match domain.Match) error

type subscriber struct {
	name    string
	handler Handler
}

// Bus queues match events and fans them out to subscribers on worker goroutines.
type Bus struct {
	logger         *slog.Logger
	queue          chan domain.Match
	handlerTimeout time.Duration

	mu     sync.RWMutex
	closed bool

	subMu       sync.RWMutex
	subscribers []subscriber

	wg sync.WaitGroup
}

// NewBus starts workers goroutines reading from a queue of the given size.
// Each subscriber call gets its own context that expires after handlerTimeout.
func NewBus(logger *slog.Logger, size, workers int, handlerTimeout time.Duration) *Bus {
	if size <= 0 {
		size = 1
	}
	if workers <= 0 {
		workers = 1
	}
	if handlerTimeout <= 0 {
		handlerTimeout = DefaultHandlerTimeout
	}
	b := &Bus{
		logger:         logger,
		queue:          make(chan domain.Match, size),
		handlerTimeout: handlerTimeout,
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.run()
	}
	return b
}

// Subscribe registers a handler. Handlers added after a publish do not see that event.
func (b *Bus) Subscribe(name string, handler Handler) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.subscribers = append(b.subscribers, subscriber{name: name, handler: handler})
}

// PublishMatch enqueues match, waiting for room until ctx is done.
func (b *Bus) PublishMatch(ctx context.Context, match *domain.Match) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.queue <- *match:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for queued ones to be handled.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) run() {
	defer b.wg.Done()
	for match := range b.queue {
		b.dispatch(match)
	}
}

func (b *Bus) dispatch(match domain.Match) {
	b.subMu.RLock()
	subs := make([]subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.subMu.RUnlock()

	for _, sub := range subs {
		if err := b.call(sub, match); err != nil {
			b.logger.Error("match subscriber failed",
				slog.String("subscriber", sub.name),
				slog.String("match_id", match.ID.String()),
				slog.Any("error", err),
			)
		}
	}
}

func (b *Bus) call(sub subscriber, match domain.Match) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.handlerTimeout)
	defer cancel()
	return sub.handler(ctx, match)
}
