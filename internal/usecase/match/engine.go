// Package match is the mutual-interest matching engine. It is the only component allowed to
// change edge statuses, and it guarantees that a pair becomes connected exactly once no matter
// how the two users' actions interleave.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/gdugdh24/swipematch/internal/usecase/match"

// publishTimeout bounds a notification that outlives the caller's context.
const publishTimeout = 5 * time.Second

// Locker provides mutual exclusion per key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Publisher receives one notification per newly formed match.
type Publisher interface {
	PublishMatch(ctx context.Context, match *domain.Match) error
}

// UserDirectory answers whether a user is known to the system.
type UserDirectory interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Result is what the caller of an interest or disinterest action gets back.
type Result struct {
	Outcome domain.Outcome `json:"outcome"`
	Edge    *domain.Edge   `json:"edge"`
	Match   *domain.Match  `json:"match,omitempty"`
}

type Engine struct {
	edges     repository.EdgeRepository
	users     UserDirectory
	locker    Locker
	publisher Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	opts      Options
}

// NewEngine wires an engine. users and publisher may be nil: without a directory every
// well-formed identifier is accepted, without a publisher matches are only stored.
func NewEngine(
	edges repository.EdgeRepository,
	users UserDirectory,
	locker Locker,
	publisher Publisher,
	logger *slog.Logger,
	opts Options,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		edges:     edges,
		users:     users,
		locker:    locker,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		opts:      opts.withDefaults(),
	}
}

// RecordInterest records that from is interested in to and connects the pair if to has
// already expressed interest in from.
func (e *Engine) RecordInterest(ctx context.Context, from, to uuid.UUID) (*Result, error) {
	ctx, span := e.startSpan(ctx, "match.RecordInterest", from, to)
	defer span.End()

	if err := e.validate(ctx, from, to); err != nil {
		return nil, e.fail(span, err)
	}

	res, err := e.retry(ctx, "interest", from, to, func(ctx context.Context) (*Result, error) {
		return e.interestOnce(ctx, from, to)
	})
	if err != nil {
		return nil, e.fail(span, err)
	}
	span.SetAttributes(attribute.String("match.outcome", string(res.Outcome)))

	e.logger.Debug("interest recorded",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("outcome", string(res.Outcome)),
	)

	// Published after the pair lock has been released.
	if res.Outcome == domain.OutcomeMatched {
		e.publish(ctx, res.Match)
	}
	return res, nil
}

// RecordDisinterest marks from's edge to to as rejected. It never looks at or changes the
// reciprocal edge and never forms a match.
func (e *Engine) RecordDisinterest(ctx context.Context, from, to uuid.UUID) (*Result, error) {
	ctx, span := e.startSpan(ctx, "match.RecordDisinterest", from, to)
	defer span.End()

	if err := e.validate(ctx, from, to); err != nil {
		return nil, e.fail(span, err)
	}

	res, err := e.retry(ctx, "disinterest", from, to, func(ctx context.Context) (*Result, error) {
		return e.disinterestOnce(ctx, from, to)
	})
	if err != nil {
		return nil, e.fail(span, err)
	}
	span.SetAttributes(attribute.String("match.outcome", string(res.Outcome)))

	e.logger.Debug("disinterest recorded",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("outcome", string(res.Outcome)),
	)
	return res, nil
}

// PairState returns both directional edges between user and other, read as one snapshot.
func (e *Engine) PairState(ctx context.Context, user, other uuid.UUID) (*domain.PairState, error) {
	if err := domain.ValidatePair(user, other); err != nil {
		return nil, err
	}
	state, err := e.edges.GetPair(ctx, user, other)
	if err != nil {
		return nil, fmt.Errorf("failed to get pair: %w", err)
	}
	return state, nil
}

func (e *Engine) validate(ctx context.Context, from, to uuid.UUID) error {
	if err := domain.ValidatePair(from, to); err != nil {
		return err
	}
	if e.users == nil {
		return nil
	}
	for _, id := range []uuid.UUID{from, to} {
		ok, err := e.users.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to look up user %s: %w", id, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
		}
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, m *domain.Match) {
	if e.publisher == nil || m == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := e.publisher.PublishMatch(ctx, m); err != nil {
		e.logger.Error("failed to publish match",
			slog.String("match_id", m.ID.String()),
			slog.Any("error", err),
		)
	}
}

func (e *Engine) startSpan(ctx context.Context, name string, from, to uuid.UUID) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("match.from", from.String()),
		attribute.String("match.to", to.String()),
	))
}

func (e *Engine) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
