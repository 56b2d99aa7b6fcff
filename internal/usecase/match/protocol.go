package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
)

// errPairConflict means the pair changed between reading it and connecting it. The whole
// sequence is re-run from the top.
var errPairConflict = errors.New("pair changed during transition")

// interestOnce is one attempt of RecordInterest under the pair lock. Every step is
// idempotent, so a retried attempt converges on the same final state.
func (e *Engine) interestOnce(ctx context.Context, from, to uuid.UUID) (*Result, error) {
	unlock, err := e.lockPair(ctx, from, to)
	if err != nil {
		return nil, err
	}
	defer unlock()

	edge, created, err := e.edges.UpsertEdgeIfAbsent(ctx, from, to, domain.EdgeStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to record interest: %w", err)
	}
	if !created {
		switch edge.Status {
		case domain.EdgeStatusConnected:
			return &Result{Outcome: domain.OutcomeAlreadyMatched, Edge: edge}, nil
		case domain.EdgeStatusRejected:
			edge, err = e.reopen(ctx, edge)
			if err != nil {
				return nil, err
			}
		}
	}

	reciprocal, err := e.edges.GetEdge(ctx, to, from)
	if errors.Is(err, domain.ErrEdgeNotFound) {
		return &Result{Outcome: domain.OutcomeNew, Edge: edge}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reciprocal edge: %w", err)
	}
	if !reciprocal.IsPending() {
		return &Result{Outcome: domain.OutcomeNew, Edge: edge}, nil
	}

	result, m, err := e.edges.TransitionPairToConnected(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to connect pair: %w", err)
	}
	switch result {
	case domain.CommitApplied:
		return &Result{Outcome: domain.OutcomeMatched, Edge: connectedCopy(edge, m), Match: m}, nil
	case domain.CommitAlreadyApplied:
		return &Result{Outcome: domain.OutcomeAlreadyMatched, Edge: connectedCopy(edge, m), Match: m}, nil
	default:
		return nil, errPairConflict
	}
}

// disinterestOnce is one attempt of RecordDisinterest under the pair lock.
func (e *Engine) disinterestOnce(ctx context.Context, from, to uuid.UUID) (*Result, error) {
	unlock, err := e.lockPair(ctx, from, to)
	if err != nil {
		return nil, err
	}
	defer unlock()

	edge, created, err := e.edges.UpsertEdgeIfAbsent(ctx, from, to, domain.EdgeStatusRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to record disinterest: %w", err)
	}
	if created {
		return &Result{Outcome: domain.OutcomeRejected, Edge: edge}, nil
	}

	switch edge.Status {
	case domain.EdgeStatusRejected:
		return &Result{Outcome: domain.OutcomeRejected, Edge: edge}, nil
	case domain.EdgeStatusConnected:
		// Unmatching is a separate operation; a rejection never splits a connected pair.
		return &Result{Outcome: domain.OutcomeAlreadyMatched, Edge: edge}, nil
	}

	rejected, err := e.edges.UpdateEdgeStatus(ctx, edge, domain.EdgeStatusRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to reject edge: %w", err)
	}
	return &Result{Outcome: domain.OutcomeRejected, Edge: rejected}, nil
}

// reopen applies the reswipe policy to a rejected edge.
func (e *Engine) reopen(ctx context.Context, edge *domain.Edge) (*domain.Edge, error) {
	switch e.opts.ReswipePolicy {
	case ReswipeAllow:
	case ReswipeCooldown:
		if e.opts.Now().Before(edge.UpdatedAt.Add(e.opts.ReswipeCooldown)) {
			return nil, domain.ErrReswipeCooldown
		}
	default:
		return nil, domain.ErrReswipeForbidden
	}

	reopened, err := e.edges.UpdateEdgeStatus(ctx, edge, domain.EdgeStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen rejected edge: %w", err)
	}
	return reopened, nil
}

func (e *Engine) lockPair(ctx context.Context, from, to uuid.UUID) (func(), error) {
	lockCtx := ctx
	if e.opts.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, e.opts.LockTimeout)
		defer cancel()
	}

	unlock, err := e.locker.Lock(lockCtx, domain.NewPair(from, to).Key())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrLockTimeout
		}
		return nil, fmt.Errorf("failed to lock pair: %w", err)
	}
	return unlock, nil
}

func connectedCopy(edge *domain.Edge, m *domain.Match) *domain.Edge {
	out := *edge
	if out.Status != domain.EdgeStatusConnected {
		out.Status = domain.EdgeStatusConnected
		out.Version++
	}
	if m != nil && out.UpdatedAt.Before(m.CreatedAt) {
		out.UpdatedAt = m.CreatedAt
	}
	return &out
}
