package repository

import (
	"context"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
)

// EdgeRepository is the durable store for directional interest edges.
//
// Implementations must make TransitionPairToConnected atomic across both directional edges
// and the match record: either all three writes are visible or none is.
type EdgeRepository interface {
	// GetEdge returns domain.ErrEdgeNotFound when no edge exists for (from, to).
	GetEdge(ctx context.Context, from, to uuid.UUID) (*domain.Edge, error)
	// GetPair reads (from, to) and (to, from) as one snapshot. Missing edges are nil.
	GetPair(ctx context.Context, from, to uuid.UUID) (*domain.PairState, error)

	// UpsertEdgeIfAbsent creates (from, to) with status unless it already exists. It returns
	// the stored edge and whether this call created it.
	UpsertEdgeIfAbsent(ctx context.Context, from, to uuid.UUID, status domain.EdgeStatus) (*domain.Edge, bool, error)

	// UpdateEdgeStatus moves edge to status if its stored version still equals edge.Version,
	// otherwise it returns domain.ErrVersionConflict.
	UpdateEdgeStatus(ctx context.Context, edge *domain.Edge, status domain.EdgeStatus) (*domain.Edge, error)

	// TransitionPairToConnected connects (from, to) and (to, from) if both are pending.
	// AlreadyApplied is returned with the existing match when both are connected already,
	// Conflict when any other combination is found.
	TransitionPairToConnected(ctx context.Context, from, to uuid.UUID) (domain.CommitResult, *domain.Match, error)

	// ListDecidedUsers returns every user that has an edge to or from userID.
	ListDecidedUsers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
