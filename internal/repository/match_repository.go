package repository

import (
	"context"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
)

// MatchRepository reads match records. Matches are only ever created by
// EdgeRepository.TransitionPairToConnected, inside the same atomic unit as the edges.
type MatchRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error)
	GetByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Match, error)
	GetUserMatches(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Match, error)
	UpdateAIFields(ctx context.Context, matchID uuid.UUID, explanation string, icebreakers []string) error
}
