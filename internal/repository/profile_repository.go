package repository

import (
	"context"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)

	// ListCandidates returns onboarded profiles other than userID that have no edge with
	// userID in either direction, newest first.
	ListCandidates(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Profile, error)
}
