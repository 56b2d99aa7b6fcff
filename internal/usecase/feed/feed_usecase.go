package feed

import (
	"context"
	"fmt"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/repository"
	"github.com/google/uuid"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

type FeedUseCase struct {
	profileRepo repository.ProfileRepository
}

func NewFeedUseCase(profileRepo repository.ProfileRepository) *FeedUseCase {
	return &FeedUseCase{profileRepo: profileRepo}
}

// FeedUserResponse represents a user in the feed
type FeedUserResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Bio         *string   `json:"bio"`
	City        *string   `json:"city"`
	Interests   []string  `json:"interests"`
}

// NextCandidates returns up to limit users the caller has not decided on and who have not
// decided on the caller.
func (uc *FeedUseCase) NextCandidates(ctx context.Context, userID uuid.UUID, limit int) ([]*FeedUserResponse, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrInvalidUserID
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	candidates, err := uc.profileRepo.ListCandidates(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	out := make([]*FeedUserResponse, 0, len(candidates))
	for _, p := range candidates {
		if p.UserID == userID {
			continue
		}
		out = append(out, &FeedUserResponse{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Bio:         p.Bio,
			City:        p.City,
			Interests:   p.Interests,
		})
	}
	return out, nil
}
