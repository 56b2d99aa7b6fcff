package swipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/repository"
	"github.com/gdugdh24/swipematch/internal/usecase/match"
	"github.com/google/uuid"
)

const (
	DefaultMatchesLimit = 20
	MaxMatchesLimit     = 100
)

// Engine is the part of the matching engine the swipe flow drives.
type Engine interface {
	RecordInterest(ctx context.Context, from, to uuid.UUID) (*match.Result, error)
	RecordDisinterest(ctx context.Context, from, to uuid.UUID) (*match.Result, error)
	PairState(ctx context.Context, user, other uuid.UUID) (*domain.PairState, error)
}

type SwipeUseCase struct {
	engine      Engine
	matchRepo   repository.MatchRepository
	profileRepo repository.ProfileRepository
}

func NewSwipeUseCase(
	engine Engine,
	matchRepo repository.MatchRepository,
	profileRepo repository.ProfileRepository,
) *SwipeUseCase {
	return &SwipeUseCase{
		engine:      engine,
		matchRepo:   matchRepo,
		profileRepo: profileRepo,
	}
}

// SwipeRequest represents a swipe action
type SwipeRequest struct {
	TargetUserID uuid.UUID `json:"target_user_id" binding:"required"`
	IsLike       *bool     `json:"is_like" binding:"required"`
}

// SwipeResponse represents swipe result
type SwipeResponse struct {
	Outcome     domain.Outcome      `json:"outcome"`
	IsMatch     bool                `json:"is_match"`
	Edge        *domain.Edge        `json:"edge"`
	Match       *domain.Match       `json:"match,omitempty"`
	MatchedUser *MatchedUserProfile `json:"matched_user,omitempty"`
}

// MatchedUserProfile represents matched user info
type MatchedUserProfile struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Bio         *string   `json:"bio"`
	City        *string   `json:"city"`
}

// MatchResponse is one entry of the caller's match list.
type MatchResponse struct {
	Match *domain.Match       `json:"match"`
	User  *MatchedUserProfile `json:"user,omitempty"`
}

// CreateSwipe records a like or a pass and reports whether the pair is now a match.
func (uc *SwipeUseCase) CreateSwipe(ctx context.Context, swiperID uuid.UUID, req *SwipeRequest) (*SwipeResponse, error) {
	if req.IsLike == nil {
		return nil, fmt.Errorf("%w: is_like is required", domain.ErrInvalidInput)
	}

	var (
		res *match.Result
		err error
	)
	if *req.IsLike {
		res, err = uc.engine.RecordInterest(ctx, swiperID, req.TargetUserID)
	} else {
		res, err = uc.engine.RecordDisinterest(ctx, swiperID, req.TargetUserID)
	}
	if err != nil {
		return nil, err
	}

	response := &SwipeResponse{
		Outcome: res.Outcome,
		Edge:    res.Edge,
		Match:   res.Match,
	}
	if res.Outcome != domain.OutcomeMatched && res.Outcome != domain.OutcomeAlreadyMatched {
		return response, nil
	}

	response.IsMatch = true
	if response.Match == nil {
		m, err := uc.matchRepo.GetByUsers(ctx, swiperID, req.TargetUserID)
		if err != nil && !errors.Is(err, domain.ErrMatchNotFound) {
			return nil, fmt.Errorf("failed to get match: %w", err)
		}
		response.Match = m
	}
	response.MatchedUser = uc.matchedUserProfile(ctx, req.TargetUserID)
	return response, nil
}

// GetPairState returns the caller's edge to other and other's edge to the caller.
func (uc *SwipeUseCase) GetPairState(ctx context.Context, userID, otherID uuid.UUID) (*domain.PairState, error) {
	return uc.engine.PairState(ctx, userID, otherID)
}

// NormalizePaging clamps a requested page to what GetMatches serves.
func NormalizePaging(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultMatchesLimit
	case limit > MaxMatchesLimit:
		limit = MaxMatchesLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetMatches lists the caller's matches, newest first.
func (uc *SwipeUseCase) GetMatches(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*MatchResponse, error) {
	limit, offset = NormalizePaging(limit, offset)

	matches, err := uc.matchRepo.GetUserMatches(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}

	responses := make([]*MatchResponse, 0, len(matches))
	for _, m := range matches {
		resp := &MatchResponse{Match: m}
		if other, ok := m.GetOtherUserID(userID); ok {
			resp.User = uc.matchedUserProfile(ctx, other)
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// matchedUserProfile returns nil when the profile cannot be loaded; the match itself is
// what the caller needs.
func (uc *SwipeUseCase) matchedUserProfile(ctx context.Context, userID uuid.UUID) *MatchedUserProfile {
	profile, err := uc.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil
	}
	return &MatchedUserProfile{
		UserID:      profile.UserID,
		DisplayName: profile.DisplayName,
		Bio:         profile.Bio,
		City:        profile.City,
	}
}
