// Package wingman enriches freshly formed matches with an AI explanation and icebreakers.
package wingman

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/repository"
)

// Generator produces the AI content for a pair of profiles.
type Generator interface {
	GenerateMatchExplanation(ctx context.Context, a, b *domain.Profile) (string, error)
	GenerateIcebreakers(ctx context.Context, a, b *domain.Profile) ([]string, error)
}

type Wingman struct {
	profiles repository.ProfileRepository
	matches  repository.MatchRepository
	ai       Generator
	logger   *slog.Logger
}

func New(profiles repository.ProfileRepository, matches repository.MatchRepository, ai Generator, logger *slog.Logger) *Wingman {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wingman{profiles: profiles, matches: matches, ai: ai, logger: logger}
}

// HandleMatch is an event subscriber. A failed icebreaker call does not block the
// explanation from being saved.
func (w *Wingman) HandleMatch(ctx context.Context, m domain.Match) error {
	p1, err := w.profiles.GetByUserID(ctx, m.User1ID)
	if err != nil {
		return fmt.Errorf("failed to get profile %s: %w", m.User1ID, err)
	}
	p2, err := w.profiles.GetByUserID(ctx, m.User2ID)
	if err != nil {
		return fmt.Errorf("failed to get profile %s: %w", m.User2ID, err)
	}

	explanation, err := w.ai.GenerateMatchExplanation(ctx, p1, p2)
	if err != nil {
		return fmt.Errorf("failed to generate explanation: %w", err)
	}

	icebreakers, err := w.ai.GenerateIcebreakers(ctx, p1, p2)
	if err != nil {
		w.logger.Warn("failed to generate icebreakers",
			slog.String("match_id", m.ID.String()),
			slog.Any("error", err),
		)
		icebreakers = nil
	}

	if err := w.matches.UpdateAIFields(ctx, m.ID, explanation, icebreakers); err != nil {
		return fmt.Errorf("failed to save AI fields: %w", err)
	}

	w.logger.Info("match enriched",
		slog.String("match_id", m.ID.String()),
		slog.Int("icebreakers", len(icebreakers)),
	)
	return nil
}
