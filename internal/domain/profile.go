package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the slice of a user's profile the matching service needs: enough to know the
// user exists, to show a candidate and to brief the wingman.
type Profile struct {
	UserID               uuid.UUID `json:"user_id"`
	DisplayName          string    `json:"display_name"`
	Bio                  *string   `json:"bio"`
	City                 *string   `json:"city"`
	Interests            []string  `json:"interests"`
	IsOnboardingComplete bool      `json:"is_onboarding_complete"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
