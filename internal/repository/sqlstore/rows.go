package sqlstore

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
)

// Timestamps are stored as unix milliseconds and string lists as JSON text so that the
// same statements run on PostgreSQL and SQLite.

type edgeRow struct {
	FromUser  uuid.UUID `db:"from_user"`
	ToUser    uuid.UUID `db:"to_user"`
	Status    string    `db:"status"`
	Version   int64     `db:"version"`
	CreatedAt int64     `db:"created_at"`
	UpdatedAt int64     `db:"updated_at"`
}

func (r edgeRow) toDomain() *domain.Edge {
	return &domain.Edge{
		FromUser:  r.FromUser,
		ToUser:    r.ToUser,
		Status:    domain.EdgeStatus(r.Status),
		Version:   r.Version,
		CreatedAt: fromMillis(r.CreatedAt),
		UpdatedAt: fromMillis(r.UpdatedAt),
	}
}

type matchRow struct {
	ID               uuid.UUID      `db:"id"`
	User1ID          uuid.UUID      `db:"user1_id"`
	User2ID          uuid.UUID      `db:"user2_id"`
	IsActive         bool           `db:"is_active"`
	MatchExplanation sql.NullString `db:"match_explanation"`
	Icebreakers      string         `db:"icebreakers"`
	CreatedAt        int64          `db:"created_at"`
}

func (r matchRow) toDomain() *domain.Match {
	m := &domain.Match{
		ID:          r.ID,
		User1ID:     r.User1ID,
		User2ID:     r.User2ID,
		IsActive:    r.IsActive,
		Icebreakers: decodeList(r.Icebreakers),
		CreatedAt:   fromMillis(r.CreatedAt),
	}
	if r.MatchExplanation.Valid {
		m.Explanation = &r.MatchExplanation.String
	}
	return m
}

type profileRow struct {
	UserID               uuid.UUID      `db:"user_id"`
	DisplayName          string         `db:"display_name"`
	Bio                  sql.NullString `db:"bio"`
	City                 sql.NullString `db:"city"`
	Interests            string         `db:"interests"`
	IsOnboardingComplete bool           `db:"is_onboarding_complete"`
	CreatedAt            int64          `db:"created_at"`
	UpdatedAt            int64          `db:"updated_at"`
}

func (r profileRow) toDomain() *domain.Profile {
	p := &domain.Profile{
		UserID:               r.UserID,
		DisplayName:          r.DisplayName,
		Interests:            decodeList(r.Interests),
		IsOnboardingComplete: r.IsOnboardingComplete,
		CreatedAt:            fromMillis(r.CreatedAt),
		UpdatedAt:            fromMillis(r.UpdatedAt),
	}
	if r.Bio.Valid {
		p.Bio = &r.Bio.String
	}
	if r.City.Valid {
		p.City = &r.City.String
	}
	return p
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeList(raw string) []string {
	var items []string
	if raw == "" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return []string{}
	}
	return items
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
