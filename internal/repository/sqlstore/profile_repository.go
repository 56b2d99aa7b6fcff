package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const profileColumns = `user_id, display_name, bio, city, interests, is_onboarding_complete, created_at, updated_at`

type profileRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewProfileRepository(db *sqlx.DB) repository.ProfileRepository {
	return &profileRepository{db: db, now: time.Now}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	now := r.now()
	query := r.db.Rebind(`
		INSERT INTO profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`)
	result, err := r.db.ExecContext(ctx, query,
		profile.UserID, profile.DisplayName, nullString(profile.Bio), nullString(profile.City),
		encodeList(profile.Interests), profile.IsOnboardingComplete,
		toMillis(now), toMillis(now),
	)
	if err != nil {
		return classify(ctx, "create profile", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return classify(ctx, "create profile", err)
	}
	if rows == 0 {
		return domain.ErrProfileExists
	}
	profile.CreatedAt = fromMillis(toMillis(now))
	profile.UpdatedAt = profile.CreatedAt
	return nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	var row profileRow
	query := r.db.Rebind(`SELECT ` + profileColumns + ` FROM profiles WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, classify(ctx, "get profile", err)
	}
	return row.toDomain(), nil
}

func (r *profileRepository) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(1) FROM profiles WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return false, classify(ctx, "check profile", err)
	}
	return count > 0, nil
}

// ListCandidates returns onboarded profiles the user has no edge with in either direction,
// newest first.
func (r *profileRepository) ListCandidates(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Profile, error) {
	var rows []profileRow
	query := r.db.Rebind(`
		SELECT ` + profileColumns + ` FROM profiles p
		WHERE p.user_id <> ?
		  AND p.is_onboarding_complete = ?
		  AND NOT EXISTS (
			SELECT 1 FROM edges e
			WHERE (e.from_user = ? AND e.to_user = p.user_id)
			   OR (e.to_user = ? AND e.from_user = p.user_id)
		  )
		ORDER BY p.created_at DESC, p.user_id
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &rows, query, userID, true, userID, userID, limit); err != nil {
		return nil, classify(ctx, "list candidates", err)
	}
	profiles := make([]*domain.Profile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, row.toDomain())
	}
	return profiles, nil
}
