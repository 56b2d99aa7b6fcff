package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const matchColumns = `id, user1_id, user2_id, is_active, match_explanation, icebreakers, created_at`

type matchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) repository.MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	var row matchRow
	query := r.db.Rebind(`SELECT ` + matchColumns + ` FROM matches WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, classify(ctx, "get match", err)
	}
	return row.toDomain(), nil
}

func (r *matchRepository) GetByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Match, error) {
	return getMatchByPair(ctx, r.db, domain.NewPair(user1ID, user2ID))
}

func (r *matchRepository) GetUserMatches(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Match, error) {
	var rows []matchRow
	query := r.db.Rebind(`
		SELECT ` + matchColumns + ` FROM matches
		WHERE user1_id = ? OR user2_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`)
	if err := r.db.SelectContext(ctx, &rows, query, userID, userID, limit, offset); err != nil {
		return nil, classify(ctx, "list matches", err)
	}
	matches := make([]*domain.Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, row.toDomain())
	}
	return matches, nil
}

func (r *matchRepository) UpdateAIFields(ctx context.Context, matchID uuid.UUID, explanation string, icebreakers []string) error {
	query := r.db.Rebind(`UPDATE matches SET match_explanation = ?, icebreakers = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, explanation, encodeList(icebreakers), matchID)
	if err != nil {
		return classify(ctx, "update match", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return classify(ctx, "update match", err)
	}
	if rows == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

func getMatchByPair(ctx context.Context, q sqlx.QueryerContext, pair domain.Pair) (*domain.Match, error) {
	var row matchRow
	query := sqlx.Rebind(sqlx.BindType(driverName(q)), `SELECT `+matchColumns+` FROM matches WHERE user1_id = ? AND user2_id = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, pair.User1, pair.User2); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, classify(ctx, "get match", err)
	}
	return row.toDomain(), nil
}

func driverName(q sqlx.QueryerContext) string {
	switch v := q.(type) {
	case *sqlx.DB:
		return v.DriverName()
	case *sqlx.Tx:
		return v.DriverName()
	}
	return ""
}
