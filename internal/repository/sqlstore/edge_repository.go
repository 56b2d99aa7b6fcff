// Package sqlstore implements the repositories on top of sqlx. The same statements serve
// PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite); the dialect is taken from the
// driver name of the handle.
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

const edgeColumns = `from_user, to_user, status, version, created_at, updated_at`

type edgeRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewEdgeRepository(db *sqlx.DB) repository.EdgeRepository {
	return &edgeRepository{db: db, now: time.Now}
}

func (r *edgeRepository) GetEdge(ctx context.Context, from, to uuid.UUID) (*domain.Edge, error) {
	var row edgeRow
	query := r.db.Rebind(`SELECT ` + edgeColumns + ` FROM edges WHERE from_user = ? AND to_user = ?`)
	if err := r.db.GetContext(ctx, &row, query, from, to); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEdgeNotFound
		}
		return nil, classify(ctx, "get edge", err)
	}
	return row.toDomain(), nil
}

// GetPair loads both directions in a single statement, so a concurrent transition is seen
// either entirely or not at all.
func (r *edgeRepository) GetPair(ctx context.Context, from, to uuid.UUID) (*domain.PairState, error) {
	var rows []edgeRow
	query := r.db.Rebind(`
		SELECT ` + edgeColumns + ` FROM edges
		WHERE (from_user = ? AND to_user = ?) OR (from_user = ? AND to_user = ?)`)
	if err := r.db.SelectContext(ctx, &rows, query, from, to, to, from); err != nil {
		return nil, classify(ctx, "get pair", err)
	}

	state := &domain.PairState{}
	for _, row := range rows {
		if row.FromUser == from {
			state.Outgoing = row.toDomain()
		} else {
			state.Incoming = row.toDomain()
		}
	}
	return state, nil
}

func (r *edgeRepository) UpsertEdgeIfAbsent(ctx context.Context, from, to uuid.UUID, status domain.EdgeStatus) (*domain.Edge, bool, error) {
	now := toMillis(r.now())
	query := r.db.Rebind(`
		INSERT INTO edges (from_user, to_user, status, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (from_user, to_user) DO NOTHING
	`)
	result, err := r.db.ExecContext(ctx, query, from, to, string(status), now, now)
	if err != nil {
		return nil, false, classify(ctx, "upsert edge", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, classify(ctx, "upsert edge", err)
	}

	edge, err := r.GetEdge(ctx, from, to)
	if err != nil {
		return nil, false, err
	}
	return edge, affected == 1, nil
}

func (r *edgeRepository) UpdateEdgeStatus(ctx context.Context, edge *domain.Edge, status domain.EdgeStatus) (*domain.Edge, error) {
	now := r.now()
	query := r.db.Rebind(`
		UPDATE edges SET status = ?, version = version + 1, updated_at = ?
		WHERE from_user = ? AND to_user = ? AND version = ?
	`)
	result, err := r.db.ExecContext(ctx, query, string(status), toMillis(now), edge.FromUser, edge.ToUser, edge.Version)
	if err != nil {
		return nil, classify(ctx, "update edge", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, classify(ctx, "update edge", err)
	}
	if affected == 0 {
		if _, err := r.GetEdge(ctx, edge.FromUser, edge.ToUser); err != nil {
			return nil, err
		}
		return nil, domain.ErrVersionConflict
	}

	updated := *edge
	updated.Status = status
	updated.Version = edge.Version + 1
	updated.UpdatedAt = fromMillis(toMillis(now))
	return &updated, nil
}

// TransitionPairToConnected flips both pending edges of the pair to connected and records
// the match in one transaction. On PostgreSQL the two rows are locked in canonical order.
func (r *edgeRepository) TransitionPairToConnected(ctx context.Context, from, to uuid.UUID) (domain.CommitResult, *domain.Match, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", nil, classify(ctx, "begin transition", err)
	}
	defer tx.Rollback()

	var rows []edgeRow
	query := tx.Rebind(`
		SELECT ` + edgeColumns + ` FROM edges
		WHERE (from_user = ? AND to_user = ?) OR (from_user = ? AND to_user = ?)
		ORDER BY from_user, to_user` + r.lockClause())
	if err := tx.SelectContext(ctx, &rows, query, from, to, to, from); err != nil {
		return "", nil, classify(ctx, "load pair", err)
	}
	if len(rows) < 2 {
		return domain.CommitConflict, nil, nil
	}

	pair := domain.NewPair(from, to)
	a, b := rows[0].Status, rows[1].Status
	switch {
	case a == string(domain.EdgeStatusConnected) && b == string(domain.EdgeStatusConnected):
		m, err := getMatchByPair(ctx, tx, pair)
		if err != nil && !errors.Is(err, domain.ErrMatchNotFound) {
			return "", nil, err
		}
		return domain.CommitAlreadyApplied, m, nil
	case a != string(domain.EdgeStatusPending) || b != string(domain.EdgeStatusPending):
		return domain.CommitConflict, nil, nil
	}

	now := r.now()
	update := tx.Rebind(`
		UPDATE edges SET status = ?, version = version + 1, updated_at = ?
		WHERE ((from_user = ? AND to_user = ?) OR (from_user = ? AND to_user = ?)) AND status = ?
	`)
	result, err := tx.ExecContext(ctx, update,
		string(domain.EdgeStatusConnected), toMillis(now),
		from, to, to, from,
		string(domain.EdgeStatusPending),
	)
	if err != nil {
		return "", nil, classify(ctx, "connect pair", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", nil, classify(ctx, "connect pair", err)
	}
	if affected != 2 {
		return domain.CommitConflict, nil, nil
	}

	m := domain.NewMatch(from, to, now)
	insert := tx.Rebind(`
		INSERT INTO matches (id, user1_id, user2_id, is_active, icebreakers, created_at)
		VALUES (?, ?, ?, ?, '[]', ?)
		ON CONFLICT (user1_id, user2_id) DO NOTHING
	`)
	if _, err := tx.ExecContext(ctx, insert, m.ID, m.User1ID, m.User2ID, m.IsActive, toMillis(now)); err != nil {
		return "", nil, classify(ctx, "insert match", err)
	}
	stored, err := getMatchByPair(ctx, tx, pair)
	if err != nil {
		return "", nil, err
	}

	if err := tx.Commit(); err != nil {
		return "", nil, classify(ctx, "commit transition", err)
	}
	return domain.CommitApplied, stored, nil
}

func (r *edgeRepository) ListDecidedUsers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.db.Rebind(`
		SELECT to_user FROM edges WHERE from_user = ?
		UNION
		SELECT from_user FROM edges WHERE to_user = ?
	`)
	if err := r.db.SelectContext(ctx, &ids, query, userID, userID); err != nil {
		return nil, classify(ctx, "list decided users", err)
	}
	return ids, nil
}

func (r *edgeRepository) lockClause() string {
	if r.db.DriverName() == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}
