package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/infrastructure/database"
	"github.com/gdugdh24/swipematch/internal/repository/sqlstore"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "swipematch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.Migrate(context.Background(), db)
	require.NoError(t, err)
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	applied, err := database.Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestUpsertEdgeIfAbsent(t *testing.T) {
	ctx := context.Background()
	edges := sqlstore.NewEdgeRepository(openTestDB(t))
	a, b := uuid.New(), uuid.New()

	edge, created, err := edges.UpsertEdgeIfAbsent(ctx, a, b, domain.EdgeStatusPending)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.EdgeStatusPending, edge.Status)
	assert.Equal(t, int64(1), edge.Version)

	again, created, err := edges.UpsertEdgeIfAbsent(ctx, a, b, domain.EdgeStatusRejected)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.EdgeStatusPending, again.Status)

	_, err = edges.GetEdge(ctx, b, a)
	assert.ErrorIs(t, err, domain.ErrEdgeNotFound)
}

func TestGetPair(t *testing.T) {
	ctx := context.Background()
	edges := sqlstore.NewEdgeRepository(openTestDB(t))
	a, b := uuid.New(), uuid.New()

	state, err := edges.GetPair(ctx, a, b)
	require.NoError(t, err)
	assert.Nil(t, state.Outgoing)
	assert.Nil(t, state.Incoming)

	_, _, err = edges.UpsertEdgeIfAbsent(ctx, b, a, domain.EdgeStatusPending)
	require.NoError(t, err)
	state, err = edges.GetPair(ctx, a, b)
	require.NoError(t, err)
	assert.Nil(t, state.Outgoing)
	require.NotNil(t, state.Incoming)
	assert.Equal(t, b, state.Incoming.FromUser)

	_, _, err = edges.UpsertEdgeIfAbsent(ctx, a, b, domain.EdgeStatusPending)
	require.NoError(t, err)
	result, _, err := edges.TransitionPairToConnected(ctx, a, b)
	require.NoError(t, err)
	require.Equal(t, domain.CommitApplied, result)

	state, err = edges.GetPair(ctx, b, a)
	require.NoError(t, err)
	require.NotNil(t, state.Outgoing)
	assert.Equal(t, b, state.Outgoing.FromUser)
	assert.True(t, state.Connected())
}

func TestUpdateEdgeStatusComparesVersion(t *testing.T) {
	ctx := context.Background()
	edges := sqlstore.NewEdgeRepository(openTestDB(t))
	a, b := uuid.New(), uuid.New()

	edge, _, err := edges.UpsertEdgeIfAbsent(ctx, a, b, domain.EdgeStatusPending)
	require.NoError(t, err)

	updated, err := edges.UpdateEdgeStatus(ctx, edge, domain.EdgeStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, domain.EdgeStatusRejected, updated.Status)
	assert.Equal(t, int64(2), updated.Version)

	_, err = edges.UpdateEdgeStatus(ctx, edge, domain.EdgeStatusPending)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	missing := &domain.Edge{FromUser: b, ToUser: a, Version: 1}
	_, err = edges.UpdateEdgeStatus(ctx, missing, domain.EdgeStatusPending)
	assert.ErrorIs(t, err, domain.ErrEdgeNotFound)
}

func TestTransitionPairToConnected(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	edges := sqlstore.NewEdgeRepository(db)
	matches := sqlstore.NewMatchRepository(db)
	a, b := uuid.New(), uuid.New()

	_, _, err := edges.UpsertEdgeIfAbsent(ctx, a, b, domain.EdgeStatusPending)
	require.NoError(t, err)

	result, m, err := edges.TransitionPairToConnected(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, domain.CommitConflict, result)
	assert.Nil(t, m)

	_, _, err = edges.UpsertEdgeIfAbsent(ctx, b, a, domain.EdgeStatusPending)
	require.NoError(t, err)

	result, m, err = edges.TransitionPairToConnected(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, domain.CommitApplied, result)
	require.NotNil(t, m)
	assert.Equal(t, domain.NewPair(a, b), m.Pair())

	for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
		edge, err := edges.GetEdge(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, domain.EdgeStatusConnected, edge.Status)
		assert.Equal(t, int64(2), edge.Version)
	}

	result, again, err := edges.TransitionPairToConnected(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, domain.CommitAlreadyApplied, result)
	require.NotNil(t, again)
	assert.Equal(t, m.ID, again.ID)

	stored, err := matches.GetByUsers(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, m.ID, stored.ID)
}

func TestTransitionRefusesRejectedEdge(t *testing.T) {
	ctx := context.Background()
	edges := sqlstore.NewEdgeRepository(openTestDB(t))
	a, b := uuid.New(), uuid.New()

	_, _, err := edges.UpsertEdgeIfAbsent(ctx, a, b, domain.EdgeStatusPending)
	require.NoError(t, err)
	_, _, err = edges.UpsertEdgeIfAbsent(ctx, b, a, domain.EdgeStatusRejected)
	require.NoError(t, err)

	result, _, err := edges.TransitionPairToConnected(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, domain.CommitConflict, result)

	edge, err := edges.GetEdge(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, domain.EdgeStatusPending, edge.Status)
}

func TestListDecidedUsers(t *testing.T) {
	ctx := context.Background()
	edges := sqlstore.NewEdgeRepository(openTestDB(t))
	me, liked, likedMe, stranger := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	_, _, err := edges.UpsertEdgeIfAbsent(ctx, me, liked, domain.EdgeStatusPending)
	require.NoError(t, err)
	_, _, err = edges.UpsertEdgeIfAbsent(ctx, likedMe, me, domain.EdgeStatusPending)
	require.NoError(t, err)
	_, _, err = edges.UpsertEdgeIfAbsent(ctx, stranger, liked, domain.EdgeStatusRejected)
	require.NoError(t, err)

	ids, err := edges.ListDecidedUsers(ctx, me)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{liked, likedMe}, ids)
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	profiles := sqlstore.NewProfileRepository(db)
	edges := sqlstore.NewEdgeRepository(db)

	city := "Yakutsk"
	me := &domain.Profile{UserID: uuid.New(), DisplayName: "me", City: &city, Interests: []string{"chess", "hiking"}, IsOnboardingComplete: true}
	require.NoError(t, profiles.Create(ctx, me))
	assert.ErrorIs(t, profiles.Create(ctx, me), domain.ErrProfileExists)

	got, err := profiles.GetByUserID(ctx, me.UserID)
	require.NoError(t, err)
	assert.Equal(t, "me", got.DisplayName)
	assert.Equal(t, []string{"chess", "hiking"}, got.Interests)
	require.NotNil(t, got.City)
	assert.Equal(t, city, *got.City)
	assert.Nil(t, got.Bio)

	ok, err := profiles.Exists(ctx, me.UserID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = profiles.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = profiles.GetByUserID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	fresh := &domain.Profile{UserID: uuid.New(), DisplayName: "fresh", IsOnboardingComplete: true}
	seen := &domain.Profile{UserID: uuid.New(), DisplayName: "seen", IsOnboardingComplete: true}
	draft := &domain.Profile{UserID: uuid.New(), DisplayName: "draft"}
	for _, p := range []*domain.Profile{fresh, seen, draft} {
		require.NoError(t, profiles.Create(ctx, p))
	}
	_, _, err = edges.UpsertEdgeIfAbsent(ctx, seen.UserID, me.UserID, domain.EdgeStatusRejected)
	require.NoError(t, err)

	candidates, err := profiles.ListCandidates(ctx, me.UserID, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, fresh.UserID, candidates[0].UserID)
}

func TestMatches(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	edges := sqlstore.NewEdgeRepository(db)
	matches := sqlstore.NewMatchRepository(db)
	me := uuid.New()

	connect := func(other uuid.UUID) *domain.Match {
		_, _, err := edges.UpsertEdgeIfAbsent(ctx, me, other, domain.EdgeStatusPending)
		require.NoError(t, err)
		_, _, err = edges.UpsertEdgeIfAbsent(ctx, other, me, domain.EdgeStatusPending)
		require.NoError(t, err)
		_, m, err := edges.TransitionPairToConnected(ctx, me, other)
		require.NoError(t, err)
		return m
	}
	first := connect(uuid.New())
	connect(uuid.New())

	list, err := matches.GetUserMatches(ctx, me, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = matches.GetUserMatches(ctx, me, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, matches.UpdateAIFields(ctx, first.ID, "both like chess", []string{"e4 or d4?"}))
	got, err := matches.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Explanation)
	assert.Equal(t, "both like chess", *got.Explanation)
	assert.Equal(t, []string{"e4 or d4?"}, got.Icebreakers)

	assert.ErrorIs(t, matches.UpdateAIFields(ctx, uuid.New(), "x", nil), domain.ErrMatchNotFound)
	_, err = matches.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
}
