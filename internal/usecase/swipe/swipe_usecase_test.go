package swipe_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/infrastructure/lock"
	"github.com/gdugdh24/swipematch/internal/repository/memory"
	"github.com/gdugdh24/swipematch/internal/usecase/match"
	"github.com/gdugdh24/swipematch/internal/usecase/swipe"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*swipe.SwipeUseCase, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := match.NewEngine(store, store, lock.NewLocal(), nil, logger, match.Options{})
	return swipe.NewSwipeUseCase(engine, store, store), store
}

func createUser(t *testing.T, store *memory.Store, name string) uuid.UUID {
	t.Helper()
	city := "Yakutsk"
	p := &domain.Profile{UserID: uuid.New(), DisplayName: name, City: &city, IsOnboardingComplete: true}
	require.NoError(t, store.Create(context.Background(), p))
	return p.UserID
}

func like(v bool) *bool { return &v }

func TestCreateSwipeReportsExistingMatch(t *testing.T) {
	uc, store := setup(t)
	ctx := context.Background()
	alice, bob := createUser(t, store, "Alice"), createUser(t, store, "Bob")

	_, err := uc.CreateSwipe(ctx, alice, &swipe.SwipeRequest{TargetUserID: bob, IsLike: like(true)})
	require.NoError(t, err)
	matched, err := uc.CreateSwipe(ctx, bob, &swipe.SwipeRequest{TargetUserID: alice, IsLike: like(true)})
	require.NoError(t, err)
	require.True(t, matched.IsMatch)

	again, err := uc.CreateSwipe(ctx, alice, &swipe.SwipeRequest{TargetUserID: bob, IsLike: like(true)})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyMatched, again.Outcome)
	assert.True(t, again.IsMatch)
	require.NotNil(t, again.Match)
	assert.Equal(t, matched.Match.ID, again.Match.ID)
	require.NotNil(t, again.MatchedUser)
	assert.Equal(t, "Bob", again.MatchedUser.DisplayName)
}

func TestCreateSwipePass(t *testing.T) {
	uc, store := setup(t)
	alice, bob := createUser(t, store, "Alice"), createUser(t, store, "Bob")

	resp, err := uc.CreateSwipe(context.Background(), alice, &swipe.SwipeRequest{TargetUserID: bob, IsLike: like(false)})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, resp.Outcome)
	assert.False(t, resp.IsMatch)
	assert.Nil(t, resp.MatchedUser)
}

func TestCreateSwipeRequiresDecision(t *testing.T) {
	uc, store := setup(t)
	alice, bob := createUser(t, store, "Alice"), createUser(t, store, "Bob")

	_, err := uc.CreateSwipe(context.Background(), alice, &swipe.SwipeRequest{TargetUserID: bob})
	assert.True(t, domain.IsValidation(err))
}

func TestGetMatchesClampsPaging(t *testing.T) {
	uc, store := setup(t)
	ctx := context.Background()
	me := createUser(t, store, "me")

	for i := 0; i < 3; i++ {
		other := createUser(t, store, "other")
		_, err := uc.CreateSwipe(ctx, me, &swipe.SwipeRequest{TargetUserID: other, IsLike: like(true)})
		require.NoError(t, err)
		_, err = uc.CreateSwipe(ctx, other, &swipe.SwipeRequest{TargetUserID: me, IsLike: like(true)})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	all, err := uc.GetMatches(ctx, me, 0, -5)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, !all[0].Match.CreatedAt.Before(all[1].Match.CreatedAt))
	for _, m := range all {
		require.NotNil(t, m.User)
		assert.Equal(t, "other", m.User.DisplayName)
	}

	page, err := uc.GetMatches(ctx, me, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, all[1].Match.ID, page[0].Match.ID)
}
