package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/repository/memory"
	"github.com/gdugdh24/swipematch/internal/usecase/feed"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCandidatesExcludesDecidedPairs(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewStore(memory.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))

	create := func(name string, onboarded bool) uuid.UUID {
		p := &domain.Profile{UserID: uuid.New(), DisplayName: name, IsOnboardingComplete: onboarded}
		require.NoError(t, store.Create(ctx, p))
		return p.UserID
	}
	me := create("me", true)
	older := create("older", true)
	liked := create("liked", true)
	likedMe := create("liked-me", true)
	create("draft", false)
	newer := create("newer", true)

	_, _, err := store.UpsertEdgeIfAbsent(ctx, me, liked, domain.EdgeStatusPending)
	require.NoError(t, err)
	_, _, err = store.UpsertEdgeIfAbsent(ctx, likedMe, me, domain.EdgeStatusRejected)
	require.NoError(t, err)

	uc := feed.NewFeedUseCase(store)
	got, err := uc.NextCandidates(ctx, me, 0)
	require.NoError(t, err)

	var ids []uuid.UUID
	for _, c := range got {
		ids = append(ids, c.UserID)
	}
	assert.Equal(t, []uuid.UUID{newer, older}, ids)

	got, err = uc.NextCandidates(ctx, me, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "newer", got[0].DisplayName)
}

func TestNextCandidatesRejectsNilUser(t *testing.T) {
	uc := feed.NewFeedUseCase(memory.NewStore())
	_, err := uc.NextCandidates(context.Background(), uuid.Nil, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
