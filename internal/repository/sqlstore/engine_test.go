package sqlstore_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/repository/sqlstore"
	"github.com/gdugdh24/swipematch/internal/usecase/match"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unlocked struct{}

func (unlocked) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type countingPublisher struct{ n atomic.Int32 }

func (p *countingPublisher) PublishMatch(context.Context, *domain.Match) error {
	p.n.Add(1)
	return nil
}

// The engine runs without a pair lock here, so the SQL transition alone has to keep
// concurrent mutual likes from matching twice.
func TestEngineOnSQLiteMatchesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	edges := sqlstore.NewEdgeRepository(db)
	profiles := sqlstore.NewProfileRepository(db)
	matches := sqlstore.NewMatchRepository(db)

	pub := &countingPublisher{}
	engine := match.NewEngine(edges, profiles, unlocked{}, pub,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		match.Options{MaxAttempts: 10, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	)

	a, b := uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{a, b} {
		require.NoError(t, profiles.Create(ctx, &domain.Profile{UserID: id, DisplayName: "user", IsOnboardingComplete: true}))
	}

	var wg sync.WaitGroup
	outcomes := make(chan domain.Outcome, 16)
	for i := 0; i < 8; i++ {
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.RecordInterest(ctx, from, to)
			if assert.NoError(t, err) {
				outcomes <- res.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	matched := 0
	for o := range outcomes {
		if o == domain.OutcomeMatched {
			matched++
		}
	}
	assert.Equal(t, 1, matched)
	assert.Equal(t, int32(1), pub.n.Load())

	state, err := engine.PairState(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, state.Connected())

	list, err := matches.GetUserMatches(ctx, a, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEngineOnSQLiteRejectionIsFinal(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	edges := sqlstore.NewEdgeRepository(db)
	engine := match.NewEngine(edges, nil, unlocked{}, nil, nil, match.Options{})
	a, b := uuid.New(), uuid.New()

	_, err := engine.RecordDisinterest(ctx, a, b)
	require.NoError(t, err)
	res, err := engine.RecordInterest(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNew, res.Outcome)

	_, err = engine.RecordInterest(ctx, a, b)
	assert.ErrorIs(t, err, domain.ErrReswipeForbidden)

	_, err = sqlstore.NewMatchRepository(db).GetByUsers(ctx, a, b)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
}
