package match_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/infrastructure/lock"
	"github.com/gdugdh24/swipematch/internal/repository/memory"
	"github.com/gdugdh24/swipematch/internal/usecase/match"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	matches []domain.Match
	onSend  func(m *domain.Match)
}

func (p *recordingPublisher) PublishMatch(_ context.Context, m *domain.Match) error {
	if p.onSend != nil {
		p.onSend(m)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matches = append(p.matches, *m)
	return nil
}

func (p *recordingPublisher) published() []domain.Match {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Match(nil), p.matches...)
}

// noLock lets every caller through, leaving the store transition as the only guard.
type noLock struct{}

func (noLock) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type fixture struct {
	store  *memory.Store
	locks  match.Locker
	pub    *recordingPublisher
	engine *match.Engine
}

func newFixture(t *testing.T, opts match.Options, setup ...func(*fixture)) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		locks: lock.NewLocal(),
		pub:   &recordingPublisher{},
	}
	for _, fn := range setup {
		fn(f)
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 5
	}
	opts.InitialBackoff = time.Millisecond
	opts.MaxBackoff = 2 * time.Millisecond
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.engine = match.NewEngine(f.store, f.store, f.locks, f.pub, logger, opts)
	return f
}

func (f *fixture) users(t *testing.T, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, f.store.Create(context.Background(), &domain.Profile{
			UserID:               ids[i],
			DisplayName:          "user",
			IsOnboardingComplete: true,
		}))
	}
	return ids
}

func (f *fixture) state(t *testing.T, a, b uuid.UUID) *domain.PairState {
	t.Helper()
	st, err := f.engine.PairState(context.Background(), a, b)
	require.NoError(t, err)
	return st
}

func TestInterestWithoutReciprocalIsPending(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 2)

	res, err := f.engine.RecordInterest(context.Background(), u[0], u[1])
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNew, res.Outcome)
	assert.Equal(t, domain.EdgeStatusPending, res.Edge.Status)
	assert.Nil(t, res.Match)

	st := f.state(t, u[0], u[1])
	assert.True(t, st.Outgoing.IsPending())
	assert.Nil(t, st.Incoming)
	assert.Empty(t, f.pub.published())
}

func TestMutualInterestConnectsPair(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 2)
	ctx := context.Background()

	_, err := f.engine.RecordInterest(ctx, u[0], u[1])
	require.NoError(t, err)
	res, err := f.engine.RecordInterest(ctx, u[1], u[0])
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeMatched, res.Outcome)
	require.NotNil(t, res.Match)
	assert.Equal(t, domain.NewPair(u[0], u[1]), res.Match.Pair())
	assert.Equal(t, domain.EdgeStatusConnected, res.Edge.Status)

	st := f.state(t, u[0], u[1])
	assert.True(t, st.Connected())

	published := f.pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, res.Match.ID, published[0].ID)
}

func TestRepeatedActionsAreIdempotent(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 2)
	ctx := context.Background()

	first, err := f.engine.RecordInterest(ctx, u[0], u[1])
	require.NoError(t, err)
	again, err := f.engine.RecordInterest(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNew, again.Outcome)
	assert.Equal(t, first.Edge.Version, again.Edge.Version)

	matched, err := f.engine.RecordInterest(ctx, u[1], u[0])
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeMatched, matched.Outcome)

	for _, dir := range [][2]uuid.UUID{{u[0], u[1]}, {u[1], u[0]}} {
		res, err := f.engine.RecordInterest(ctx, dir[0], dir[1])
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeAlreadyMatched, res.Outcome)
	}
	assert.Len(t, f.pub.published(), 1)

	matches, err := f.store.GetUserMatches(ctx, u[0], 10, 0)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestOrderDoesNotMatter(t *testing.T) {
	final := func(first, second int) (domain.EdgeStatus, domain.EdgeStatus, int) {
		f := newFixture(t, match.Options{})
		u := f.users(t, 2)
		ctx := context.Background()
		_, err := f.engine.RecordInterest(ctx, u[first], u[1-first])
		require.NoError(t, err)
		_, err = f.engine.RecordInterest(ctx, u[second], u[1-second])
		require.NoError(t, err)
		st := f.state(t, u[0], u[1])
		return st.Outgoing.Status, st.Incoming.Status, len(f.pub.published())
	}

	a1, b1, n1 := final(0, 1)
	a2, b2, n2 := final(1, 0)
	assert.Equal(t, []any{a1, b1, n1}, []any{a2, b2, n2})
	assert.Equal(t, domain.EdgeStatusConnected, a1)
	assert.Equal(t, 1, n1)
}

func TestDisinterest(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 2)
	ctx := context.Background()

	res, err := f.engine.RecordDisinterest(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, res.Outcome)

	again, err := f.engine.RecordDisinterest(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, again.Outcome)
	assert.Equal(t, res.Edge.Version, again.Edge.Version)

	// The other side can still like, but no match forms.
	liked, err := f.engine.RecordInterest(ctx, u[1], u[0])
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNew, liked.Outcome)

	st := f.state(t, u[0], u[1])
	assert.True(t, st.Outgoing.IsRejected())
	assert.True(t, st.Incoming.IsPending())
	assert.Empty(t, f.pub.published())
}

func TestDisinterestRejectsPendingEdge(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 2)
	ctx := context.Background()

	_, err := f.engine.RecordInterest(ctx, u[0], u[1])
	require.NoError(t, err)
	res, err := f.engine.RecordDisinterest(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, res.Outcome)
	assert.Equal(t, int64(2), res.Edge.Version)

	_, err = f.engine.RecordInterest(ctx, u[1], u[0])
	require.NoError(t, err)
	assert.Empty(t, f.pub.published())
}

func TestDisinterestNeverSplitsMatch(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 2)
	ctx := context.Background()

	_, err := f.engine.RecordInterest(ctx, u[0], u[1])
	require.NoError(t, err)
	_, err = f.engine.RecordInterest(ctx, u[1], u[0])
	require.NoError(t, err)

	res, err := f.engine.RecordDisinterest(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyMatched, res.Outcome)
	assert.True(t, f.state(t, u[0], u[1]).Connected())
}

func TestReswipePolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("forbid", func(t *testing.T) {
		f := newFixture(t, match.Options{ReswipePolicy: match.ReswipeForbid})
		u := f.users(t, 2)
		_, err := f.engine.RecordDisinterest(ctx, u[0], u[1])
		require.NoError(t, err)

		_, err = f.engine.RecordInterest(ctx, u[0], u[1])
		assert.ErrorIs(t, err, domain.ErrReswipeForbidden)
		assert.True(t, domain.IsValidation(err))
		assert.True(t, f.state(t, u[0], u[1]).Outgoing.IsRejected())
	})

	t.Run("allow", func(t *testing.T) {
		f := newFixture(t, match.Options{ReswipePolicy: match.ReswipeAllow})
		u := f.users(t, 2)
		_, err := f.engine.RecordInterest(ctx, u[1], u[0])
		require.NoError(t, err)
		_, err = f.engine.RecordDisinterest(ctx, u[0], u[1])
		require.NoError(t, err)

		res, err := f.engine.RecordInterest(ctx, u[0], u[1])
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeMatched, res.Outcome)
		assert.Len(t, f.pub.published(), 1)
	})

	t.Run("cooldown", func(t *testing.T) {
		now := time.Now()
		f := newFixture(t, match.Options{
			ReswipePolicy:   match.ReswipeCooldown,
			ReswipeCooldown: time.Hour,
			Now:             func() time.Time { return now },
		})
		u := f.users(t, 2)
		_, err := f.engine.RecordDisinterest(ctx, u[0], u[1])
		require.NoError(t, err)

		_, err = f.engine.RecordInterest(ctx, u[0], u[1])
		assert.ErrorIs(t, err, domain.ErrReswipeCooldown)

		now = now.Add(2 * time.Hour)
		res, err := f.engine.RecordInterest(ctx, u[0], u[1])
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeNew, res.Outcome)
		assert.True(t, res.Edge.IsPending())
	})
}

func TestValidation(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 1)
	ctx := context.Background()

	_, err := f.engine.RecordInterest(ctx, u[0], u[0])
	assert.ErrorIs(t, err, domain.ErrCannotSwipeSelf)

	_, err = f.engine.RecordDisinterest(ctx, uuid.Nil, u[0])
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)

	_, err = f.engine.RecordInterest(ctx, u[0], uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.engine.PairState(ctx, u[0], u[0])
	assert.ErrorIs(t, err, domain.ErrCannotSwipeSelf)

	assert.Empty(t, f.store.Edges())
}

func TestConcurrentMutualInterestMatchesExactlyOnce(t *testing.T) {
	for name, locker := range map[string]match.Locker{"pair lock": lock.NewLocal(), "store only": noLock{}} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, match.Options{MaxAttempts: 20}, func(f *fixture) { f.locks = locker })
			const pairs = 25
			u := f.users(t, pairs*2)
			ctx := context.Background()

			var wg sync.WaitGroup
			for i := 0; i < pairs; i++ {
				a, b := u[2*i], u[2*i+1]
				for r := 0; r < 4; r++ {
					wg.Add(2)
					go func() {
						defer wg.Done()
						_, err := f.engine.RecordInterest(ctx, a, b)
						assert.NoError(t, err)
					}()
					go func() {
						defer wg.Done()
						_, err := f.engine.RecordInterest(ctx, b, a)
						assert.NoError(t, err)
					}()
				}
			}
			wg.Wait()

			published := f.pub.published()
			assert.Len(t, published, pairs)
			seen := make(map[domain.Pair]bool)
			for _, m := range published {
				assert.False(t, seen[m.Pair()], "pair published twice")
				seen[m.Pair()] = true
			}
			for i := 0; i < pairs; i++ {
				assert.True(t, f.state(t, u[2*i], u[2*i+1]).Connected())
			}
		})
	}
}

func TestPairChangedDuringTransitionIsRetried(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 2)
	ctx := context.Background()

	_, err := f.engine.RecordInterest(ctx, u[1], u[0])
	require.NoError(t, err)

	var once sync.Once
	f.store.Before(memory.OpTransition, func(context.Context, uuid.UUID, uuid.UUID) {
		once.Do(func() {
			edge, err := f.store.GetEdge(ctx, u[1], u[0])
			require.NoError(t, err)
			edge.Status = domain.EdgeStatusRejected
			edge.Version++
			f.store.PutEdge(*edge)
		})
	})

	res, err := f.engine.RecordInterest(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNew, res.Outcome)
	assert.Empty(t, f.pub.published())
}

func TestSustainedConflictExhaustsRetries(t *testing.T) {
	f := newFixture(t, match.Options{MaxAttempts: 3})
	u := f.users(t, 2)
	ctx := context.Background()

	_, err := f.engine.RecordInterest(ctx, u[1], u[0])
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		f.store.FailNext(memory.OpTransition, domain.ErrVersionConflict)
	}

	_, err = f.engine.RecordInterest(ctx, u[0], u[1])
	assert.ErrorIs(t, err, domain.ErrConflictExhausted)
	assert.True(t, domain.IsRetryable(err))

	res, err := f.engine.RecordInterest(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMatched, res.Outcome)
}

func TestTransientFailureIsRetried(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 2)
	ctx := context.Background()

	_, err := f.engine.RecordInterest(ctx, u[1], u[0])
	require.NoError(t, err)
	f.store.FailNext(memory.OpGetEdge, domain.Transient(errors.New("connection reset")))
	f.store.FailNext(memory.OpTransition, domain.Transient(errors.New("connection reset")))

	res, err := f.engine.RecordInterest(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMatched, res.Outcome)
	assert.Len(t, f.pub.published(), 1)
}

func TestFailedTransitionLeavesNoHalfMatch(t *testing.T) {
	f := newFixture(t, match.Options{MaxAttempts: 1})
	u := f.users(t, 2)
	ctx := context.Background()

	_, err := f.engine.RecordInterest(ctx, u[1], u[0])
	require.NoError(t, err)
	f.store.FailNext(memory.OpTransition, domain.Transient(errors.New("store unavailable")))

	_, err = f.engine.RecordInterest(ctx, u[0], u[1])
	require.ErrorIs(t, err, domain.ErrTransientStore)

	st := f.state(t, u[0], u[1])
	assert.True(t, st.Outgoing.IsPending())
	assert.True(t, st.Incoming.IsPending())
	_, err = f.store.GetByUsers(ctx, u[0], u[1])
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
	assert.Empty(t, f.pub.published())

	res, err := f.engine.RecordInterest(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMatched, res.Outcome)
}

func TestValidationErrorsAreNotRetried(t *testing.T) {
	f := newFixture(t, match.Options{MaxAttempts: 5})
	u := f.users(t, 2)
	ctx := context.Background()

	_, err := f.engine.RecordDisinterest(ctx, u[0], u[1])
	require.NoError(t, err)

	calls := 0
	f.store.Before(memory.OpUpsertEdge, func(context.Context, uuid.UUID, uuid.UUID) { calls++ })
	_, err = f.engine.RecordInterest(ctx, u[0], u[1])
	assert.ErrorIs(t, err, domain.ErrReswipeForbidden)
	assert.Equal(t, 1, calls)
}

func TestLockTimeout(t *testing.T) {
	f := newFixture(t, match.Options{LockTimeout: 20 * time.Millisecond})
	u := f.users(t, 2)
	ctx := context.Background()

	unlock, err := f.locks.Lock(ctx, domain.NewPair(u[0], u[1]).Key())
	require.NoError(t, err)
	defer unlock()

	start := time.Now()
	_, err = f.engine.RecordInterest(ctx, u[0], u[1])
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.True(t, domain.IsRetryable(err))
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, f.store.Edges())
}

func TestCanceledContext(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.engine.RecordInterest(ctx, u[0], u[1])
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublishRunsAfterPairLockIsReleased(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 2)
	ctx := context.Background()

	var lockErr error
	f.pub.onSend = func(m *domain.Match) {
		lctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		unlock, err := f.locks.Lock(lctx, m.Pair().Key())
		lockErr = err
		if err == nil {
			unlock()
		}
	}

	_, err := f.engine.RecordInterest(ctx, u[0], u[1])
	require.NoError(t, err)
	_, err = f.engine.RecordInterest(ctx, u[1], u[0])
	require.NoError(t, err)

	require.Len(t, f.pub.published(), 1)
	assert.NoError(t, lockErr)
}

func TestPairStateNeverShowsHalfMatch(t *testing.T) {
	f := newFixture(t, match.Options{})
	u := f.users(t, 2)
	ctx := context.Background()

	_, err := f.engine.RecordInterest(ctx, u[0], u[1])
	require.NoError(t, err)

	// The match completes while the pair is being read.
	var once sync.Once
	f.store.Before(memory.OpGetPair, func(context.Context, uuid.UUID, uuid.UUID) {
		once.Do(func() {
			res, err := f.engine.RecordInterest(ctx, u[1], u[0])
			require.NoError(t, err)
			require.Equal(t, domain.OutcomeMatched, res.Outcome)
		})
	})

	st := f.state(t, u[0], u[1])
	require.NotNil(t, st.Outgoing)
	require.NotNil(t, st.Incoming)
	assert.Equal(t, st.Outgoing.Status, st.Incoming.Status, "both directions must come from one snapshot")
	assert.True(t, st.Connected())
}

func TestParseReswipePolicy(t *testing.T) {
	p, err := match.ParseReswipePolicy("")
	require.NoError(t, err)
	assert.Equal(t, match.ReswipeForbid, p)

	p, err = match.ParseReswipePolicy("cooldown")
	require.NoError(t, err)
	assert.Equal(t, match.ReswipeCooldown, p)

	_, err = match.ParseReswipePolicy("sometimes")
	assert.Error(t, err)
}
