// Package memory is an in-process implementation of the repositories. It backs the unit tests
// and single-binary demos, and lets tests inject interleavings and failures deterministically.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/repository"
	"github.com/google/uuid"
)

// Op names a store operation for hooks and fault injection.
type Op string

const (
	OpGetEdge       Op = "get_edge"
	OpGetPair       Op = "get_pair"
	OpUpsertEdge    Op = "upsert_edge"
	OpUpdateEdge    Op = "update_edge"
	OpTransition    Op = "transition"
	OpListDecided   Op = "list_decided"
	OpListMatches   Op = "list_matches"
	OpGetMatch      Op = "get_match"
	OpUpdateMatch   Op = "update_match"
	OpProfileExists Op = "profile_exists"
)

type edgeKey struct {
	from, to uuid.UUID
}

// Store keeps edges, matches and profiles behind a single mutex, so every method is atomic.
type Store struct {
	mu       sync.Mutex
	edges    map[edgeKey]domain.Edge
	matches  map[domain.Pair]domain.Match
	profiles map[uuid.UUID]domain.Profile
	now      func() time.Time

	hookMu sync.Mutex
	before map[Op]func(ctx context.Context, from, to uuid.UUID)
	faults map[Op][]error
}

var (
	_ repository.EdgeRepository    = (*Store)(nil)
	_ repository.MatchRepository   = (*Store)(nil)
	_ repository.ProfileRepository = (*Store)(nil)
)

type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		edges:    make(map[edgeKey]domain.Edge),
		matches:  make(map[domain.Pair]domain.Match),
		profiles: make(map[uuid.UUID]domain.Profile),
		now:      time.Now,
		before:   make(map[Op]func(ctx context.Context, from, to uuid.UUID)),
		faults:   make(map[Op][]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Before registers fn to run at the start of op, outside the store mutex. Tests use it to
// park one caller while another runs, or to write behind a caller's back.
func (s *Store) Before(op Op, fn func(ctx context.Context, from, to uuid.UUID)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.before[op] = fn
}

// FailNext makes the next call of op return err without touching any state.
func (s *Store) FailNext(op Op, err error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.faults[op] = append(s.faults[op], err)
}

func (s *Store) enter(ctx context.Context, op Op, from, to uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.hookMu.Lock()
	fn := s.before[op]
	var fault error
	if queued := s.faults[op]; len(queued) > 0 {
		fault = queued[0]
		s.faults[op] = queued[1:]
	}
	s.hookMu.Unlock()

	if fn != nil {
		fn(ctx, from, to)
	}
	if fault != nil {
		return fault
	}
	return ctx.Err()
}

// PutEdge writes an edge as is. Test setup only.
func (s *Store) PutEdge(edge domain.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[edgeKey{edge.FromUser, edge.ToUser}] = edge
}

// Edges returns a snapshot of every stored edge.
func (s *Store) Edges() []domain.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	return out
}

func (s *Store) GetEdge(ctx context.Context, from, to uuid.UUID) (*domain.Edge, error) {
	if err := s.enter(ctx, OpGetEdge, from, to); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[edgeKey{from, to}]
	if !ok {
		return nil, domain.ErrEdgeNotFound
	}
	return &edge, nil
}

func (s *Store) GetPair(ctx context.Context, from, to uuid.UUID) (*domain.PairState, error) {
	if err := s.enter(ctx, OpGetPair, from, to); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state := &domain.PairState{}
	if e, ok := s.edges[edgeKey{from, to}]; ok {
		state.Outgoing = &e
	}
	if e, ok := s.edges[edgeKey{to, from}]; ok {
		state.Incoming = &e
	}
	return state, nil
}

func (s *Store) UpsertEdgeIfAbsent(ctx context.Context, from, to uuid.UUID, status domain.EdgeStatus) (*domain.Edge, bool, error) {
	if err := s.enter(ctx, OpUpsertEdge, from, to); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{from, to}
	if edge, ok := s.edges[key]; ok {
		return &edge, false, nil
	}
	now := s.now()
	edge := domain.Edge{
		FromUser:  from,
		ToUser:    to,
		Status:    status,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.edges[key] = edge
	return &edge, true, nil
}

func (s *Store) UpdateEdgeStatus(ctx context.Context, edge *domain.Edge, status domain.EdgeStatus) (*domain.Edge, error) {
	if err := s.enter(ctx, OpUpdateEdge, edge.FromUser, edge.ToUser); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{edge.FromUser, edge.ToUser}
	stored, ok := s.edges[key]
	if !ok {
		return nil, domain.ErrEdgeNotFound
	}
	if stored.Version != edge.Version {
		return nil, domain.ErrVersionConflict
	}
	stored.Status = status
	stored.Version++
	stored.UpdatedAt = s.now()
	s.edges[key] = stored
	return &stored, nil
}

func (s *Store) TransitionPairToConnected(ctx context.Context, from, to uuid.UUID) (domain.CommitResult, *domain.Match, error) {
	if err := s.enter(ctx, OpTransition, from, to); err != nil {
		return "", nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out, okOut := s.edges[edgeKey{from, to}]
	in, okIn := s.edges[edgeKey{to, from}]
	if !okOut || !okIn {
		return domain.CommitConflict, nil, nil
	}
	pair := domain.NewPair(from, to)

	if out.Status == domain.EdgeStatusConnected && in.Status == domain.EdgeStatusConnected {
		m := s.matches[pair]
		return domain.CommitAlreadyApplied, &m, nil
	}
	if out.Status != domain.EdgeStatusPending || in.Status != domain.EdgeStatusPending {
		return domain.CommitConflict, nil, nil
	}

	now := s.now()
	for _, e := range []*domain.Edge{&out, &in} {
		e.Status = domain.EdgeStatusConnected
		e.Version++
		e.UpdatedAt = now
		s.edges[edgeKey{e.FromUser, e.ToUser}] = *e
	}
	m := *domain.NewMatch(from, to, now)
	s.matches[pair] = m
	return domain.CommitApplied, &m, nil
}

func (s *Store) ListDecidedUsers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if err := s.enter(ctx, OpListDecided, userID, uuid.Nil); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decidedLocked(userID), nil
}

func (s *Store) decidedLocked(userID uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for k := range s.edges {
		var other uuid.UUID
		switch userID {
		case k.from:
			other = k.to
		case k.to:
			other = k.from
		default:
			continue
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, other)
	}
	return out
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	if err := s.enter(ctx, OpGetMatch, id, uuid.Nil); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, domain.ErrMatchNotFound
}

func (s *Store) GetByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Match, error) {
	if err := s.enter(ctx, OpGetMatch, user1ID, user2ID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[domain.NewPair(user1ID, user2ID)]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	return &m, nil
}

func (s *Store) GetUserMatches(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Match, error) {
	if err := s.enter(ctx, OpListMatches, userID, uuid.Nil); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*domain.Match
	for _, m := range s.matches {
		if m.HasUser(userID) {
			m := m
			all = append(all, &m)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []*domain.Match{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) UpdateAIFields(ctx context.Context, matchID uuid.UUID, explanation string, icebreakers []string) error {
	if err := s.enter(ctx, OpUpdateMatch, matchID, uuid.Nil); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for pair, m := range s.matches {
		if m.ID == matchID {
			m.Explanation = &explanation
			m.Icebreakers = append([]string(nil), icebreakers...)
			s.matches[pair] = m
			return nil
		}
	}
	return domain.ErrMatchNotFound
}

func (s *Store) Create(ctx context.Context, profile *domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.UserID]; ok {
		return domain.ErrProfileExists
	}
	now := s.now()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	s.profiles[profile.UserID] = *profile
	return nil
}

func (s *Store) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (s *Store) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	if err := s.enter(ctx, OpProfileExists, userID, uuid.Nil); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.profiles[userID]
	return ok, nil
}

func (s *Store) ListCandidates(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	excluded := make(map[uuid.UUID]struct{})
	excluded[userID] = struct{}{}
	for _, id := range s.decidedLocked(userID) {
		excluded[id] = struct{}{}
	}

	var out []*domain.Profile
	for id, p := range s.profiles {
		if _, skip := excluded[id]; skip || !p.IsOnboardingComplete {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UserID.String() < out[j].UserID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
