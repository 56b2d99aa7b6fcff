package domain

import (
	"time"

	"github.com/google/uuid"
)

// EdgeStatus is the verdict one user has given another.
type EdgeStatus string

const (
	EdgeStatusPending   EdgeStatus = "pending"
	EdgeStatusRejected  EdgeStatus = "rejected"
	EdgeStatusConnected EdgeStatus = "connected"
)

// Valid reports whether s is one of the known statuses.
func (s EdgeStatus) Valid() bool {
	switch s {
	case EdgeStatusPending, EdgeStatusRejected, EdgeStatusConnected:
		return true
	}
	return false
}

// Edge is a directional interest record from one user to another.
// Version grows by one on every status change and is used for compare-and-swap writes.
type Edge struct {
	FromUser  uuid.UUID  `json:"from_user_id"`
	ToUser    uuid.UUID  `json:"to_user_id"`
	Status    EdgeStatus `json:"status"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (e *Edge) IsConnected() bool {
	return e != nil && e.Status == EdgeStatusConnected
}

func (e *Edge) IsPending() bool {
	return e != nil && e.Status == EdgeStatusPending
}

func (e *Edge) IsRejected() bool {
	return e != nil && e.Status == EdgeStatusRejected
}

// CommitResult is the outcome of an atomic pair transition.
type CommitResult string

const (
	CommitApplied        CommitResult = "applied"
	CommitAlreadyApplied CommitResult = "already_applied"
	CommitConflict       CommitResult = "conflict"
)

// Outcome is what a caller learns about its interest or disinterest action.
type Outcome string

const (
	OutcomeNew            Outcome = "new"
	OutcomeMatched        Outcome = "matched"
	OutcomeAlreadyMatched Outcome = "already_matched"
	OutcomeRejected       Outcome = "rejected"
)

// PairState holds both directional edges of a pair. Either side may be nil.
type PairState struct {
	Outgoing *Edge `json:"outgoing"`
	Incoming *Edge `json:"incoming"`
}

// Connected reports whether the pair is a match.
func (p PairState) Connected() bool {
	return p.Outgoing.IsConnected() && p.Incoming.IsConnected()
}
