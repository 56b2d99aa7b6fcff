package domain

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Pair is the unordered combination of two users, stored in canonical order (User1 < User2).
type Pair struct {
	User1 uuid.UUID
	User2 uuid.UUID
}

// NewPair orders a and b canonically.
func NewPair(a, b uuid.UUID) Pair {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return Pair{User1: a, User2: b}
}

// Key is a stable identifier for the pair, the same for (a, b) and (b, a).
func (p Pair) Key() string {
	return fmt.Sprintf("%s:%s", p.User1, p.User2)
}

func (p Pair) Has(userID uuid.UUID) bool {
	return p.User1 == userID || p.User2 == userID
}

// ValidatePair checks the identifiers of a directional action.
func ValidatePair(from, to uuid.UUID) error {
	if from == uuid.Nil || to == uuid.Nil {
		return ErrInvalidUserID
	}
	if from == to {
		return ErrCannotSwipeSelf
	}
	return nil
}
