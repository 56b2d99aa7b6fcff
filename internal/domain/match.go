package domain

import (
	"time"

	"github.com/google/uuid"
)

// Match is the durable record of a connected pair. User1ID < User2ID always holds.
type Match struct {
	ID          uuid.UUID `json:"id"`
	User1ID     uuid.UUID `json:"user1_id"`
	User2ID     uuid.UUID `json:"user2_id"`
	IsActive    bool      `json:"is_active"`
	Explanation *string   `json:"explanation"`
	Icebreakers []string  `json:"icebreakers"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewMatch builds a match record for the pair formed by a and b.
func NewMatch(a, b uuid.UUID, now time.Time) *Match {
	pair := NewPair(a, b)
	return &Match{
		ID:        uuid.New(),
		User1ID:   pair.User1,
		User2ID:   pair.User2,
		IsActive:  true,
		CreatedAt: now,
	}
}

func (m *Match) Pair() Pair {
	return Pair{User1: m.User1ID, User2: m.User2ID}
}

func (m *Match) HasUser(userID uuid.UUID) bool {
	return m.User1ID == userID || m.User2ID == userID
}

func (m *Match) GetOtherUserID(userID uuid.UUID) (uuid.UUID, bool) {
	if m.User1ID == userID {
		return m.User2ID, true
	}
	if m.User2ID == userID {
		return m.User1ID, true
	}
	return uuid.Nil, false
}
