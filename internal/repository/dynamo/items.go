package dynamo

import (
	"fmt"
	"sort"
	"time"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
)

// Single-table layout:
//
//	edge         PK=USER#<from>     SK=EDGE#<to>   GSI1PK=INCOMING#<to> GSI1SK=USER#<from>
//	profile      PK=USER#<id>       SK=PROFILE
//	match        PK=MATCH#<u1>:<u2> SK=MATCH
//	match by id  PK=MATCHID#<id>    SK=MATCH       (points at the pair)
const (
	attrPK     = "PK"
	attrSK     = "SK"
	attrGSI1PK = "GSI1PK"

	incomingIndex = "GSI1"

	skProfile = "PROFILE"
	skMatch   = "MATCH"

	entityEdge    = "edge"
	entityProfile = "profile"
	entityMatch   = "match"
)

func userPK(id uuid.UUID) string     { return "USER#" + id.String() }
func edgeSK(to uuid.UUID) string     { return "EDGE#" + to.String() }
func incomingPK(to uuid.UUID) string { return "INCOMING#" + to.String() }
func matchPK(p domain.Pair) string   { return "MATCH#" + p.Key() }
func matchIDPK(id uuid.UUID) string  { return "MATCHID#" + id.String() }

type edgeItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	GSI1PK    string `dynamodbav:"GSI1PK"`
	GSI1SK    string `dynamodbav:"GSI1SK"`
	Entity    string `dynamodbav:"entity"`
	FromUser  string `dynamodbav:"from_user"`
	ToUser    string `dynamodbav:"to_user"`
	Status    string `dynamodbav:"status"`
	Version   int64  `dynamodbav:"version"`
	CreatedAt int64  `dynamodbav:"created_at"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
}

func newEdgeItem(from, to uuid.UUID, status domain.EdgeStatus, now time.Time) edgeItem {
	return edgeItem{
		PK:        userPK(from),
		SK:        edgeSK(to),
		GSI1PK:    incomingPK(to),
		GSI1SK:    userPK(from),
		Entity:    entityEdge,
		FromUser:  from.String(),
		ToUser:    to.String(),
		Status:    string(status),
		Version:   1,
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}
}

func (it edgeItem) toDomain() (*domain.Edge, error) {
	from, err := uuid.Parse(it.FromUser)
	if err != nil {
		return nil, fmt.Errorf("invalid edge item %s/%s: %w", it.PK, it.SK, err)
	}
	to, err := uuid.Parse(it.ToUser)
	if err != nil {
		return nil, fmt.Errorf("invalid edge item %s/%s: %w", it.PK, it.SK, err)
	}
	return &domain.Edge{
		FromUser:  from,
		ToUser:    to,
		Status:    domain.EdgeStatus(it.Status),
		Version:   it.Version,
		CreatedAt: time.UnixMilli(it.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(it.UpdatedAt).UTC(),
	}, nil
}

type matchItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	Entity      string   `dynamodbav:"entity"`
	ID          string   `dynamodbav:"id"`
	User1ID     string   `dynamodbav:"user1_id"`
	User2ID     string   `dynamodbav:"user2_id"`
	IsActive    bool     `dynamodbav:"is_active"`
	Explanation *string  `dynamodbav:"match_explanation,omitempty"`
	Icebreakers []string `dynamodbav:"icebreakers"`
	CreatedAt   int64    `dynamodbav:"created_at"`
}

func newMatchItem(m *domain.Match) matchItem {
	return matchItem{
		PK:          matchPK(m.Pair()),
		SK:          skMatch,
		Entity:      entityMatch,
		ID:          m.ID.String(),
		User1ID:     m.User1ID.String(),
		User2ID:     m.User2ID.String(),
		IsActive:    m.IsActive,
		Explanation: m.Explanation,
		Icebreakers: append([]string{}, m.Icebreakers...),
		CreatedAt:   m.CreatedAt.UnixMilli(),
	}
}

func (it matchItem) toDomain() (*domain.Match, error) {
	var ids [3]uuid.UUID
	for i, raw := range []string{it.ID, it.User1ID, it.User2ID} {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid match item %s: %w", it.PK, err)
		}
		ids[i] = id
	}
	icebreakers := it.Icebreakers
	if icebreakers == nil {
		icebreakers = []string{}
	}
	return &domain.Match{
		ID:          ids[0],
		User1ID:     ids[1],
		User2ID:     ids[2],
		IsActive:    it.IsActive,
		Explanation: it.Explanation,
		Icebreakers: icebreakers,
		CreatedAt:   time.UnixMilli(it.CreatedAt).UTC(),
	}, nil
}

type matchPointerItem struct {
	PK      string `dynamodbav:"PK"`
	SK      string `dynamodbav:"SK"`
	User1ID string `dynamodbav:"user1_id"`
	User2ID string `dynamodbav:"user2_id"`
}

type profileItem struct {
	PK                   string   `dynamodbav:"PK"`
	SK                   string   `dynamodbav:"SK"`
	Entity               string   `dynamodbav:"entity"`
	UserID               string   `dynamodbav:"user_id"`
	DisplayName          string   `dynamodbav:"display_name"`
	Bio                  *string  `dynamodbav:"bio,omitempty"`
	City                 *string  `dynamodbav:"city,omitempty"`
	Interests            []string `dynamodbav:"interests"`
	IsOnboardingComplete bool     `dynamodbav:"is_onboarding_complete"`
	CreatedAt            int64    `dynamodbav:"created_at"`
	UpdatedAt            int64    `dynamodbav:"updated_at"`
}

func newProfileItem(p *domain.Profile) profileItem {
	return profileItem{
		PK:                   userPK(p.UserID),
		SK:                   skProfile,
		Entity:               entityProfile,
		UserID:               p.UserID.String(),
		DisplayName:          p.DisplayName,
		Bio:                  p.Bio,
		City:                 p.City,
		Interests:            append([]string{}, p.Interests...),
		IsOnboardingComplete: p.IsOnboardingComplete,
		CreatedAt:            p.CreatedAt.UnixMilli(),
		UpdatedAt:            p.UpdatedAt.UnixMilli(),
	}
}

func (it profileItem) toDomain() (*domain.Profile, error) {
	id, err := uuid.Parse(it.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid profile item %s: %w", it.PK, err)
	}
	interests := it.Interests
	if interests == nil {
		interests = []string{}
	}
	return &domain.Profile{
		UserID:               id,
		DisplayName:          it.DisplayName,
		Bio:                  it.Bio,
		City:                 it.City,
		Interests:            interests,
		IsOnboardingComplete: it.IsOnboardingComplete,
		CreatedAt:            time.UnixMilli(it.CreatedAt).UTC(),
		UpdatedAt:            time.UnixMilli(it.UpdatedAt).UTC(),
	}, nil
}

func sortMatchesNewestFirst(matches []*domain.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID.String() < matches[j].ID.String()
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
}
