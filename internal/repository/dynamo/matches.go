package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
)

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	pair, err := s.pairForMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.GetByUsers(ctx, pair.User1, pair.User2)
}

func (s *Store) GetByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Match, error) {
	item, err := s.getItem(ctx, matchPK(domain.NewPair(user1ID, user2ID)), skMatch)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrMatchNotFound
	}
	var it matchItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}
	return it.toDomain()
}

// GetUserMatches follows the user's connected outgoing edges; every connected edge has a
// match record.
func (s *Store) GetUserMatches(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Match, error) {
	edges, err := s.queryEdges(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(s.table),
		KeyConditionExpression:   aws.String("PK = :pk AND begins_with(SK, :edge)"),
		FilterExpression:         aws.String("#status = :connected"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":        &types.AttributeValueMemberS{Value: userPK(userID)},
			":edge":      &types.AttributeValueMemberS{Value: "EDGE#"},
			":connected": &types.AttributeValueMemberS{Value: string(domain.EdgeStatusConnected)},
		},
	})
	if err != nil {
		return nil, err
	}

	matches := make([]*domain.Match, 0, len(edges))
	for _, e := range edges {
		m, err := s.GetByUsers(ctx, e.FromUser, e.ToUser)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	sortMatchesNewestFirst(matches)

	if offset >= len(matches) {
		return []*domain.Match{}, nil
	}
	matches = matches[offset:]
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Store) UpdateAIFields(ctx context.Context, matchID uuid.UUID, explanation string, icebreakers []string) error {
	pair, err := s.pairForMatch(ctx, matchID)
	if err != nil {
		return err
	}
	list, err := attributevalue.Marshal(append([]string{}, icebreakers...))
	if err != nil {
		return fmt.Errorf("failed to marshal icebreakers: %w", err)
	}
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.key(matchPK(pair), skMatch),
		UpdateExpression:    aws.String("SET match_explanation = :explanation, icebreakers = :icebreakers"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":explanation": &types.AttributeValueMemberS{Value: explanation},
			":icebreakers": list,
		},
	})
	if isConditionFailed(err) {
		return domain.ErrMatchNotFound
	}
	if err != nil {
		return transient(ctx, "update match", err)
	}
	return nil
}

func (s *Store) pairForMatch(ctx context.Context, id uuid.UUID) (domain.Pair, error) {
	item, err := s.getItem(ctx, matchIDPK(id), skMatch)
	if err != nil {
		return domain.Pair{}, err
	}
	if item == nil {
		return domain.Pair{}, domain.ErrMatchNotFound
	}
	var ptr matchPointerItem
	if err := attributevalue.UnmarshalMap(item, &ptr); err != nil {
		return domain.Pair{}, fmt.Errorf("failed to unmarshal match pointer: %w", err)
	}
	u1, err := uuid.Parse(ptr.User1ID)
	if err != nil {
		return domain.Pair{}, fmt.Errorf("invalid match pointer %s: %w", ptr.PK, err)
	}
	u2, err := uuid.Parse(ptr.User2ID)
	if err != nil {
		return domain.Pair{}, fmt.Errorf("invalid match pointer %s: %w", ptr.PK, err)
	}
	return domain.NewPair(u1, u2), nil
}
