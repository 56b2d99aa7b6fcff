package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
)

var edgeNames = map[string]string{
	"#status":  "status",
	"#version": "version",
}

func (s *Store) GetEdge(ctx context.Context, from, to uuid.UUID) (*domain.Edge, error) {
	item, err := s.getItem(ctx, userPK(from), edgeSK(to))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrEdgeNotFound
	}
	return decodeEdge(item)
}

// GetPair reads both edges with TransactGetItems, which never returns one side of an
// in-flight TransactWriteItems without the other.
func (s *Store) GetPair(ctx context.Context, from, to uuid.UUID) (*domain.PairState, error) {
	out, err := s.client.TransactGetItems(ctx, &dynamodb.TransactGetItemsInput{
		TransactItems: []types.TransactGetItem{
			{Get: &types.Get{TableName: aws.String(s.table), Key: s.key(userPK(from), edgeSK(to))}},
			{Get: &types.Get{TableName: aws.String(s.table), Key: s.key(userPK(to), edgeSK(from))}},
		},
	})
	if err != nil {
		return nil, transient(ctx, "get pair", err)
	}
	if len(out.Responses) != 2 {
		return nil, transient(ctx, "get pair", fmt.Errorf("expected 2 responses, got %d", len(out.Responses)))
	}

	state := &domain.PairState{}
	for i, dst := range []**domain.Edge{&state.Outgoing, &state.Incoming} {
		item := out.Responses[i].Item
		if len(item) == 0 {
			continue
		}
		edge, err := decodeEdge(item)
		if err != nil {
			return nil, err
		}
		*dst = edge
	}
	return state, nil
}

func (s *Store) UpsertEdgeIfAbsent(ctx context.Context, from, to uuid.UUID, status domain.EdgeStatus) (*domain.Edge, bool, error) {
	item, err := attributevalue.MarshalMap(newEdgeItem(from, to, status, s.now()))
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal edge: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	created := err == nil
	if err != nil && !isConditionFailed(err) {
		return nil, false, transient(ctx, "put edge", err)
	}

	edge, err := s.GetEdge(ctx, from, to)
	if err != nil {
		return nil, false, err
	}
	return edge, created, nil
}

func (s *Store) UpdateEdgeStatus(ctx context.Context, edge *domain.Edge, status domain.EdgeStatus) (*domain.Edge, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.table),
		Key:                      s.key(userPK(edge.FromUser), edgeSK(edge.ToUser)),
		UpdateExpression:         aws.String("SET #status = :status, #version = #version + :one, updated_at = :now"),
		ConditionExpression:      aws.String("attribute_exists(PK) AND #version = :expected"),
		ExpressionAttributeNames: edgeNames,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: string(status)},
			":one":      &types.AttributeValueMemberN{Value: "1"},
			":now":      number(s.now().UnixMilli()),
			":expected": number(edge.Version),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		if _, err := s.GetEdge(ctx, edge.FromUser, edge.ToUser); err != nil {
			return nil, err
		}
		return nil, domain.ErrVersionConflict
	}
	if err != nil {
		return nil, transient(ctx, "update edge", err)
	}
	return decodeEdge(out.Attributes)
}

// TransitionPairToConnected reads both edges and, when both are pending, connects them and
// writes the match in a single transaction conditioned on the versions it read.
func (s *Store) TransitionPairToConnected(ctx context.Context, from, to uuid.UUID) (domain.CommitResult, *domain.Match, error) {
	out, err := s.GetEdge(ctx, from, to)
	if err != nil {
		return s.missingIsConflict(err)
	}
	in, err := s.GetEdge(ctx, to, from)
	if err != nil {
		return s.missingIsConflict(err)
	}

	if out.IsConnected() && in.IsConnected() {
		m, err := s.GetByUsers(ctx, from, to)
		if err != nil {
			return "", nil, err
		}
		return domain.CommitAlreadyApplied, m, nil
	}
	if !out.IsPending() || !in.IsPending() {
		return domain.CommitConflict, nil, nil
	}

	now := s.now()
	m := domain.NewMatch(from, to, now)
	matchAV, err := attributevalue.MarshalMap(newMatchItem(m))
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal match: %w", err)
	}
	pointerAV, err := attributevalue.MarshalMap(matchPointerItem{
		PK:      matchIDPK(m.ID),
		SK:      skMatch,
		User1ID: m.User1ID.String(),
		User2ID: m.User2ID.String(),
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal match pointer: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: s.connectEdge(out, now.UnixMilli())},
			{Update: s.connectEdge(in, now.UnixMilli())},
			{Put: &types.Put{
				TableName:           aws.String(s.table),
				Item:                matchAV,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: &types.Put{
				TableName: aws.String(s.table),
				Item:      pointerAV,
			}},
		},
	})
	if isTransactionCanceled(err) {
		return domain.CommitConflict, nil, nil
	}
	if err != nil {
		return "", nil, transient(ctx, "connect pair", err)
	}
	return domain.CommitApplied, m, nil
}

func (s *Store) connectEdge(edge *domain.Edge, now int64) *types.Update {
	return &types.Update{
		TableName:                aws.String(s.table),
		Key:                      s.key(userPK(edge.FromUser), edgeSK(edge.ToUser)),
		UpdateExpression:         aws.String("SET #status = :connected, #version = :next, updated_at = :now"),
		ConditionExpression:      aws.String("#status = :pending AND #version = :expected"),
		ExpressionAttributeNames: edgeNames,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":connected": &types.AttributeValueMemberS{Value: string(domain.EdgeStatusConnected)},
			":pending":   &types.AttributeValueMemberS{Value: string(domain.EdgeStatusPending)},
			":next":      number(edge.Version + 1),
			":expected":  number(edge.Version),
			":now":       number(now),
		},
	}
}

func (s *Store) missingIsConflict(err error) (domain.CommitResult, *domain.Match, error) {
	if errors.Is(err, domain.ErrEdgeNotFound) {
		return domain.CommitConflict, nil, nil
	}
	return "", nil, err
}

// ListDecidedUsers collects the other side of every outgoing edge and every incoming edge.
func (s *Store) ListDecidedUsers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	outgoing, err := s.queryEdges(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :edge)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: userPK(userID)},
			":edge": &types.AttributeValueMemberS{Value: "EDGE#"},
		},
	})
	if err != nil {
		return nil, err
	}
	incoming, err := s.queryEdges(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(incomingIndex),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: incomingPK(userID)},
		},
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, e := range outgoing {
		add(e.ToUser)
	}
	for _, e := range incoming {
		add(e.FromUser)
	}
	return ids, nil
}

func (s *Store) queryEdges(ctx context.Context, input *dynamodb.QueryInput) ([]*domain.Edge, error) {
	var edges []*domain.Edge
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, transient(ctx, "query edges", err)
		}
		for _, item := range page.Items {
			e, err := decodeEdge(item)
			if err != nil {
				return nil, err
			}
			edges = append(edges, e)
		}
	}
	return edges, nil
}

func decodeEdge(item map[string]types.AttributeValue) (*domain.Edge, error) {
	var it edgeItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edge: %w", err)
	}
	return it.toDomain()
}

func number(v int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}
