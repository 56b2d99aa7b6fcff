package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
)

func (s *Store) Create(ctx context.Context, profile *domain.Profile) error {
	now := s.now()
	profile.CreatedAt = now.UTC().Truncate(time.Millisecond)
	profile.UpdatedAt = profile.CreatedAt

	item, err := attributevalue.MarshalMap(newProfileItem(profile))
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if isConditionFailed(err) {
		return domain.ErrProfileExists
	}
	if err != nil {
		return transient(ctx, "put profile", err)
	}
	return nil
}

func (s *Store) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	item, err := s.getItem(ctx, userPK(userID), skProfile)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrProfileNotFound
	}
	var it profileItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return it.toDomain()
}

func (s *Store) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.table),
		Key:                  s.key(userPK(userID), skProfile),
		ProjectionExpression: aws.String("PK"),
	})
	if err != nil {
		return false, transient(ctx, "check profile", err)
	}
	return out.Item != nil, nil
}

// ListCandidates scans onboarded profiles and drops the user and everyone they share an edge
// with.
func (s *Store) ListCandidates(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Profile, error) {
	decided, err := s.ListDecidedUsers(ctx, userID)
	if err != nil {
		return nil, err
	}
	excluded := map[uuid.UUID]struct{}{userID: {}}
	for _, id := range decided {
		excluded[id] = struct{}{}
	}

	var profiles []*domain.Profile
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                aws.String(s.table),
		FilterExpression:         aws.String("#entity = :profile AND is_onboarding_complete = :onboarded"),
		ExpressionAttributeNames: map[string]string{"#entity": "entity"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":profile":   &types.AttributeValueMemberS{Value: entityProfile},
			":onboarded": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, transient(ctx, "scan profiles", err)
		}
		for _, item := range page.Items {
			var it profileItem
			if err := attributevalue.UnmarshalMap(item, &it); err != nil {
				return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
			}
			p, err := it.toDomain()
			if err != nil {
				return nil, err
			}
			if _, skip := excluded[p.UserID]; skip {
				continue
			}
			profiles = append(profiles, p)
		}
	}

	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].CreatedAt.Equal(profiles[j].CreatedAt) {
			return profiles[i].UserID.String() < profiles[j].UserID.String()
		}
		return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
	})
	if limit > 0 && limit < len(profiles) {
		profiles = profiles[:limit]
	}
	return profiles, nil
}
