package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/freelance-hub/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	return translateErr(err)
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexUserEmail),
		KeyConditionExpression:    aws.String("email = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: email}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err = translateErr(err); errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return err
}

// List returns every user. The admin views are the only callers.
func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	items, err := scanAll(ctx, r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	if err != nil {
		return nil, err
	}
	var users []domain.User
	if err := attributevalue.UnmarshalListOfMaps(items, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// RemoveNotificationRefs drops ids from the user's notification list. The
// rewrite is conditional on the list being unchanged since it was read.
func (r *UserRepo) RemoveNotificationRefs(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const attempts = 3
	var err error
	for i := 0; i < attempts; i++ {
		var u *domain.User
		u, err = r.Get(ctx, userID)
		if err != nil {
			return err
		}
		next := without(u.NotificationIDs, ids...)
		if len(next) == len(u.NotificationIDs) {
			return nil
		}
		_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(r.tableName),
			Key:                 strKey("user_id", userID),
			UpdateExpression:    aws.String("SET #ids = :next"),
			ConditionExpression: aws.String("#ids = :prev"),
			ExpressionAttributeNames: map[string]string{
				"#ids": fieldNotificationIDs,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":next": strList(next),
				":prev": strList(u.NotificationIDs),
			},
		})
		if err = translateErr(err); !errors.Is(err, domain.ErrConflict) {
			return err
		}
	}
	return err
}

// CountByRole returns the number of users per role.
func (r *UserRepo) CountByRole(ctx context.Context) (map[string]int, error) {
	items, err := scanAll(ctx, r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		ProjectionExpression:     aws.String("#r"),
		ExpressionAttributeNames: map[string]string{"#r": "role"},
	})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, it := range items {
		if s, ok := it["role"].(*types.AttributeValueMemberS); ok {
			counts[s.Value]++
		}
	}
	return counts, nil
}
