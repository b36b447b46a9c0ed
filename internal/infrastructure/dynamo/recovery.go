package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/freelance-hub/internal/domain"
)

// RecoveryRepo stores short-lived password recovery codes.
// PK: user_id, SK: type. Expired rows are removed by the table TTL; Get also
// treats them as missing because TTL deletion is lazy.
type RecoveryRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRecoveryRepo(client *dynamodb.Client, tableName string) *RecoveryRepo {
	return &RecoveryRepo{client: client, tableName: tableName}
}

func (r *RecoveryRepo) Put(ctx context.Context, c *domain.RecoveryCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal recovery code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *RecoveryRepo) Get(ctx context.Context, userID, typ string) (*domain.RecoveryCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "type", typ),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("recovery code not found: %w", domain.ErrNotFound)
	}
	var c domain.RecoveryCode
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	if c.ExpiresAt <= time.Now().Unix() {
		return nil, fmt.Errorf("recovery code expired: %w", domain.ErrNotFound)
	}
	return &c, nil
}

func (r *RecoveryRepo) Delete(ctx context.Context, userID, typ string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "type", typ),
	})
	return err
}
