package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/freelance-hub/internal/domain"
)

// OutboxRepo reads and settles the events the relay dispatches.
type OutboxRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOutboxRepo(client *dynamodb.Client, tableName string) *OutboxRepo {
	return &OutboxRepo{client: client, tableName: tableName}
}

// Enqueue stores events that have no primary mutation to ride along with.
func (r *OutboxRepo) Enqueue(ctx context.Context, events ...*domain.OutboxEvent) error {
	items, err := outboxPuts(r.tableName, events)
	if err != nil {
		return err
	}
	for _, it := range items {
		if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           it.Put.TableName,
			Item:                it.Put.Item,
			ConditionExpression: it.Put.ConditionExpression,
		}); err != nil {
			return translateErr(err)
		}
	}
	return nil
}

// ListPending returns up to limit pending events, oldest first.
func (r *OutboxRepo) ListPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String(indexOutboxState),
		KeyConditionExpression:   aws.String("#s = :p"),
		ExpressionAttributeNames: map[string]string{"#s": fieldState},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: domain.OutboxPending},
		},
		ScanIndexForward: aws.Bool(true),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, err
	}
	var events []domain.OutboxEvent
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Delete settles a dispatched event.
func (r *OutboxRepo) Delete(ctx context.Context, eventID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("event_id", eventID),
	})
	return err
}

// RecordFailure bumps the attempt counter. When failed is set the event moves
// to the failed state and leaves the pending index.
func (r *OutboxRepo) RecordFailure(ctx context.Context, eventID, reason string, failed bool) error {
	expr := "SET #a = if_not_exists(#a, :zero) + :one, #e = :e"
	names := map[string]string{
		"#a": fieldAttempts,
		"#e": fieldLastError,
	}
	values := map[string]types.AttributeValue{
		":zero": &types.AttributeValueMemberN{Value: "0"},
		":one":  &types.AttributeValueMemberN{Value: "1"},
		":e":    &types.AttributeValueMemberS{Value: reason},
	}
	if failed {
		expr += ", #s = :f"
		names["#s"] = fieldState
		values[":f"] = &types.AttributeValueMemberS{Value: domain.OutboxFailed}
	}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("event_id", eventID),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(event_id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("record outbox failure: %w", translateErr(err))
	}
	return nil
}
