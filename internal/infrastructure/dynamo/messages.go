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

// MessageRepo provides typed DynamoDB operations for the messages table.
// Read markers and reactions are single map entries updated in place.
type MessageRepo struct {
	client      *dynamodb.Client
	tableName   string
	outboxTable string
}

func NewMessageRepo(client *dynamodb.Client, tableName, outboxTable string) *MessageRepo {
	return &MessageRepo{client: client, tableName: tableName, outboxTable: outboxTable}
}

// Create writes m together with the outbox events of the send.
func (r *MessageRepo) Create(ctx context.Context, m *domain.Message, events ...*domain.OutboxEvent) error {
	if m.Reactions == nil {
		m.Reactions = map[string]string{}
	}
	if m.ReadBy == nil {
		m.ReadBy = map[string]time.Time{}
	}
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	put := &types.Put{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(message_id)"),
	}
	return commitWithOutbox(ctx, r.client, r.outboxTable, []types.TransactWriteItem{{Put: put}}, events)
}

func (r *MessageRepo) Get(ctx context.Context, messageID string) (*domain.Message, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("message_id", messageID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("message not found: %w", domain.ErrNotFound)
	}
	var m domain.Message
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListConversation returns every message of a conversation, newest first.
func (r *MessageRepo) ListConversation(ctx context.Context, conversationKey string) ([]domain.Message, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexMessageConversation),
		KeyConditionExpression: aws.String("conversation_key = :k"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: conversationKey},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var msgs []domain.Message
	if err := attributevalue.UnmarshalListOfMaps(items, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead records userID's read marker unless one already exists. It
// reports whether a marker was added.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID, userID string, at time.Time) (bool, error) {
	ts, err := attributevalue.Marshal(at)
	if err != nil {
		return false, err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("message_id", messageID),
		UpdateExpression:    aws.String("SET #rb.#uid = :at"),
		ConditionExpression: aws.String("attribute_exists(message_id) AND attribute_not_exists(#rb.#uid)"),
		ExpressionAttributeNames: map[string]string{
			"#rb":  fieldReadBy,
			"#uid": userID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{":at": ts},
	})
	if err = translateErr(err); errors.Is(err, domain.ErrConflict) {
		return false, nil
	}
	return err == nil, err
}

// SetReaction toggles userID's reaction. Sending the stored emoji again
// removes it; any other emoji replaces it. It reports whether the call
// removed the reaction.
func (r *MessageRepo) SetReaction(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	names := map[string]string{
		"#rx":  fieldReactions,
		"#uid": userID,
	}
	values := map[string]types.AttributeValue{
		":e": &types.AttributeValueMemberS{Value: emoji},
	}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("message_id", messageID),
		UpdateExpression:          aws.String("REMOVE #rx.#uid"),
		ConditionExpression:       aws.String("#rx.#uid = :e"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err = translateErr(err); err == nil {
		return true, nil
	} else if !errors.Is(err, domain.ErrConflict) {
		return false, err
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("message_id", messageID),
		UpdateExpression:          aws.String("SET #rx.#uid = :e"),
		ConditionExpression:       aws.String("attribute_exists(message_id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err = translateErr(err); errors.Is(err, domain.ErrConflict) {
		return false, fmt.Errorf("message not found: %w", domain.ErrNotFound)
	}
	return false, err
}

// Delete hard-deletes the message when senderID sent it.
func (r *MessageRepo) Delete(ctx context.Context, messageID, senderID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("message_id", messageID),
		ConditionExpression: aws.String("sender_id = :s"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: senderID},
		},
	})
	if err = translateErr(err); errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("only the sender can delete a message: %w", domain.ErrForbidden)
	}
	return err
}
