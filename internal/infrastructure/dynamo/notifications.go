package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/freelance-hub/internal/domain"
)

// batchWriteLimit is the DynamoDB maximum number of requests per BatchWriteItem.
const batchWriteLimit = 25

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client     *dynamodb.Client
	tableName  string
	usersTable string
}

func NewNotificationRepo(client *dynamodb.Client, tableName, usersTable string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName, usersTable: usersTable}
}

// PutForRecipient writes the notification and appends its id to the
// recipient's notification_ids in one transaction. A notification that
// already exists yields domain.ErrConflict and leaves the user untouched.
func (r *NotificationRepo) PutForRecipient(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	items := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(notification_id)"),
		}},
		{Update: &types.Update{
			TableName:           aws.String(r.usersTable),
			Key:                 strKey("user_id", n.RecipientID),
			UpdateExpression:    aws.String("SET #ids = list_append(if_not_exists(#ids, :empty), :ref)"),
			ConditionExpression: aws.String("attribute_exists(user_id)"),
			ExpressionAttributeNames: map[string]string{
				"#ids": fieldNotificationIDs,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":empty": strList(nil),
				":ref":   strList([]string{n.NotificationID}),
			},
		}},
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	switch failedConditionAt(err) {
	case -1:
		return translateErr(err)
	case 0:
		return fmt.Errorf("notification %s already delivered: %w", n.NotificationID, domain.ErrConflict)
	default:
		return fmt.Errorf("recipient %s not found: %w", n.RecipientID, domain.ErrNotFound)
	}
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByRecipient returns every notification owned by userID, newest first.
// When unreadOnly is set the index query filters on read = false.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexNotificationByUser),
		KeyConditionExpression: aws.String("recipient_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if unreadOnly {
		in.FilterExpression = aws.String("#r = :f")
		in.ExpressionAttributeNames = map[string]string{"#r": fieldRead}
		in.ExpressionAttributeValues[":f"] = &types.AttributeValueMemberBOOL{Value: false}
	}
	items, err := queryAll(ctx, r.client, in)
	if err != nil {
		return nil, err
	}
	var ns []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(items, &ns); err != nil {
		return nil, err
	}
	return ns, nil
}

// MarkRead flags the notification read. read_at keeps the first read time.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID string, at time.Time) error {
	ts, err := attributevalue.Marshal(at)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("notification_id", notificationID),
		UpdateExpression:    aws.String("SET #r = :t, #ra = if_not_exists(#ra, :at)"),
		ConditionExpression: aws.String("attribute_exists(notification_id)"),
		ExpressionAttributeNames: map[string]string{
			"#r":  fieldRead,
			"#ra": fieldReadAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":  &types.AttributeValueMemberBOOL{Value: true},
			":at": ts,
		},
	})
	if err = translateErr(err); errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	return err
}

// MarkAllRead marks every unread notification of userID and returns how many
// were updated.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	unread, err := r.ListByRecipient(ctx, userID, true)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, item := range unread {
		if err := r.MarkRead(ctx, item.NotificationID, at); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// Delete removes notifications in BatchWriteItem chunks.
func (r *NotificationRepo) Delete(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(ids))
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, id := range ids[start:end] {
			reqs = append(reqs, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: strKey("notification_id", id)},
			})
		}
		if err := r.batchWrite(ctx, reqs); err != nil {
			return err
		}
	}
	return nil
}

func (r *NotificationRepo) batchWrite(ctx context.Context, reqs []types.WriteRequest) error {
	const maxRetries = 5
	pending := map[string][]types.WriteRequest{r.tableName: reqs}
	for i := 0; i < maxRetries && len(pending[r.tableName]) > 0; i++ {
		out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return err
		}
		pending = out.UnprocessedItems
	}
	if len(pending[r.tableName]) > 0 {
		return fmt.Errorf("batch delete: %d items left unprocessed", len(pending[r.tableName]))
	}
	return nil
}

// CompleteAction flags actions[index] completed. The item must own an action
// at that index.
func (r *NotificationRepo) CompleteAction(ctx context.Context, notificationID string, index int) error {
	path := "#a[" + strconv.Itoa(index) + "]"
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("notification_id", notificationID),
		UpdateExpression:    aws.String("SET " + path + ".#c = :t"),
		ConditionExpression: aws.String("attribute_exists(" + path + ")"),
		ExpressionAttributeNames: map[string]string{
			"#a": "actions",
			"#c": "completed",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err = translateErr(err); errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("action %d: %w", index, domain.ErrNotFound)
	}
	return err
}
