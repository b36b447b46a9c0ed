package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/freelance-hub/internal/domain"
)

// TeamRepo provides typed DynamoDB operations for the teams table. Membership
// changes touch a single map entry so concurrent joins never overwrite each
// other.
type TeamRepo struct {
	client      *dynamodb.Client
	tableName   string
	outboxTable string
}

func NewTeamRepo(client *dynamodb.Client, tableName, outboxTable string) *TeamRepo {
	return &TeamRepo{client: client, tableName: tableName, outboxTable: outboxTable}
}

func (r *TeamRepo) Create(ctx context.Context, t *domain.Team) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal team: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(team_id)"),
	})
	return translateErr(err)
}

func (r *TeamRepo) Get(ctx context.Context, teamID string) (*domain.Team, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("team_id", teamID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("team not found: %w", domain.ErrNotFound)
	}
	var t domain.Team
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByMember returns the teams whose members map holds userID.
func (r *TeamRepo) ListByMember(ctx context.Context, userID string) ([]domain.Team, error) {
	items, err := scanAll(ctx, r.client, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("attribute_exists(#m.#uid)"),
		ExpressionAttributeNames: map[string]string{
			"#m":   fieldMembers,
			"#uid": userID,
		},
	})
	if err != nil {
		return nil, err
	}
	var teams []domain.Team
	if err := attributevalue.UnmarshalListOfMaps(items, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// AddMember inserts userID into the members map. It fails with
// domain.ErrConflict when the user is already a member.
func (r *TeamRepo) AddMember(ctx context.Context, teamID, userID string, m domain.TeamMember, events ...*domain.OutboxEvent) error {
	mv, err := attributevalue.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal member: %w", err)
	}
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return err
	}
	upd := &types.Update{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("team_id", teamID),
		UpdateExpression:    aws.String("SET #m.#uid = :m, #u = :now"),
		ConditionExpression: aws.String("attribute_exists(team_id) AND attribute_not_exists(#m.#uid)"),
		ExpressionAttributeNames: map[string]string{
			"#m":   fieldMembers,
			"#uid": userID,
			"#u":   fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m":   mv,
			":now": now,
		},
	}
	return commitWithOutbox(ctx, r.client, r.outboxTable, []types.TransactWriteItem{{Update: upd}}, events)
}

// RemoveMember deletes userID from the members map. The leader can never be
// removed; a non-member or the leader yields domain.ErrConflict.
func (r *TeamRepo) RemoveMember(ctx context.Context, teamID, userID string, events ...*domain.OutboxEvent) error {
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return err
	}
	upd := &types.Update{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("team_id", teamID),
		UpdateExpression:    aws.String("REMOVE #m.#uid SET #u = :now"),
		ConditionExpression: aws.String("attribute_exists(#m.#uid) AND leader_id <> :uidv"),
		ExpressionAttributeNames: map[string]string{
			"#m":   fieldMembers,
			"#uid": userID,
			"#u":   fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":  now,
			":uidv": &types.AttributeValueMemberS{Value: userID},
		},
	}
	return commitWithOutbox(ctx, r.client, r.outboxTable, []types.TransactWriteItem{{Update: upd}}, events)
}
