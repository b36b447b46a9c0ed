package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/freelance-hub/internal/domain"
)

// ProjectRepo provides typed DynamoDB operations for the projects table.
// Writes that carry outbox events commit them in the same transaction.
type ProjectRepo struct {
	client      *dynamodb.Client
	tableName   string
	outboxTable string
}

func NewProjectRepo(client *dynamodb.Client, tableName, outboxTable string) *ProjectRepo {
	return &ProjectRepo{client: client, tableName: tableName, outboxTable: outboxTable}
}

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project, events ...*domain.OutboxEvent) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	return r.commit(ctx, &types.Put{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(project_id)"),
	}, events)
}

func (r *ProjectRepo) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("project_id", projectID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("project not found: %w", domain.ErrNotFound)
	}
	var p domain.Project
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns the projects matching f. A client filter uses the client index;
// anything else scans.
func (r *ProjectRepo) List(ctx context.Context, f domain.ProjectFilter) ([]domain.Project, error) {
	var (
		conds  []string
		names  = map[string]string{}
		values = map[string]types.AttributeValue{}
	)
	if f.Status != "" {
		conds = append(conds, "#st = :st")
		names["#st"] = "status"
		values[":st"] = &types.AttributeValueMemberS{Value: f.Status}
	}
	if f.Skill != "" {
		conds = append(conds, "contains(#sk, :sk)")
		names["#sk"] = "skills"
		values[":sk"] = &types.AttributeValueMemberS{Value: f.Skill}
	}
	filter := strings.Join(conds, " AND ")

	var (
		items []map[string]types.AttributeValue
		err   error
	)
	if f.ClientID != "" {
		values[":cid"] = &types.AttributeValueMemberS{Value: f.ClientID}
		in := &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(indexProjectClient),
			KeyConditionExpression:    aws.String("client_id = :cid"),
			ExpressionAttributeValues: values,
		}
		if filter != "" {
			in.FilterExpression = aws.String(filter)
			in.ExpressionAttributeNames = names
		}
		items, err = queryAll(ctx, r.client, in)
	} else {
		in := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
		if filter != "" {
			in.FilterExpression = aws.String(filter)
			in.ExpressionAttributeNames = names
			in.ExpressionAttributeValues = values
		}
		items, err = scanAll(ctx, r.client, in)
	}
	if err != nil {
		return nil, err
	}
	var projects []domain.Project
	if err := attributevalue.UnmarshalListOfMaps(items, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// ListForUser returns the projects userID owns, is assigned to, or reaches
// through one of teamIDs.
func (r *ProjectRepo) ListForUser(ctx context.Context, userID string, teamIDs []string) ([]domain.Project, error) {
	filter := "client_id = :u OR contains(assigned_freelancers, :u)"
	values := map[string]types.AttributeValue{
		":u": &types.AttributeValueMemberS{Value: userID},
	}
	if len(teamIDs) > 0 {
		ph := make([]string, len(teamIDs))
		for i, id := range teamIDs {
			ph[i] = ":t" + strconv.Itoa(i)
			values[ph[i]] = &types.AttributeValueMemberS{Value: id}
		}
		filter += " OR team_id IN (" + strings.Join(ph, ", ") + ")"
	}
	items, err := scanAll(ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return nil, err
	}
	var projects []domain.Project
	if err := attributevalue.UnmarshalListOfMaps(items, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// ListByTeam returns the projects assigned to teamID.
func (r *ProjectRepo) ListByTeam(ctx context.Context, teamID string) ([]domain.Project, error) {
	items, err := scanAll(ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("team_id = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":t": &types.AttributeValueMemberS{Value: teamID}},
	})
	if err != nil {
		return nil, err
	}
	var projects []domain.Project
	if err := attributevalue.UnmarshalListOfMaps(items, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Save replaces the project if its stored version still equals
// expectedVersion. On success p.Version is expectedVersion+1.
func (r *ProjectRepo) Save(ctx context.Context, p *domain.Project, expectedVersion int, events ...*domain.OutboxEvent) error {
	p.Version = expectedVersion + 1
	p.UpdatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	err = r.commit(ctx, &types.Put{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("#v = :v"),
		ExpressionAttributeNames: map[string]string{"#v": fieldVersion},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.Itoa(expectedVersion)},
		},
	}, events)
	if err != nil {
		p.Version = expectedVersion
	}
	return err
}

// Delete removes the project if it is still at version.
func (r *ProjectRepo) Delete(ctx context.Context, projectID string, version int) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("project_id", projectID),
		ConditionExpression:      aws.String("#v = :v"),
		ExpressionAttributeNames: map[string]string{"#v": fieldVersion},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.Itoa(version)},
		},
	})
	return translateErr(err)
}

// CountByStatus returns the number of projects per status.
func (r *ProjectRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	items, err := scanAll(ctx, r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		ProjectionExpression:     aws.String("#st"),
		ExpressionAttributeNames: map[string]string{"#st": "status"},
	})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, it := range items {
		if s, ok := it["status"].(*types.AttributeValueMemberS); ok {
			counts[s.Value]++
		}
	}
	return counts, nil
}

func (r *ProjectRepo) commit(ctx context.Context, put *types.Put, events []*domain.OutboxEvent) error {
	return commitWithOutbox(ctx, r.client, r.outboxTable, []types.TransactWriteItem{{Put: put}}, events)
}
