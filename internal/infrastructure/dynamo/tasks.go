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

// maxTransactItems is the DynamoDB limit on items per TransactWriteItems call.
const maxTransactItems = 100

// TaskRepo provides typed DynamoDB operations for the tasks table. Every
// change to a task list is committed with the task rows it describes and
// bumps the owning project's version.
type TaskRepo struct {
	client        *dynamodb.Client
	tableName     string
	projectsTable string
	outboxTable   string
}

func NewTaskRepo(client *dynamodb.Client, tableName, projectsTable, outboxTable string) *TaskRepo {
	return &TaskRepo{client: client, tableName: tableName, projectsTable: projectsTable, outboxTable: outboxTable}
}

// Create writes t, appends its id to the project's task_ids and, for a
// subtask, to the parent's subtask_ids.
func (r *TaskRepo) Create(ctx context.Context, t *domain.Task, events ...*domain.OutboxEvent) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return err
	}
	ref := strList([]string{t.TaskID})
	items := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(task_id)"),
		}},
		{Update: &types.Update{
			TableName:           aws.String(r.projectsTable),
			Key:                 strKey("project_id", t.ProjectID),
			UpdateExpression:    aws.String("SET #ids = list_append(if_not_exists(#ids, :empty), :ref), #v = #v + :one, #u = :now"),
			ConditionExpression: aws.String("attribute_exists(project_id)"),
			ExpressionAttributeNames: map[string]string{
				"#ids": fieldTaskIDs,
				"#v":   fieldVersion,
				"#u":   fieldUpdatedAt,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":empty": strList(nil),
				":ref":   ref,
				":one":   &types.AttributeValueMemberN{Value: "1"},
				":now":   now,
			},
		}},
	}
	if t.ParentID != "" {
		items = append(items, types.TransactWriteItem{Update: &types.Update{
			TableName:           aws.String(r.tableName),
			Key:                 strKey("task_id", t.ParentID),
			UpdateExpression:    aws.String("SET #ids = list_append(if_not_exists(#ids, :empty), :ref), #u = :now"),
			ConditionExpression: aws.String("project_id = :pid"),
			ExpressionAttributeNames: map[string]string{
				"#ids": fieldSubtaskIDs,
				"#u":   fieldUpdatedAt,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":empty": strList(nil),
				":ref":   ref,
				":pid":   &types.AttributeValueMemberS{Value: t.ProjectID},
				":now":   now,
			},
		}})
	}
	err = commitWithOutbox(ctx, r.client, r.outboxTable, items, events)
	switch failedConditionAt(err) {
	case 1:
		return fmt.Errorf("project not found: %w", domain.ErrNotFound)
	case 2:
		return fmt.Errorf("parent task not found: %w", domain.ErrNotFound)
	}
	return err
}

func (r *TaskRepo) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("task_id", taskID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	var t domain.Task
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) ListByProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexTaskProject),
		KeyConditionExpression: aws.String("project_id = :pid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: projectID},
		},
	})
	if err != nil {
		return nil, err
	}
	var tasks []domain.Task
	if err := attributevalue.UnmarshalListOfMaps(items, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update sets the given fields on an existing task.
func (r *TaskRepo) Update(ctx context.Context, taskID string, updates map[string]interface{}, events ...*domain.OutboxEvent) error {
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	upd := &types.Update{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("task_id", taskID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(task_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}
	err = commitWithOutbox(ctx, r.client, r.outboxTable, []types.TransactWriteItem{{Update: upd}}, events)
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	return err
}

// DeleteCascade deletes ids (a task and all its descendants), rewrites the
// project's task_ids without them and, when parent is set, the parent's
// subtask_ids. The project rewrite is conditional on its version and the
// parent rewrite on its list being unchanged.
func (r *TaskRepo) DeleteCascade(ctx context.Context, ids []string, project *domain.Project, parent *domain.Task) error {
	if len(ids)+2 > maxTransactItems {
		return fmt.Errorf("cascade of %d tasks exceeds one transaction: %w", len(ids), domain.ErrBadRequest)
	}
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return err
	}
	items := make([]types.TransactWriteItem, 0, len(ids)+2)
	for _, id := range ids {
		items = append(items, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.tableName),
			Key:       strKey("task_id", id),
		}})
	}
	items = append(items, types.TransactWriteItem{Update: &types.Update{
		TableName:           aws.String(r.projectsTable),
		Key:                 strKey("project_id", project.ProjectID),
		UpdateExpression:    aws.String("SET #ids = :next, #v = :nv, #u = :now"),
		ConditionExpression: aws.String("#v = :v"),
		ExpressionAttributeNames: map[string]string{
			"#ids": fieldTaskIDs,
			"#v":   fieldVersion,
			"#u":   fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":next": strList(without(project.TaskIDs, ids...)),
			":v":    &types.AttributeValueMemberN{Value: strconv.Itoa(project.Version)},
			":nv":   &types.AttributeValueMemberN{Value: strconv.Itoa(project.Version + 1)},
			":now":  now,
		},
	}})
	if parent != nil {
		items = append(items, types.TransactWriteItem{Update: &types.Update{
			TableName:           aws.String(r.tableName),
			Key:                 strKey("task_id", parent.TaskID),
			UpdateExpression:    aws.String("SET #ids = :next, #u = :now"),
			ConditionExpression: aws.String("#ids = :prev"),
			ExpressionAttributeNames: map[string]string{
				"#ids": fieldSubtaskIDs,
				"#u":   fieldUpdatedAt,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":next": strList(without(parent.SubtaskIDs, ids...)),
				":prev": strList(parent.SubtaskIDs),
				":now":  now,
			},
		}})
	}
	return transact(ctx, r.client, items)
}

// DeleteByProject removes every task of a deleted project.
func (r *TaskRepo) DeleteByProject(ctx context.Context, projectID string) error {
	tasks, err := r.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("task_id", t.TaskID),
		}); err != nil {
			return err
		}
	}
	return nil
}
