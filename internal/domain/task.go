package domain

import "time"

const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskDone       = "done"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	TaskID      string     `json:"id" dynamodbav:"task_id"`
	ProjectID   string     `json:"project_id" dynamodbav:"project_id"`
	ParentID    string     `json:"parent_id,omitempty" dynamodbav:"parent_id"`
	SubtaskIDs  []string   `json:"subtask_ids" dynamodbav:"subtask_ids"`
	Title       string     `json:"title" dynamodbav:"title"`
	Description string     `json:"description" dynamodbav:"description"`
	CreatorID   string     `json:"creator_id" dynamodbav:"creator_id"`
	AssigneeID  string     `json:"assignee_id,omitempty" dynamodbav:"assignee_id"`
	Status      string     `json:"status" dynamodbav:"status"`
	Priority    string     `json:"priority" dynamodbav:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty" dynamodbav:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateTaskRequest struct {
	ProjectID   string     `json:"project_id" validate:"required"`
	ParentID    string     `json:"parent_id"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	AssigneeID  string     `json:"assignee_id"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	Status      *string    `json:"status" validate:"omitempty,oneof=todo in_progress review done"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
}

type AssignTaskRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required"`
}
