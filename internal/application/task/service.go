package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freelance-hub/internal/application/fanout"
	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/pkg/id"
	"github.com/freelance-hub/internal/pkg/page"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldStatus      = "status"
	fieldPriority    = "priority"
	fieldDueDate     = "due_date"
	fieldAssigneeID  = "assignee_id"
)

const deleteAttempts = 3

type Service interface {
	Create(ctx context.Context, actorID string, req domain.CreateTaskRequest) (*domain.Task, error)
	ListByProject(ctx context.Context, userID, projectID string, pg page.Request) ([]domain.Task, page.Result, error)
	Get(ctx context.Context, userID, taskID string) (*domain.Task, error)
	Update(ctx context.Context, userID, taskID string, req domain.UpdateTaskRequest) (*domain.Task, error)
	Assign(ctx context.Context, userID, taskID string, req domain.AssignTaskRequest) (*domain.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
}

type taskStore interface {
	Create(ctx context.Context, t *domain.Task, events ...*domain.OutboxEvent) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Task, error)
	Update(ctx context.Context, taskID string, updates map[string]interface{}, events ...*domain.OutboxEvent) error
	DeleteCascade(ctx context.Context, ids []string, project *domain.Project, parent *domain.Task) error
}

type accessResolver interface {
	Project(ctx context.Context, userID, projectID string) (*domain.Project, error)
	IsParticipant(ctx context.Context, userID string, p *domain.Project) (bool, error)
}

type service struct {
	repo   taskStore
	access accessResolver
}

type ServiceDeps struct {
	TaskRepo taskStore
	Access   accessResolver
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.TaskRepo, access: deps.Access}
}

func link(t *domain.Task) string { return "/projects/" + t.ProjectID + "/tasks/" + t.TaskID }

func (s *service) requireParticipant(ctx context.Context, userID string, p *domain.Project) error {
	ok, err := s.access.IsParticipant(ctx, userID, p)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("assignee is not a project participant: %w", domain.ErrBadRequest)
	}
	return nil
}

func (s *service) assignedEvent(actorID string, t *domain.Task) *domain.OutboxEvent {
	return fanout.NewEvent(actorID, domain.NotificationTemplate{
		Type:    domain.NotifyTask,
		Title:   "Task assigned",
		Content: fmt.Sprintf("You were assigned the task %q", t.Title),
		Link:    link(t),
		Related: domain.Related{ProjectID: t.ProjectID, TaskID: t.TaskID, UserID: actorID},
	}, t.AssigneeID)
}

func (s *service) Create(ctx context.Context, actorID string, req domain.CreateTaskRequest) (*domain.Task, error) {
	p, err := s.access.Project(ctx, actorID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if req.ParentID != "" {
		parent, err := s.repo.Get(ctx, req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("parent task: %w", err)
		}
		if parent.ProjectID != p.ProjectID {
			return nil, fmt.Errorf("parent task belongs to another project: %w", domain.ErrBadRequest)
		}
	}
	if req.AssigneeID != "" {
		if err := s.requireParticipant(ctx, req.AssigneeID, p); err != nil {
			return nil, err
		}
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	now := time.Now().UTC()
	t := &domain.Task{
		TaskID:      id.New(),
		ProjectID:   p.ProjectID,
		ParentID:    req.ParentID,
		SubtaskIDs:  []string{},
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		CreatorID:   actorID,
		AssigneeID:  req.AssigneeID,
		Status:      domain.TaskTodo,
		Priority:    priority,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, t, s.assignedEvent(actorID, t)); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) ListByProject(ctx context.Context, userID, projectID string, pg page.Request) ([]domain.Task, page.Result, error) {
	if _, err := s.access.Project(ctx, userID, projectID); err != nil {
		return nil, page.Result{}, err
	}
	tasks, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, page.Result{}, err
	}
	out, res := page.Slice(tasks, pg)
	return out, res, nil
}

// load returns the task and its project once userID is confirmed as a
// participant.
func (s *service) load(ctx context.Context, userID, taskID string) (*domain.Task, *domain.Project, error) {
	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.access.Project(ctx, userID, t.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return t, p, nil
}

func (s *service) Get(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	t, _, err := s.load(ctx, userID, taskID)
	return t, err
}

func (s *service) Update(ctx context.Context, userID, taskID string, req domain.UpdateTaskRequest) (*domain.Task, error) {
	t, _, err := s.load(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates[fieldTitle] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates[fieldDescription] = *req.Description
	}
	if req.Status != nil {
		updates[fieldStatus] = *req.Status
	}
	if req.Priority != nil {
		updates[fieldPriority] = *req.Priority
	}
	if req.DueDate != nil {
		updates[fieldDueDate] = *req.DueDate
	}
	if len(updates) == 0 {
		return t, nil
	}
	var ev *domain.OutboxEvent
	if req.Status != nil && *req.Status != t.Status {
		ev = fanout.NewEvent(userID, domain.NotificationTemplate{
			Type:    domain.NotifyTask,
			Title:   "Task status changed",
			Content: fmt.Sprintf("%q moved to %s", t.Title, strings.ReplaceAll(*req.Status, "_", " ")),
			Link:    link(t),
			Related: domain.Related{ProjectID: t.ProjectID, TaskID: t.TaskID, UserID: userID},
		}, t.CreatorID, t.AssigneeID)
	}
	if err := s.repo.Update(ctx, taskID, updates, ev); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, taskID)
}

func (s *service) Assign(ctx context.Context, userID, taskID string, req domain.AssignTaskRequest) (*domain.Task, error) {
	t, p, err := s.load(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if t.AssigneeID == req.AssigneeID {
		return t, nil
	}
	if err := s.requireParticipant(ctx, req.AssigneeID, p); err != nil {
		return nil, err
	}
	t.AssigneeID = req.AssigneeID
	if err := s.repo.Update(ctx, taskID, map[string]interface{}{fieldAssigneeID: req.AssigneeID}, s.assignedEvent(userID, t)); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, taskID)
}

// Delete removes the task with every descendant subtask and unlinks it from
// its project and parent in one transaction. Only the task creator or the
// project owner may delete.
func (s *service) Delete(ctx context.Context, userID, taskID string) error {
	var err error
	for attempt := 0; attempt < deleteAttempts; attempt++ {
		err = s.deleteOnce(ctx, userID, taskID)
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("task tree changed concurrently, retry: %w", err)
}

func (s *service) deleteOnce(ctx context.Context, userID, taskID string) error {
	t, p, err := s.load(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if t.CreatorID != userID && p.ClientID != userID {
		return fmt.Errorf("only the creator or project owner can delete a task: %w", domain.ErrForbidden)
	}
	all, err := s.repo.ListByProject(ctx, t.ProjectID)
	if err != nil {
		return err
	}
	var parent *domain.Task
	if t.ParentID != "" {
		if parent, err = s.repo.Get(ctx, t.ParentID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return s.repo.DeleteCascade(ctx, Descendants(taskID, all), p, parent)
}

// Descendants returns root followed by every task below it, found through
// parent links.
func Descendants(root string, tasks []domain.Task) []string {
	children := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		if t.ParentID != "" {
			children[t.ParentID] = append(children[t.ParentID], t.TaskID)
		}
	}
	out := []string{root}
	seen := map[string]bool{root: true}
	for i := 0; i < len(out); i++ {
		for _, c := range children[out[i]] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
