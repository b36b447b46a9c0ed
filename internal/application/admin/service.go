package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/freelance-hub/internal/application/fanout"
	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/pkg/page"
)

// broadcastChunk caps recipients per outbox event to keep items well under
// the DynamoDB item size limit.
const broadcastChunk = 500

type Stats struct {
	UsersByRole      map[string]int `json:"users_by_role"`
	ProjectsByStatus map[string]int `json:"projects_by_status"`
	TotalUsers       int            `json:"total_users"`
	TotalProjects    int            `json:"total_projects"`
}

type Service interface {
	Stats(ctx context.Context) (*Stats, error)
	ListUsers(ctx context.Context, pg page.Request) ([]domain.User, page.Result, error)
	SetEnabled(ctx context.Context, adminID, userID string, enable bool) (*domain.User, error)
	Broadcast(ctx context.Context, adminID string, req domain.BroadcastRequest) (int, error)
}

type userStore interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	CountByRole(ctx context.Context) (map[string]int, error)
}

type projectStore interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type outboxStore interface {
	Enqueue(ctx context.Context, events ...*domain.OutboxEvent) error
}

type service struct {
	users    userStore
	projects projectStore
	outbox   outboxStore
}

type ServiceDeps struct {
	UserRepo    userStore
	ProjectRepo projectStore
	OutboxRepo  outboxStore
}

func NewService(deps ServiceDeps) Service {
	return &service{users: deps.UserRepo, projects: deps.ProjectRepo, outbox: deps.OutboxRepo}
}

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.projects.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		UsersByRole:      byRole,
		ProjectsByStatus: byStatus,
		TotalUsers:       sum(byRole),
		TotalProjects:    sum(byStatus),
	}, nil
}

func (s *service) ListUsers(ctx context.Context, pg page.Request) ([]domain.User, page.Result, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, page.Result{}, err
	}
	out, res := page.Slice(users, pg)
	return out, res, nil
}

func (s *service) SetEnabled(ctx context.Context, adminID, userID string, enable bool) (*domain.User, error) {
	if adminID == userID && !enable {
		return nil, fmt.Errorf("admins cannot disable themselves: %w", domain.ErrBadRequest)
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{"enable": enable}); err != nil {
		return nil, err
	}
	return s.users.Get(ctx, userID)
}

// Broadcast queues a system notification for every enabled user and returns
// the number of recipients.
func (s *service) Broadcast(ctx context.Context, adminID string, req domain.BroadcastRequest) (int, error) {
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		return 0, fmt.Errorf("expires_at must be in the future: %w", domain.ErrBadRequest)
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, u := range users {
		if u.Enable {
			ids = append(ids, u.UserID)
		}
	}
	recipients := fanout.Recipients(adminID, ids...)
	tmpl := domain.NotificationTemplate{
		Type:      domain.NotifySystem,
		Title:     req.Title,
		Content:   req.Content,
		Link:      req.Link,
		ExpiresAt: req.ExpiresAt,
	}
	var events []*domain.OutboxEvent
	for start := 0; start < len(recipients); start += broadcastChunk {
		end := min(start+broadcastChunk, len(recipients))
		events = append(events, fanout.NewEvent(adminID, tmpl, recipients[start:end]...))
	}
	if len(events) == 0 {
		return 0, nil
	}
	if err := s.outbox.Enqueue(ctx, events...); err != nil {
		return 0, err
	}
	return len(recipients), nil
}
