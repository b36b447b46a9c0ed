package http

import (
	"context"
	"time"

	"github.com/freelance-hub/internal/domain"
)

// Repository interfaces the router needs. The DynamoDB repos satisfy them in
// production and the in-memory store in tests.

type UserRepository interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	List(ctx context.Context) ([]domain.User, error)
	RemoveNotificationRefs(ctx context.Context, userID string, ids []string) error
	CountByRole(ctx context.Context) (map[string]int, error)
}

type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project, events ...*domain.OutboxEvent) error
	Get(ctx context.Context, projectID string) (*domain.Project, error)
	List(ctx context.Context, f domain.ProjectFilter) ([]domain.Project, error)
	ListForUser(ctx context.Context, userID string, teamIDs []string) ([]domain.Project, error)
	ListByTeam(ctx context.Context, teamID string) ([]domain.Project, error)
	Save(ctx context.Context, p *domain.Project, expectedVersion int, events ...*domain.OutboxEvent) error
	Delete(ctx context.Context, projectID string, version int) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type TeamRepository interface {
	Create(ctx context.Context, t *domain.Team) error
	Get(ctx context.Context, teamID string) (*domain.Team, error)
	ListByMember(ctx context.Context, userID string) ([]domain.Team, error)
	AddMember(ctx context.Context, teamID, userID string, m domain.TeamMember, events ...*domain.OutboxEvent) error
	RemoveMember(ctx context.Context, teamID, userID string, events ...*domain.OutboxEvent) error
}

type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task, events ...*domain.OutboxEvent) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Task, error)
	Update(ctx context.Context, taskID string, updates map[string]interface{}, events ...*domain.OutboxEvent) error
	DeleteCascade(ctx context.Context, ids []string, project *domain.Project, parent *domain.Task) error
	DeleteByProject(ctx context.Context, projectID string) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message, events ...*domain.OutboxEvent) error
	Get(ctx context.Context, messageID string) (*domain.Message, error)
	ListConversation(ctx context.Context, conversationKey string) ([]domain.Message, error)
	MarkRead(ctx context.Context, messageID, userID string, at time.Time) (bool, error)
	SetReaction(ctx context.Context, messageID, userID, emoji string) (bool, error)
	Delete(ctx context.Context, messageID, senderID string) error
}

type NotificationRepository interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	Delete(ctx context.Context, ids []string) error
	CompleteAction(ctx context.Context, notificationID string, index int) error
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, events ...*domain.OutboxEvent) error
}

type RecoveryRepository interface {
	Put(ctx context.Context, c *domain.RecoveryCode) error
	Get(ctx context.Context, userID, typ string) (*domain.RecoveryCode, error)
	Delete(ctx context.Context, userID, typ string) error
}

// Emitter publishes socket events and room membership changes.
type Emitter interface {
	Emit(ctx context.Context, room, event string, data any)
	JoinRoom(ctx context.Context, userID, room string)
	LeaveRoom(ctx context.Context, userID, room string)
}

// Presence counts open sockets per user.
type Presence interface {
	Connect(ctx context.Context, userID string) error
	Disconnect(ctx context.Context, userID string) error
}
