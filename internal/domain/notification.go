package domain

import "time"

const (
	NotifyProject   = "project"
	NotifyProposal  = "proposal"
	NotifyTeam      = "team"
	NotifyTask      = "task"
	NotifyMessage   = "message"
	NotifyPayment   = "payment"
	NotifyMilestone = "milestone"
	NotifySystem    = "system"
	NotifyBadge     = "badge"
)

type Notification struct {
	NotificationID string               `json:"id" dynamodbav:"notification_id"`
	RecipientID    string               `json:"recipient_id" dynamodbav:"recipient_id"`
	EventID        string               `json:"-" dynamodbav:"event_id"`
	Type           string               `json:"type" dynamodbav:"type"`
	Title          string               `json:"title" dynamodbav:"title"`
	Content        string               `json:"content" dynamodbav:"content"`
	Read           bool                 `json:"read" dynamodbav:"read"`
	ReadAt         *time.Time           `json:"read_at,omitempty" dynamodbav:"read_at,omitempty"`
	Link           string               `json:"link,omitempty" dynamodbav:"link"`
	Related        Related              `json:"related" dynamodbav:"related"`
	Actions        []NotificationAction `json:"actions,omitempty" dynamodbav:"actions"`
	ExpiresAt      *time.Time           `json:"expires_at,omitempty" dynamodbav:"expires_at,omitempty"`
	IsExpired      bool                 `json:"expired" dynamodbav:"-"`
	CreatedAt      time.Time            `json:"created" dynamodbav:"created_at"`
}

// Related holds references to the entities a notification is about.
type Related struct {
	ProjectID string `json:"project_id,omitempty" dynamodbav:"project_id,omitempty"`
	TeamID    string `json:"team_id,omitempty" dynamodbav:"team_id,omitempty"`
	TaskID    string `json:"task_id,omitempty" dynamodbav:"task_id,omitempty"`
	MessageID string `json:"message_id,omitempty" dynamodbav:"message_id,omitempty"`
	UserID    string `json:"user_id,omitempty" dynamodbav:"user_id,omitempty"`
}

type NotificationAction struct {
	Label     string `json:"label" dynamodbav:"label"`
	Endpoint  string `json:"endpoint" dynamodbav:"endpoint"`
	Method    string `json:"method" dynamodbav:"method"`
	Completed bool   `json:"completed" dynamodbav:"completed"`
}

// Expired reports whether the notification has passed its expiry at now.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

type BroadcastRequest struct {
	Title     string     `json:"title" validate:"required,max=200"`
	Content   string     `json:"content" validate:"required,max=2000"`
	Link      string     `json:"link" validate:"omitempty,max=500"`
	ExpiresAt *time.Time `json:"expires_at"`
}
