package domain

import "time"

const (
	OutboxPending = "pending"
	OutboxFailed  = "failed"
)

// OutboxEvent is a notification side effect persisted in the same transaction
// as the mutation that caused it. The relay turns it into one Notification
// per recipient.
type OutboxEvent struct {
	EventID      string               `json:"id" dynamodbav:"event_id"`
	State        string               `json:"state" dynamodbav:"state"`
	ActorID      string               `json:"actor_id" dynamodbav:"actor_id"`
	Recipients   []string             `json:"recipients" dynamodbav:"recipients"`
	Notification NotificationTemplate `json:"notification" dynamodbav:"notification"`
	Attempts     int                  `json:"attempts" dynamodbav:"attempts"`
	LastError    string               `json:"last_error,omitempty" dynamodbav:"last_error"`
	CreatedAt    time.Time            `json:"created" dynamodbav:"created_at"`
}

// NotificationTemplate is the recipient-independent part of a notification.
type NotificationTemplate struct {
	Type      string               `json:"type" dynamodbav:"type"`
	Title     string               `json:"title" dynamodbav:"title"`
	Content   string               `json:"content" dynamodbav:"content"`
	Link      string               `json:"link,omitempty" dynamodbav:"link"`
	Related   Related              `json:"related" dynamodbav:"related"`
	Actions   []NotificationAction `json:"actions,omitempty" dynamodbav:"actions"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty" dynamodbav:"expires_at,omitempty"`
}

// NotificationID derives the id of the notification an event produces for a
// recipient, so a replayed event cannot create a second document.
func NotificationID(eventID, recipientID string) string {
	return eventID + "-" + recipientID
}

// NotificationFor materializes the template for one recipient.
func (e *OutboxEvent) NotificationFor(recipientID string) *Notification {
	t := e.Notification
	return &Notification{
		NotificationID: NotificationID(e.EventID, recipientID),
		RecipientID:    recipientID,
		EventID:        e.EventID,
		Type:           t.Type,
		Title:          t.Title,
		Content:        t.Content,
		Link:           t.Link,
		Related:        t.Related,
		Actions:        append([]NotificationAction(nil), t.Actions...),
		ExpiresAt:      t.ExpiresAt,
		CreatedAt:      e.CreatedAt,
	}
}
