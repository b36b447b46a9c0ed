package domain

import (
	"fmt"
	"time"
)

// ConversationKind discriminates the single target a chat message is addressed to.
type ConversationKind string

const (
	ConversationDirect  ConversationKind = "direct"
	ConversationTeam    ConversationKind = "team"
	ConversationProject ConversationKind = "project"
)

const (
	MessageText   = "text"
	MessageImage  = "image"
	MessageFile   = "file"
	MessageSystem = "system"
)

// ChatTarget is the one addressee of a message: a recipient user for direct
// messages, otherwise a team or a project. Build it with DirectTo, TeamTarget
// or ProjectTarget.
type ChatTarget struct {
	Kind ConversationKind `json:"kind" dynamodbav:"kind"`
	ID   string           `json:"id" dynamodbav:"id"`
}

func DirectTo(recipientID string) ChatTarget {
	return ChatTarget{Kind: ConversationDirect, ID: recipientID}
}

func TeamTarget(teamID string) ChatTarget {
	return ChatTarget{Kind: ConversationTeam, ID: teamID}
}

func ProjectTarget(projectID string) ChatTarget {
	return ChatTarget{Kind: ConversationProject, ID: projectID}
}

func (t ChatTarget) Valid() bool {
	if t.ID == "" {
		return false
	}
	switch t.Kind {
	case ConversationDirect, ConversationTeam, ConversationProject:
		return true
	}
	return false
}

// ConversationKey returns the index key grouping every message of one
// conversation. Direct keys are symmetric in the two participants.
func ConversationKey(senderID string, t ChatTarget) string {
	switch t.Kind {
	case ConversationDirect:
		a, b := senderID, t.ID
		if b < a {
			a, b = b, a
		}
		return fmt.Sprintf("dm#%s#%s", a, b)
	case ConversationTeam:
		return "team#" + t.ID
	default:
		return "project#" + t.ID
	}
}

type Message struct {
	MessageID       string               `json:"id" dynamodbav:"message_id"`
	SenderID        string               `json:"sender_id" dynamodbav:"sender_id"`
	Target          ChatTarget           `json:"target" dynamodbav:"target"`
	ConversationKey string               `json:"conversation_key" dynamodbav:"conversation_key"`
	Content         string               `json:"content" dynamodbav:"content"`
	Type            string               `json:"type" dynamodbav:"type"`
	ReplyTo         string               `json:"reply_to,omitempty" dynamodbav:"reply_to"`
	Reactions       map[string]string    `json:"reactions" dynamodbav:"reactions"`
	ReadBy          map[string]time.Time `json:"read_by" dynamodbav:"read_by"`
	CreatedAt       time.Time            `json:"created" dynamodbav:"created_at"`
}

// ReadByUser reports whether userID holds a read marker on the message.
func (m *Message) ReadByUser(userID string) bool {
	_, ok := m.ReadBy[userID]
	return ok
}

// IsRead reports, for direct messages, whether the recipient has read it.
// Group messages are read per user; use ReadByUser.
func (m *Message) IsRead() bool {
	if m.Target.Kind != ConversationDirect {
		return false
	}
	return m.ReadByUser(m.Target.ID)
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
	Type    string `json:"type" validate:"omitempty,oneof=text image file system"`
	ReplyTo string `json:"reply_to"`
}

type ReactRequest struct {
	Emoji string `json:"emoji" validate:"required,max=32"`
}
