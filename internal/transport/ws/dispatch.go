package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/pkg/validate"
	"github.com/freelance-hub/internal/realtime"
	"go.uber.org/zap"
)

var errUnknownEvent = errors.New("unknown event")

type chatService interface {
	Send(ctx context.Context, senderID string, target domain.ChatTarget, req domain.SendMessageRequest) (*domain.Message, error)
	Typing(ctx context.Context, userID string, target domain.ChatTarget, typing bool) error
}

type projectService interface {
	BroadcastUpdate(ctx context.Context, actorID, projectID string, update any) error
}

// messagePayload is the body of every inbound send event. Exactly one of
// To, TeamID and ProjectID addresses it.
type messagePayload struct {
	To        string `json:"to"`
	TeamID    string `json:"teamId"`
	ProjectID string `json:"projectId"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	ReplyTo   string `json:"replyTo"`
}

type projectUpdatePayload struct {
	ProjectID string          `json:"projectId"`
	Update    json.RawMessage `json:"update"`
}

// Dispatcher routes inbound socket events to the chat and project services.
type Dispatcher struct {
	chat     chatService
	projects projectService
	log      *zap.Logger
}

func NewDispatcher(chat chatService, projects projectService, log *zap.Logger) *Dispatcher {
	return &Dispatcher{chat: chat, projects: projects, log: log}
}

// Handle satisfies realtime.EventHandler. A returned error is reported to the
// sending socket only.
func (d *Dispatcher) Handle(ctx context.Context, c *realtime.Client, env realtime.Envelope) error {
	switch env.Event {
	case realtime.InPrivateMessage, realtime.InTeamMessage, realtime.InProjectMessage:
		var p messagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("malformed payload")
		}
		target, err := targetFor(env.Event, p)
		if err != nil {
			return err
		}
		req := domain.SendMessageRequest{Content: p.Content, Type: p.Type, ReplyTo: p.ReplyTo}
		if err := validate.Struct(req); err != nil {
			return err
		}
		_, err = d.chat.Send(ctx, c.UserID, target, req)
		return d.clientError(env.Event, err)

	case realtime.InTyping, realtime.InStopTyping:
		var p messagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("malformed payload")
		}
		target, err := typingTarget(p)
		if err != nil {
			return err
		}
		return d.clientError(env.Event, d.chat.Typing(ctx, c.UserID, target, env.Event == realtime.InTyping))

	case realtime.InProjectUpdate:
		var p projectUpdatePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ProjectID == "" {
			return fmt.Errorf("malformed payload")
		}
		return d.clientError(env.Event, d.projects.BroadcastUpdate(ctx, c.UserID, p.ProjectID, p.Update))
	}
	return errUnknownEvent
}

// clientError hides internal failures from the socket.
func (d *Dispatcher) clientError(event string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{domain.ErrNotFound, domain.ErrForbidden, domain.ErrBadRequest, domain.ErrConflict, domain.ErrUnauthorized} {
		if errors.Is(err, known) {
			return err
		}
	}
	d.log.Error("socket event failed", zap.String("event", event), zap.Error(err))
	return errors.New("internal error")
}

func targetFor(event string, p messagePayload) (domain.ChatTarget, error) {
	var t domain.ChatTarget
	switch event {
	case realtime.InPrivateMessage:
		t = domain.DirectTo(p.To)
	case realtime.InTeamMessage:
		t = domain.TeamTarget(p.TeamID)
	default:
		t = domain.ProjectTarget(p.ProjectID)
	}
	if !t.Valid() {
		return t, fmt.Errorf("missing conversation id: %w", domain.ErrBadRequest)
	}
	return t, nil
}

func typingTarget(p messagePayload) (domain.ChatTarget, error) {
	switch {
	case p.To != "":
		return domain.DirectTo(p.To), nil
	case p.TeamID != "":
		return domain.TeamTarget(p.TeamID), nil
	case p.ProjectID != "":
		return domain.ProjectTarget(p.ProjectID), nil
	}
	return domain.ChatTarget{}, fmt.Errorf("missing conversation id: %w", domain.ErrBadRequest)
}
