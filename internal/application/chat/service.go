package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/freelance-hub/internal/application/fanout"
	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/pkg/id"
	"github.com/freelance-hub/internal/pkg/page"
	"github.com/freelance-hub/internal/realtime"
)

const excerptLen = 120

type Service interface {
	Send(ctx context.Context, senderID string, target domain.ChatTarget, req domain.SendMessageRequest) (*domain.Message, error)
	Conversation(ctx context.Context, userID string, target domain.ChatTarget, pg page.Request) ([]domain.Message, page.Result, error)
	MarkRead(ctx context.Context, userID, messageID string) (*domain.Message, error)
	MarkConversationRead(ctx context.Context, userID string, target domain.ChatTarget) (int, error)
	React(ctx context.Context, userID, messageID, emoji string) (*domain.Message, error)
	Delete(ctx context.Context, userID, messageID string) error
	Typing(ctx context.Context, userID string, target domain.ChatTarget, typing bool) error
}

type messageStore interface {
	Create(ctx context.Context, m *domain.Message, events ...*domain.OutboxEvent) error
	Get(ctx context.Context, messageID string) (*domain.Message, error)
	ListConversation(ctx context.Context, conversationKey string) ([]domain.Message, error)
	MarkRead(ctx context.Context, messageID, userID string, at time.Time) (bool, error)
	SetReaction(ctx context.Context, messageID, userID, emoji string) (bool, error)
	Delete(ctx context.Context, messageID, senderID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type accessResolver interface {
	Project(ctx context.Context, userID, projectID string) (*domain.Project, error)
	Team(ctx context.Context, userID, teamID string) (*domain.Team, error)
	Participants(ctx context.Context, p *domain.Project) ([]string, error)
}

type emitter interface {
	Emit(ctx context.Context, room, event string, data any)
}

type service struct {
	messages messageStore
	users    userStore
	access   accessResolver
	emitter  emitter
}

type ServiceDeps struct {
	MessageRepo messageStore
	UserRepo    userStore
	Access      accessResolver
	Emitter     emitter
}

func NewService(deps ServiceDeps) Service {
	return &service{
		messages: deps.MessageRepo,
		users:    deps.UserRepo,
		access:   deps.Access,
		emitter:  deps.Emitter,
	}
}

// conversation is the resolved audience of a chat target for one actor.
type conversation struct {
	key     string
	members []string // everyone who may read, actor included
	rooms   []string
	event   string
	related domain.Related
	link    string
}

func (c *conversation) has(userID string) bool {
	for _, m := range c.members {
		if m == userID {
			return true
		}
	}
	return false
}

// resolve authorizes userID against target and returns its audience.
func (s *service) resolve(ctx context.Context, userID string, target domain.ChatTarget) (*conversation, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("invalid chat target: %w", domain.ErrBadRequest)
	}
	c := &conversation{key: domain.ConversationKey(userID, target)}
	switch target.Kind {
	case domain.ConversationDirect:
		if target.ID == userID {
			return nil, fmt.Errorf("cannot message yourself: %w", domain.ErrBadRequest)
		}
		if _, err := s.users.Get(ctx, target.ID); err != nil {
			return nil, err
		}
		c.members = []string{userID, target.ID}
		c.rooms = []string{realtime.UserRoom(userID), realtime.UserRoom(target.ID)}
		c.event = realtime.EventNewMessage
		c.related = domain.Related{UserID: userID}
		c.link = "/chats/direct/" + userID
	case domain.ConversationTeam:
		t, err := s.access.Team(ctx, userID, target.ID)
		if err != nil {
			return nil, err
		}
		c.members = t.MemberIDs()
		c.rooms = []string{realtime.TeamRoom(t.TeamID)}
		c.event = realtime.EventNewTeamMessage
		c.related = domain.Related{TeamID: t.TeamID, UserID: userID}
		c.link = "/chats/teams/" + t.TeamID
	case domain.ConversationProject:
		p, err := s.access.Project(ctx, userID, target.ID)
		if err != nil {
			return nil, err
		}
		members, err := s.access.Participants(ctx, p)
		if err != nil {
			return nil, err
		}
		c.members = members
		c.rooms = []string{realtime.ProjectRoom(p.ProjectID)}
		c.event = realtime.EventNewProjectMessage
		c.related = domain.Related{ProjectID: p.ProjectID, UserID: userID}
		c.link = "/chats/projects/" + p.ProjectID
	}
	return c, nil
}

// resolveMessage authorizes userID against the conversation m belongs to.
// For direct messages the resolution runs from the sender's side.
func (s *service) resolveMessage(ctx context.Context, userID string, m *domain.Message) (*conversation, error) {
	if m.Target.Kind == domain.ConversationDirect {
		if userID != m.SenderID && userID != m.Target.ID {
			return nil, fmt.Errorf("not a conversation participant: %w", domain.ErrForbidden)
		}
		return &conversation{
			key:     m.ConversationKey,
			members: []string{m.SenderID, m.Target.ID},
			rooms:   []string{realtime.UserRoom(m.SenderID), realtime.UserRoom(m.Target.ID)},
		}, nil
	}
	return s.resolve(ctx, userID, m.Target)
}

func (s *service) Send(ctx context.Context, senderID string, target domain.ChatTarget, req domain.SendMessageRequest) (*domain.Message, error) {
	conv, err := s.resolve(ctx, senderID, target)
	if err != nil {
		return nil, err
	}
	if req.ReplyTo != "" {
		parent, err := s.messages.Get(ctx, req.ReplyTo)
		if err != nil {
			return nil, fmt.Errorf("reply target: %w", err)
		}
		if parent.ConversationKey != conv.key {
			return nil, fmt.Errorf("reply target belongs to another conversation: %w", domain.ErrBadRequest)
		}
	}
	msgType := req.Type
	if msgType == "" {
		msgType = domain.MessageText
	}
	m := &domain.Message{
		MessageID:       id.New(),
		SenderID:        senderID,
		Target:          target,
		ConversationKey: conv.key,
		Content:         req.Content,
		Type:            msgType,
		ReplyTo:         req.ReplyTo,
		Reactions:       map[string]string{},
		ReadBy:          map[string]time.Time{},
		CreatedAt:       time.Now().UTC(),
	}
	related := conv.related
	related.MessageID = m.MessageID
	ev := fanout.NewEvent(senderID, domain.NotificationTemplate{
		Type:    domain.NotifyMessage,
		Title:   "New message",
		Content: fanout.Excerpt(m.Content, excerptLen),
		Link:    conv.link,
		Related: related,
	}, conv.members...)

	if err := s.messages.Create(ctx, m, ev); err != nil {
		return nil, err
	}
	for _, room := range conv.rooms {
		s.emitter.Emit(ctx, room, conv.event, m)
	}
	return m, nil
}

func (s *service) Conversation(ctx context.Context, userID string, target domain.ChatTarget, pg page.Request) ([]domain.Message, page.Result, error) {
	conv, err := s.resolve(ctx, userID, target)
	if err != nil {
		return nil, page.Result{}, err
	}
	msgs, err := s.messages.ListConversation(ctx, conv.key)
	if err != nil {
		return nil, page.Result{}, err
	}
	out, res := page.Slice(msgs, pg)
	return out, res, nil
}

func (s *service) MarkRead(ctx context.Context, userID, messageID string) (*domain.Message, error) {
	m, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	conv, err := s.resolveMessage(ctx, userID, m)
	if err != nil {
		return nil, err
	}
	if m.SenderID == userID {
		return nil, fmt.Errorf("sender cannot mark own message read: %w", domain.ErrForbidden)
	}
	if !conv.has(userID) {
		return nil, fmt.Errorf("not a conversation participant: %w", domain.ErrForbidden)
	}
	if err := s.markRead(ctx, userID, m, conv); err != nil {
		return nil, err
	}
	return s.messages.Get(ctx, messageID)
}

func (s *service) markRead(ctx context.Context, userID string, m *domain.Message, conv *conversation) error {
	at := time.Now().UTC()
	added, err := s.messages.MarkRead(ctx, m.MessageID, userID, at)
	if err != nil {
		return err
	}
	if added {
		payload := map[string]any{"message_id": m.MessageID, "user_id": userID, "read_at": at}
		for _, room := range conv.rooms {
			s.emitter.Emit(ctx, room, realtime.EventMessageRead, payload)
		}
	}
	return nil
}

func (s *service) MarkConversationRead(ctx context.Context, userID string, target domain.ChatTarget) (int, error) {
	conv, err := s.resolve(ctx, userID, target)
	if err != nil {
		return 0, err
	}
	msgs, err := s.messages.ListConversation(ctx, conv.key)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range msgs {
		m := &msgs[i]
		if m.SenderID == userID || m.ReadByUser(userID) {
			continue
		}
		if err := s.markRead(ctx, userID, m, conv); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *service) React(ctx context.Context, userID, messageID, emoji string) (*domain.Message, error) {
	m, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	conv, err := s.resolveMessage(ctx, userID, m)
	if err != nil {
		return nil, err
	}
	removed, err := s.messages.SetReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"message_id": messageID, "user_id": userID, "emoji": emoji, "removed": removed}
	for _, room := range conv.rooms {
		s.emitter.Emit(ctx, room, realtime.EventMessageReaction, payload)
	}
	return s.messages.Get(ctx, messageID)
}

func (s *service) Delete(ctx context.Context, userID, messageID string) error {
	m, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != userID {
		return fmt.Errorf("only the sender can delete a message: %w", domain.ErrForbidden)
	}
	conv, err := s.resolveMessage(ctx, userID, m)
	if err != nil {
		return err
	}
	if err := s.messages.Delete(ctx, messageID, userID); err != nil {
		return err
	}
	for _, room := range conv.rooms {
		s.emitter.Emit(ctx, room, realtime.EventMessageDeleted, map[string]string{"message_id": messageID})
	}
	return nil
}

func (s *service) Typing(ctx context.Context, userID string, target domain.ChatTarget, typing bool) error {
	conv, err := s.resolve(ctx, userID, target)
	if err != nil {
		return err
	}
	event := realtime.EventUserStopTyping
	if typing {
		event = realtime.EventUserTyping
	}
	payload := map[string]any{"user_id": userID, "target": target}
	for _, room := range conv.rooms {
		if room == realtime.UserRoom(userID) {
			continue
		}
		s.emitter.Emit(ctx, room, event, payload)
	}
	return nil
}
