// Package memstore is an in-memory stand-in for the DynamoDB repositories.
// It mirrors their method sets and conflict semantics so services can be
// exercised end to end in tests, outbox included.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/freelance-hub/internal/domain"
)

type Store struct {
	mu            sync.Mutex
	users         map[string]*domain.User
	projects      map[string]*domain.Project
	teams         map[string]*domain.Team
	tasks         map[string]*domain.Task
	messages      map[string]*domain.Message
	notifications map[string]*domain.Notification
	outbox        map[string]*domain.OutboxEvent
	recovery      map[string]*domain.RecoveryCode

	Users         *Users
	Projects      *Projects
	Teams         *Teams
	Tasks         *Tasks
	Messages      *Messages
	Notifications *Notifications
	Outbox        *Outbox
	Recovery      *Recovery
}

func New() *Store {
	s := &Store{
		users:         map[string]*domain.User{},
		projects:      map[string]*domain.Project{},
		teams:         map[string]*domain.Team{},
		tasks:         map[string]*domain.Task{},
		messages:      map[string]*domain.Message{},
		notifications: map[string]*domain.Notification{},
		outbox:        map[string]*domain.OutboxEvent{},
		recovery:      map[string]*domain.RecoveryCode{},
	}
	s.Users = &Users{s}
	s.Projects = &Projects{s}
	s.Teams = &Teams{s}
	s.Tasks = &Tasks{s}
	s.Messages = &Messages{s}
	s.Notifications = &Notifications{s}
	s.Outbox = &Outbox{s}
	s.Recovery = &Recovery{s}
	return s
}

// clone round-trips v through the DynamoDB codec, which both copies it and
// checks that it survives the real attribute encoding.
func clone[T any](v *T) *T {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := attributevalue.UnmarshalMap(item, &out); err != nil {
		panic(err)
	}
	return &out
}

func applyUpdates[T any](v *T, updates map[string]interface{}) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return err
	}
	for k, val := range updates {
		av, err := attributevalue.Marshal(val)
		if err != nil {
			return err
		}
		item[k] = av
	}
	return attributevalue.UnmarshalMap(item, v)
}

// enqueue must be called with s.mu held.
func (s *Store) enqueue(events []*domain.OutboxEvent) error {
	for _, ev := range events {
		if ev == nil || len(ev.Recipients) == 0 {
			continue
		}
		if _, ok := s.outbox[ev.EventID]; ok {
			return fmt.Errorf("outbox event exists: %w", domain.ErrConflict)
		}
	}
	for _, ev := range events {
		if ev == nil || len(ev.Recipients) == 0 {
			continue
		}
		s.outbox[ev.EventID] = clone(ev)
	}
	return nil
}

// --- users ---

type Users struct{ s *Store }

func (r *Users) Put(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.UserID]; ok {
		return fmt.Errorf("user exists: %w", domain.ErrConflict)
	}
	r.s.users[u.UserID] = clone(u)
	return nil
}

func (r *Users) Get(_ context.Context, userID string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return clone(u), nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
}

func (r *Users) Update(_ context.Context, userID string, updates map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	updates["updated_at"] = time.Now().UTC()
	return applyUpdates(u, updates)
}

func (r *Users) List(_ context.Context) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, *clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *Users) CountByRole(_ context.Context) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int{}
	for _, u := range r.s.users {
		counts[u.Role]++
	}
	return counts, nil
}

func (r *Users) RemoveNotificationRefs(_ context.Context, userID string, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	u.NotificationIDs = slices.DeleteFunc(u.NotificationIDs, func(id string) bool {
		return slices.Contains(ids, id)
	})
	return nil
}

// --- projects ---

type Projects struct{ s *Store }

func (r *Projects) Create(_ context.Context, p *domain.Project, events ...*domain.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[p.ProjectID]; ok {
		return fmt.Errorf("project exists: %w", domain.ErrConflict)
	}
	if err := r.s.enqueue(events); err != nil {
		return err
	}
	r.s.projects[p.ProjectID] = clone(p)
	return nil
}

func (r *Projects) Get(_ context.Context, projectID string) (*domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("project not found: %w", domain.ErrNotFound)
	}
	return clone(p), nil
}

func (r *Projects) List(_ context.Context, f domain.ProjectFilter) ([]domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Project
	for _, p := range r.s.projects {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.ClientID != "" && p.ClientID != f.ClientID {
			continue
		}
		if f.Skill != "" && !slices.Contains(p.Skills, f.Skill) {
			continue
		}
		out = append(out, *clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, nil
}

func (r *Projects) ListForUser(_ context.Context, userID string, teamIDs []string) ([]domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Project
	for _, p := range r.s.projects {
		if p.ClientID == userID || p.IsAssigned(userID) || (p.TeamID != "" && slices.Contains(teamIDs, p.TeamID)) {
			out = append(out, *clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, nil
}

func (r *Projects) ListByTeam(_ context.Context, teamID string) ([]domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Project
	for _, p := range r.s.projects {
		if p.TeamID == teamID {
			out = append(out, *clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, nil
}

func (r *Projects) Save(_ context.Context, p *domain.Project, expectedVersion int, events ...*domain.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.projects[p.ProjectID]
	if !ok || cur.Version != expectedVersion {
		return fmt.Errorf("condition failed: %w", domain.ErrConflict)
	}
	if err := r.s.enqueue(events); err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	p.UpdatedAt = time.Now().UTC()
	r.s.projects[p.ProjectID] = clone(p)
	return nil
}

func (r *Projects) Delete(_ context.Context, projectID string, version int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.projects[projectID]
	if !ok || cur.Version != version {
		return fmt.Errorf("condition failed: %w", domain.ErrConflict)
	}
	delete(r.s.projects, projectID)
	return nil
}

func (r *Projects) CountByStatus(_ context.Context) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int{}
	for _, p := range r.s.projects {
		counts[p.Status]++
	}
	return counts, nil
}

// --- teams ---

type Teams struct{ s *Store }

func (r *Teams) Create(_ context.Context, t *domain.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[t.TeamID]; ok {
		return fmt.Errorf("team exists: %w", domain.ErrConflict)
	}
	r.s.teams[t.TeamID] = clone(t)
	return nil
}

func (r *Teams) Get(_ context.Context, teamID string) (*domain.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[teamID]
	if !ok {
		return nil, fmt.Errorf("team not found: %w", domain.ErrNotFound)
	}
	return clone(t), nil
}

func (r *Teams) ListByMember(_ context.Context, userID string) ([]domain.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Team
	for _, t := range r.s.teams {
		if t.IsMember(userID) {
			out = append(out, *clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out, nil
}

func (r *Teams) AddMember(_ context.Context, teamID, userID string, m domain.TeamMember, events ...*domain.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[teamID]
	if !ok || t.IsMember(userID) {
		return fmt.Errorf("condition failed: %w", domain.ErrConflict)
	}
	if err := r.s.enqueue(events); err != nil {
		return err
	}
	if t.Members == nil {
		t.Members = map[string]domain.TeamMember{}
	}
	t.Members[userID] = m
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Teams) RemoveMember(_ context.Context, teamID, userID string, events ...*domain.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[teamID]
	if !ok || !t.IsMember(userID) || t.LeaderID == userID {
		return fmt.Errorf("condition failed: %w", domain.ErrConflict)
	}
	if err := r.s.enqueue(events); err != nil {
		return err
	}
	delete(t.Members, userID)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// --- tasks ---

type Tasks struct{ s *Store }

func (r *Tasks) Create(_ context.Context, t *domain.Task, events ...*domain.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[t.TaskID]; ok {
		return fmt.Errorf("task exists: %w", domain.ErrConflict)
	}
	p, ok := r.s.projects[t.ProjectID]
	if !ok {
		return fmt.Errorf("project not found: %w", domain.ErrNotFound)
	}
	var parent *domain.Task
	if t.ParentID != "" {
		parent, ok = r.s.tasks[t.ParentID]
		if !ok || parent.ProjectID != t.ProjectID {
			return fmt.Errorf("parent task not found: %w", domain.ErrNotFound)
		}
	}
	if err := r.s.enqueue(events); err != nil {
		return err
	}
	r.s.tasks[t.TaskID] = clone(t)
	p.TaskIDs = append(p.TaskIDs, t.TaskID)
	p.Version++
	if parent != nil {
		parent.SubtaskIDs = append(parent.SubtaskIDs, t.TaskID)
	}
	return nil
}

func (r *Tasks) Get(_ context.Context, taskID string) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	return clone(t), nil
}

func (r *Tasks) ListByProject(_ context.Context, projectID string) ([]domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Task
	for _, t := range r.s.tasks {
		if t.ProjectID == projectID {
			out = append(out, *clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func (r *Tasks) Update(_ context.Context, taskID string, updates map[string]interface{}, events ...*domain.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	if err := r.s.enqueue(events); err != nil {
		return err
	}
	updates["updated_at"] = time.Now().UTC()
	return applyUpdates(t, updates)
}

func (r *Tasks) DeleteCascade(_ context.Context, ids []string, project *domain.Project, parent *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[project.ProjectID]
	if !ok || p.Version != project.Version {
		return fmt.Errorf("condition failed: %w", domain.ErrConflict)
	}
	var par *domain.Task
	if parent != nil {
		par, ok = r.s.tasks[parent.TaskID]
		if !ok || !slices.Equal(par.SubtaskIDs, parent.SubtaskIDs) {
			return fmt.Errorf("condition failed: %w", domain.ErrConflict)
		}
	}
	drop := func(id string) bool { return slices.Contains(ids, id) }
	for _, id := range ids {
		delete(r.s.tasks, id)
	}
	p.TaskIDs = slices.DeleteFunc(slices.Clone(project.TaskIDs), drop)
	p.Version++
	if par != nil {
		par.SubtaskIDs = slices.DeleteFunc(slices.Clone(parent.SubtaskIDs), drop)
	}
	return nil
}

func (r *Tasks) DeleteByProject(_ context.Context, projectID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, t := range r.s.tasks {
		if t.ProjectID == projectID {
			delete(r.s.tasks, id)
		}
	}
	return nil
}

// --- messages ---

type Messages struct{ s *Store }

func (r *Messages) Create(_ context.Context, m *domain.Message, events ...*domain.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.messages[m.MessageID]; ok {
		return fmt.Errorf("message exists: %w", domain.ErrConflict)
	}
	if err := r.s.enqueue(events); err != nil {
		return err
	}
	if m.Reactions == nil {
		m.Reactions = map[string]string{}
	}
	if m.ReadBy == nil {
		m.ReadBy = map[string]time.Time{}
	}
	r.s.messages[m.MessageID] = clone(m)
	return nil
}

func (r *Messages) Get(_ context.Context, messageID string) (*domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("message not found: %w", domain.ErrNotFound)
	}
	return clone(m), nil
}

func (r *Messages) ListConversation(_ context.Context, conversationKey string) ([]domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Message
	for _, m := range r.s.messages {
		if m.ConversationKey == conversationKey {
			out = append(out, *clone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessageID > out[j].MessageID })
	return out, nil
}

func (r *Messages) MarkRead(_ context.Context, messageID, userID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[messageID]
	if !ok || m.ReadByUser(userID) {
		return false, nil
	}
	m.ReadBy[userID] = at
	return true, nil
}

func (r *Messages) SetReaction(_ context.Context, messageID, userID, emoji string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[messageID]
	if !ok {
		return false, fmt.Errorf("message not found: %w", domain.ErrNotFound)
	}
	if m.Reactions[userID] == emoji {
		delete(m.Reactions, userID)
		return true, nil
	}
	m.Reactions[userID] = emoji
	return false, nil
}

func (r *Messages) Delete(_ context.Context, messageID, senderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[messageID]
	if !ok || m.SenderID != senderID {
		return fmt.Errorf("only the sender can delete a message: %w", domain.ErrForbidden)
	}
	delete(r.s.messages, messageID)
	return nil
}

// Count returns the number of stored messages.
func (r *Messages) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.messages)
}

// --- notifications ---

type Notifications struct{ s *Store }

func (r *Notifications) PutForRecipient(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notifications[n.NotificationID]; ok {
		return fmt.Errorf("notification %s already delivered: %w", n.NotificationID, domain.ErrConflict)
	}
	u, ok := r.s.users[n.RecipientID]
	if !ok {
		return fmt.Errorf("recipient %s not found: %w", n.RecipientID, domain.ErrNotFound)
	}
	r.s.notifications[n.NotificationID] = clone(n)
	u.NotificationIDs = append(u.NotificationIDs, n.NotificationID)
	return nil
}

func (r *Notifications) Get(_ context.Context, notificationID string) (*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[notificationID]
	if !ok {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	return clone(n), nil
}

func (r *Notifications) ListByRecipient(_ context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.s.notifications {
		if n.RecipientID == userID && (!unreadOnly || !n.Read) {
			out = append(out, *clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NotificationID > out[j].NotificationID })
	return out, nil
}

func (r *Notifications) MarkRead(_ context.Context, notificationID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[notificationID]
	if !ok {
		return fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	n.Read = true
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	return nil
}

func (r *Notifications) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	unread, _ := r.ListByRecipient(ctx, userID, true)
	for _, n := range unread {
		if err := r.MarkRead(ctx, n.NotificationID, at); err != nil {
			return 0, err
		}
	}
	return len(unread), nil
}

func (r *Notifications) Delete(_ context.Context, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		delete(r.s.notifications, id)
	}
	return nil
}

func (r *Notifications) CompleteAction(_ context.Context, notificationID string, index int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[notificationID]
	if !ok || index < 0 || index >= len(n.Actions) {
		return fmt.Errorf("action %d: %w", index, domain.ErrNotFound)
	}
	n.Actions[index].Completed = true
	return nil
}

// --- outbox ---

type Outbox struct{ s *Store }

func (r *Outbox) Enqueue(_ context.Context, events ...*domain.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.enqueue(events)
}

func (r *Outbox) ListPending(_ context.Context, limit int) ([]domain.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.OutboxEvent
	for _, ev := range r.s.outbox {
		if ev.State == domain.OutboxPending {
			out = append(out, *clone(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Outbox) Delete(_ context.Context, eventID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.outbox, eventID)
	return nil
}

func (r *Outbox) RecordFailure(_ context.Context, eventID, reason string, failed bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev, ok := r.s.outbox[eventID]
	if !ok {
		return fmt.Errorf("outbox event not found: %w", domain.ErrNotFound)
	}
	ev.Attempts++
	ev.LastError = reason
	if failed {
		ev.State = domain.OutboxFailed
	}
	return nil
}

// Events returns every stored outbox event, oldest first.
func (r *Outbox) Events() []domain.OutboxEvent {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.OutboxEvent, 0, len(r.s.outbox))
	for _, ev := range r.s.outbox {
		out = append(out, *clone(ev))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}

// --- recovery codes ---

type Recovery struct{ s *Store }

func recoveryKey(userID, typ string) string { return userID + "#" + typ }

func (r *Recovery) Put(_ context.Context, c *domain.RecoveryCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.recovery[recoveryKey(c.UserID, c.Type)] = clone(c)
	return nil
}

func (r *Recovery) Get(_ context.Context, userID, typ string) (*domain.RecoveryCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.recovery[recoveryKey(userID, typ)]
	if !ok || c.ExpiresAt <= time.Now().Unix() {
		return nil, fmt.Errorf("recovery code not found: %w", domain.ErrNotFound)
	}
	return clone(c), nil
}

func (r *Recovery) Delete(_ context.Context, userID, typ string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.recovery, recoveryKey(userID, typ))
	return nil
}
