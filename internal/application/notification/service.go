package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/pkg/page"
)

type Service interface {
	List(ctx context.Context, userID string, unreadOnly bool, pg page.Request) ([]domain.Notification, page.Result, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	Get(ctx context.Context, userID, notificationID string) (*domain.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID, notificationID string) error
	DeleteAllRead(ctx context.Context, userID string) (int, error)
	CompleteAction(ctx context.Context, userID, notificationID string, index int) (*domain.Notification, error)
}

type notificationStore interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	Delete(ctx context.Context, ids []string) error
	CompleteAction(ctx context.Context, notificationID string, index int) error
}

type userStore interface {
	RemoveNotificationRefs(ctx context.Context, userID string, ids []string) error
}

type service struct {
	repo  notificationStore
	users userStore
	now   func() time.Time
}

func NewService(repo notificationStore, users userStore) Service {
	return &service{repo: repo, users: users, now: time.Now}
}

// visible drops expired notifications.
func (s *service) visible(items []domain.Notification) []domain.Notification {
	now := s.now()
	out := items[:0]
	for _, n := range items {
		if !n.Expired(now) {
			out = append(out, n)
		}
	}
	return out
}

func (s *service) List(ctx context.Context, userID string, unreadOnly bool, pg page.Request) ([]domain.Notification, page.Result, error) {
	items, err := s.repo.ListByRecipient(ctx, userID, unreadOnly)
	if err != nil {
		return nil, page.Result{}, err
	}
	out, res := page.Slice(s.visible(items), pg)
	return out, res, nil
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	items, err := s.repo.ListByRecipient(ctx, userID, true)
	if err != nil {
		return 0, err
	}
	return len(s.visible(items)), nil
}

// owned loads a notification and checks that userID is its recipient.
func (s *service) owned(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	n.IsExpired = n.Expired(s.now())
	return n, nil
}

func (s *service) Get(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	return s.owned(ctx, userID, notificationID)
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	n, err := s.owned(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, notificationID, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.owned(ctx, userID, notificationID)
}

func (s *service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now().UTC())
}

func (s *service) Delete(ctx context.Context, userID, notificationID string) error {
	if _, err := s.owned(ctx, userID, notificationID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, []string{notificationID}); err != nil {
		return err
	}
	return s.users.RemoveNotificationRefs(ctx, userID, []string{notificationID})
}

func (s *service) DeleteAllRead(ctx context.Context, userID string) (int, error) {
	items, err := s.repo.ListByRecipient(ctx, userID, false)
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, n := range items {
		if n.Read {
			ids = append(ids, n.NotificationID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.repo.Delete(ctx, ids); err != nil {
		return 0, err
	}
	if err := s.users.RemoveNotificationRefs(ctx, userID, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *service) CompleteAction(ctx context.Context, userID, notificationID string, index int) (*domain.Notification, error) {
	n, err := s.owned(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(n.Actions) {
		return nil, fmt.Errorf("action %d not found: %w", index, domain.ErrNotFound)
	}
	if n.Actions[index].Completed {
		return n, nil
	}
	if err := s.repo.CompleteAction(ctx, notificationID, index); err != nil {
		return nil, err
	}
	return s.owned(ctx, userID, notificationID)
}
