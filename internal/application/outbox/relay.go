// Package outbox delivers the notification side effects recorded next to
// domain mutations.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/metrics"
	"github.com/freelance-hub/internal/realtime"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type eventStore interface {
	ListPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	Delete(ctx context.Context, eventID string) error
	RecordFailure(ctx context.Context, eventID, reason string, failed bool) error
}

type notificationStore interface {
	PutForRecipient(ctx context.Context, n *domain.Notification) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type emitter interface {
	Emit(ctx context.Context, room, event string, data any)
}

type presence interface {
	Online(ctx context.Context, userID string) (bool, error)
}

type pushPublisher interface {
	Publish(ctx context.Context, n *domain.Notification) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

// mailTypes are the notification types worth an email when the recipient
// has no open socket.
var mailTypes = map[string]bool{
	domain.NotifyProposal: true,
	domain.NotifyTask:     true,
	domain.NotifyPayment:  true,
	domain.NotifySystem:   true,
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

type Deps struct {
	Events        eventStore
	Notifications notificationStore
	Users         userStore
	Emitter       emitter
	Presence      presence
	Push          pushPublisher // optional
	Mailer        mailer        // optional
	Log           *zap.Logger
}

// Relay polls pending outbox events and materializes them. Notification ids
// are derived from the event, so two relays racing on one event write each
// document once.
type Relay struct {
	cfg    Config
	deps   Deps
	log    *zap.Logger
	pushCB *gobreaker.CircuitBreaker
	mailCB *gobreaker.CircuitBreaker
}

func NewRelay(cfg Config, deps Deps) *Relay {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 25
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		cfg:    cfg,
		deps:   deps,
		log:    log,
		pushCB: newBreaker("sns-push", log),
		mailCB: newBreaker("smtp-mail", log),
	}
}

func newBreaker(name string, log *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("outbox poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce dispatches one batch and returns how many events were settled.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.deps.Events.ListPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	done := 0
	for i := range events {
		ev := &events[i]
		if err := r.dispatch(ctx, ev); err != nil {
			failed := ev.Attempts+1 >= r.cfg.MaxAttempts
			r.log.Warn("outbox dispatch failed",
				zap.String("event_id", ev.EventID), zap.Int("attempt", ev.Attempts+1), zap.Bool("giving_up", failed), zap.Error(err))
			if ferr := r.deps.Events.RecordFailure(ctx, ev.EventID, err.Error(), failed); ferr != nil {
				r.log.Warn("record outbox failure", zap.String("event_id", ev.EventID), zap.Error(ferr))
			}
			metrics.OutboxDispatch.WithLabelValues("error").Inc()
			continue
		}
		if err := r.deps.Events.Delete(ctx, ev.EventID); err != nil {
			return done, fmt.Errorf("settle event %s: %w", ev.EventID, err)
		}
		metrics.OutboxDispatch.WithLabelValues("ok").Inc()
		done++
	}
	return done, nil
}

func (r *Relay) dispatch(ctx context.Context, ev *domain.OutboxEvent) error {
	for _, recipient := range ev.Recipients {
		n := ev.NotificationFor(recipient)
		err := r.deps.Notifications.PutForRecipient(ctx, n)
		switch {
		case errors.Is(err, domain.ErrConflict):
			continue
		case errors.Is(err, domain.ErrNotFound):
			r.log.Info("skipping notification for missing recipient",
				zap.String("event_id", ev.EventID), zap.String("recipient_id", recipient))
			continue
		case err != nil:
			return err
		}
		metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()
		r.deliver(ctx, n)
	}
	return nil
}

// deliver runs the best-effort channels for a freshly written notification.
func (r *Relay) deliver(ctx context.Context, n *domain.Notification) {
	r.deps.Emitter.Emit(ctx, realtime.UserRoom(n.RecipientID), realtime.EventNotification, n)

	if r.deps.Push != nil {
		if _, err := r.pushCB.Execute(func() (interface{}, error) {
			return nil, r.deps.Push.Publish(ctx, n)
		}); err != nil {
			r.log.Warn("push publish failed", zap.String("notification_id", n.NotificationID), zap.Error(err))
		}
	}

	if r.deps.Mailer == nil || !mailTypes[n.Type] {
		return
	}
	if r.deps.Presence != nil {
		online, err := r.deps.Presence.Online(ctx, n.RecipientID)
		if err != nil {
			r.log.Warn("presence lookup failed", zap.String("user_id", n.RecipientID), zap.Error(err))
		}
		if online {
			return
		}
	}
	u, err := r.deps.Users.Get(ctx, n.RecipientID)
	if err != nil || u.Email == "" || !u.Enable {
		return
	}
	if _, err := r.mailCB.Execute(func() (interface{}, error) {
		return nil, r.deps.Mailer.SendEmail(u.Email, n.Title, n.Content)
	}); err != nil {
		r.log.Warn("notification mail failed", zap.String("notification_id", n.NotificationID), zap.Error(err))
	}
}
