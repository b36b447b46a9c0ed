// Package fanout builds the notification side effects of domain actions.
// An event names every recipient once; the outbox relay turns it into one
// Notification per recipient.
package fanout

import (
	"time"

	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/pkg/id"
)

// Recipients de-duplicates ids, dropping empty ids and the actor. First-seen
// order is kept.
func Recipients(actorID string, ids ...string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, r := range ids {
		if r == "" || r == actorID {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// NewEvent builds a pending outbox event for the recipients of ids. It
// returns nil when nobody is left to notify.
func NewEvent(actorID string, t domain.NotificationTemplate, ids ...string) *domain.OutboxEvent {
	recipients := Recipients(actorID, ids...)
	if len(recipients) == 0 {
		return nil
	}
	return &domain.OutboxEvent{
		EventID:      id.New(),
		State:        domain.OutboxPending,
		ActorID:      actorID,
		Recipients:   recipients,
		Notification: t,
		CreatedAt:    time.Now().UTC(),
	}
}

// Excerpt shortens s to at most n runes for notification bodies.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
