package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/freelance-hub/internal/application/fanout"
	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/realtime"
	"github.com/freelance-hub/internal/testutil"
	"github.com/freelance-hub/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return m.err
}

type fakePush struct {
	published []string
	err       error
}

func (p *fakePush) Publish(_ context.Context, n *domain.Notification) error {
	p.published = append(p.published, n.NotificationID)
	return p.err
}

type fakePresence map[string]bool

func (p fakePresence) Online(_ context.Context, userID string) (bool, error) { return p[userID], nil }

type brokenNotifications struct{}

func (brokenNotifications) PutForRecipient(context.Context, *domain.Notification) error {
	return errors.New("throttled")
}

func enqueue(t *testing.T, st *memstore.Store, typ string, actor string, recipients ...string) *domain.OutboxEvent {
	t.Helper()
	ev := fanout.NewEvent(actor, domain.NotificationTemplate{Type: typ, Title: "t", Content: "c"}, recipients...)
	require.NotNil(t, ev)
	require.NoError(t, st.Outbox.Enqueue(context.Background(), ev))
	return ev
}

func TestRunOnce_MaterializesOnePerRecipient(t *testing.T) {
	st := memstore.New()
	rec := &testutil.Recorder{}
	push := &fakePush{}
	for _, u := range []string{"a", "b", "c"} {
		testutil.SeedUser(t, st, u, domain.RoleFreelancer)
	}
	ev := enqueue(t, st, domain.NotifyMessage, "a", "a", "b", "c", "b")

	r := NewRelay(Config{}, Deps{Events: st.Outbox, Notifications: st.Notifications, Users: st.Users, Emitter: rec, Push: push})
	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, st.Outbox.Events())

	for _, u := range []string{"b", "c"} {
		got, err := st.Notifications.Get(context.Background(), domain.NotificationID(ev.EventID, u))
		require.NoError(t, err)
		assert.Equal(t, u, got.RecipientID)
		assert.False(t, got.Read)
	}
	_, err = st.Notifications.Get(context.Background(), domain.NotificationID(ev.EventID, "a"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.ElementsMatch(t, []string{realtime.UserRoom("b"), realtime.UserRoom("c")}, rec.Rooms(realtime.EventNotification))
	assert.Len(t, push.published, 2)
}

func TestRunOnce_ReplayDoesNotDuplicate(t *testing.T) {
	st := memstore.New()
	testutil.SeedUser(t, st, "b", domain.RoleFreelancer)
	ev := enqueue(t, st, domain.NotifyTask, "a", "b")

	// A relay that crashed after writing the notification leaves the event pending.
	require.NoError(t, st.Notifications.PutForRecipient(context.Background(), ev.NotificationFor("b")))

	rec := &testutil.Recorder{}
	r := NewRelay(Config{}, Deps{Events: st.Outbox, Notifications: st.Notifications, Users: st.Users, Emitter: rec})
	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ns, err := st.Notifications.ListByRecipient(context.Background(), "b", false)
	require.NoError(t, err)
	assert.Len(t, ns, 1)
	u, err := st.Users.Get(context.Background(), "b")
	require.NoError(t, err)
	assert.Len(t, u.NotificationIDs, 1)
	assert.Empty(t, rec.ByEvent(realtime.EventNotification))
}

func TestRunOnce_MissingRecipientSkipped(t *testing.T) {
	st := memstore.New()
	testutil.SeedUser(t, st, "b", domain.RoleFreelancer)
	enqueue(t, st, domain.NotifyTeam, "a", "ghost", "b")

	r := NewRelay(Config{}, Deps{Events: st.Outbox, Notifications: st.Notifications, Users: st.Users, Emitter: &testutil.Recorder{}})
	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ns, err := st.Notifications.ListByRecipient(context.Background(), "b", false)
	require.NoError(t, err)
	assert.Len(t, ns, 1)
}

func TestRunOnce_FailsAfterMaxAttempts(t *testing.T) {
	st := memstore.New()
	enqueue(t, st, domain.NotifyTask, "a", "b")

	r := NewRelay(Config{MaxAttempts: 2}, Deps{Events: st.Outbox, Notifications: brokenNotifications{}, Users: st.Users, Emitter: &testutil.Recorder{}})

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	evs := st.Outbox.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, domain.OutboxPending, evs[0].State)
	assert.Equal(t, 1, evs[0].Attempts)
	assert.Equal(t, "throttled", evs[0].LastError)

	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	evs = st.Outbox.Events()
	assert.Equal(t, domain.OutboxFailed, evs[0].State)

	pending, err := st.Outbox.ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunOnce_MailsOfflineRecipientsOnly(t *testing.T) {
	st := memstore.New()
	testutil.SeedUser(t, st, "online", domain.RoleFreelancer)
	testutil.SeedUser(t, st, "offline", domain.RoleFreelancer)
	disabled := testutil.SeedUser(t, st, "disabled", domain.RoleFreelancer)
	require.NoError(t, st.Users.Update(context.Background(), disabled.UserID, map[string]interface{}{"enable": false}))

	enqueue(t, st, domain.NotifyProposal, "client", "online", "offline", "disabled")
	enqueue(t, st, domain.NotifyMessage, "client", "offline")

	mail := &fakeMailer{}
	r := NewRelay(Config{}, Deps{
		Events:        st.Outbox,
		Notifications: st.Notifications,
		Users:         st.Users,
		Emitter:       &testutil.Recorder{},
		Presence:      fakePresence{"online": true},
		Mailer:        mail,
	})
	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"offline@example.com"}, mail.sent)
}

func TestRunOnce_ChannelFailuresDoNotBlockSettlement(t *testing.T) {
	st := memstore.New()
	testutil.SeedUser(t, st, "b", domain.RoleFreelancer)
	enqueue(t, st, domain.NotifySystem, "", "b")

	r := NewRelay(Config{}, Deps{
		Events:        st.Outbox,
		Notifications: st.Notifications,
		Users:         st.Users,
		Emitter:       &testutil.Recorder{},
		Push:          &fakePush{err: errors.New("sns down")},
		Mailer:        &fakeMailer{err: errors.New("smtp down")},
	})
	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, st.Outbox.Events())
}
