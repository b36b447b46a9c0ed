package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/pkg/page"
	"github.com/freelance-hub/internal/testutil"
	"github.com/freelance-hub/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*memstore.Store, Service) {
	t.Helper()
	st := memstore.New()
	testutil.SeedUser(t, st, "u1", domain.RoleFreelancer)
	testutil.SeedUser(t, st, "u2", domain.RoleFreelancer)
	return st, NewService(st.Notifications, st.Users)
}

func put(t *testing.T, st *memstore.Store, id, recipient string, opts ...func(*domain.Notification)) {
	t.Helper()
	n := &domain.Notification{
		NotificationID: id,
		RecipientID:    recipient,
		Type:           domain.NotifySystem,
		Title:          "t",
		Content:        "c",
		CreatedAt:      time.Now().UTC(),
	}
	for _, o := range opts {
		o(n)
	}
	require.NoError(t, st.Notifications.PutForRecipient(context.Background(), n))
}

func expired(n *domain.Notification) {
	at := time.Now().Add(-time.Hour)
	n.ExpiresAt = &at
}

func withActions(n *domain.Notification) {
	n.Actions = []domain.NotificationAction{{Label: "Accept", Method: "POST", Endpoint: "/x"}}
}

func TestList_HidesExpiredAndFiltersUnread(t *testing.T) {
	st, svc := setup(t)
	ctx := context.Background()
	put(t, st, "n1", "u1")
	put(t, st, "n2", "u1")
	put(t, st, "n3", "u1", expired)
	put(t, st, "n4", "u2")

	items, res, err := svc.List(ctx, "u1", false, page.Request{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, "n2", items[0].NotificationID, "newest first")

	_, err = svc.MarkRead(ctx, "u1", "n1")
	require.NoError(t, err)
	items, _, err = svc.List(ctx, "u1", true, page.Request{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n2", items[0].NotificationID)

	count, err := svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGet_OwnerOnlyAndExpiryFlag(t *testing.T) {
	st, svc := setup(t)
	put(t, st, "n1", "u1", expired)

	_, err := svc.Get(context.Background(), "u2", "n1")
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	n, err := svc.Get(context.Background(), "u1", "n1")
	require.NoError(t, err)
	assert.True(t, n.IsExpired)
}

func TestMarkRead_SetsReadAtOnce(t *testing.T) {
	st, svc := setup(t)
	put(t, st, "n1", "u1")

	first, err := svc.MarkRead(context.Background(), "u1", "n1")
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)
	assert.True(t, first.Read)

	second, err := svc.MarkRead(context.Background(), "u1", "n1")
	require.NoError(t, err)
	assert.True(t, first.ReadAt.Equal(*second.ReadAt))

	_, err = svc.MarkRead(context.Background(), "u2", "n1")
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestMarkAllRead(t *testing.T) {
	st, svc := setup(t)
	put(t, st, "n1", "u1")
	put(t, st, "n2", "u1")
	put(t, st, "n3", "u2")

	n, err := svc.MarkAllRead(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := svc.UnreadCount(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDelete_RemovesUserReference(t *testing.T) {
	st, svc := setup(t)
	ctx := context.Background()
	put(t, st, "n1", "u1")
	put(t, st, "n2", "u1")

	err := svc.Delete(ctx, "u2", "n1")
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	require.NoError(t, svc.Delete(ctx, "u1", "n1"))
	_, err = svc.Get(ctx, "u1", "n1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	u, err := st.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"n2"}, u.NotificationIDs)
}

func TestDeleteAllRead(t *testing.T) {
	st, svc := setup(t)
	ctx := context.Background()
	put(t, st, "n1", "u1")
	put(t, st, "n2", "u1")
	put(t, st, "n3", "u1")
	_, err := svc.MarkRead(ctx, "u1", "n1")
	require.NoError(t, err)
	_, err = svc.MarkRead(ctx, "u1", "n3")
	require.NoError(t, err)

	n, err := svc.DeleteAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	u, err := st.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"n2"}, u.NotificationIDs)

	n, err = svc.DeleteAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCompleteAction(t *testing.T) {
	st, svc := setup(t)
	put(t, st, "n1", "u1", withActions)

	_, err := svc.CompleteAction(context.Background(), "u1", "n1", 3)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	n, err := svc.CompleteAction(context.Background(), "u1", "n1", 0)
	require.NoError(t, err)
	assert.True(t, n.Actions[0].Completed)

	_, err = svc.CompleteAction(context.Background(), "u2", "n1", 0)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}
