package admin

import (
	"context"
	"errors"
	"fmt"
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
	testutil.SeedUser(t, st, "admin", domain.RoleAdmin)
	testutil.SeedUser(t, st, "c1", domain.RoleClient)
	testutil.SeedUser(t, st, "f1", domain.RoleFreelancer)
	testutil.SeedUser(t, st, "f2", domain.RoleFreelancer)
	return st, NewService(ServiceDeps{UserRepo: st.Users, ProjectRepo: st.Projects, OutboxRepo: st.Outbox})
}

func TestStats(t *testing.T) {
	st, svc := setup(t)
	testutil.SeedProject(t, st, "p1", "c1")
	testutil.SeedProject(t, st, "p2", "c1")

	s, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, s.TotalUsers)
	assert.Equal(t, 2, s.UsersByRole[domain.RoleFreelancer])
	assert.Equal(t, 2, s.ProjectsByStatus[domain.ProjectOpen])
	assert.Equal(t, 2, s.TotalProjects)
}

func TestListUsers_Paginates(t *testing.T) {
	_, svc := setup(t)
	users, res, err := svc.ListUsers(context.Background(), page.Request{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 2, res.CurrentPage)
}

func TestSetEnabled(t *testing.T) {
	_, svc := setup(t)
	_, err := svc.SetEnabled(context.Background(), "admin", "admin", false)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))

	u, err := svc.SetEnabled(context.Background(), "admin", "f1", false)
	require.NoError(t, err)
	assert.False(t, u.Enable)

	_, err = svc.SetEnabled(context.Background(), "admin", "ghost", true)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBroadcast_EnabledUsersExceptSender(t *testing.T) {
	st, svc := setup(t)
	_, err := svc.SetEnabled(context.Background(), "admin", "f2", false)
	require.NoError(t, err)

	n, err := svc.Broadcast(context.Background(), "admin", domain.BroadcastRequest{Title: "Maintenance", Content: "Tonight"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	evs := st.Outbox.Events()
	require.Len(t, evs, 1)
	assert.ElementsMatch(t, []string{"c1", "f1"}, evs[0].Recipients)
	assert.Equal(t, domain.NotifySystem, evs[0].Notification.Type)
}

func TestBroadcast_ChunksLargeAudiences(t *testing.T) {
	st, svc := setup(t)
	for i := 0; i < broadcastChunk+10; i++ {
		testutil.SeedUser(t, st, fmt.Sprintf("bulk-%04d", i), domain.RoleFreelancer)
	}
	n, err := svc.Broadcast(context.Background(), "admin", domain.BroadcastRequest{Title: "Hi", Content: "All"})
	require.NoError(t, err)
	assert.Equal(t, broadcastChunk+13, n)
	assert.Len(t, st.Outbox.Events(), 2)
}

func TestBroadcast_RejectsPastExpiry(t *testing.T) {
	_, svc := setup(t)
	past := time.Now().Add(-time.Minute)
	_, err := svc.Broadcast(context.Background(), "admin", domain.BroadcastRequest{Title: "x", Content: "y", ExpiresAt: &past})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}
