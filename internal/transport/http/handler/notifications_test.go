package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/freelance-hub/internal/application/notification"
	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/testutil"
	"github.com/freelance-hub/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notificationFixture(t *testing.T) (*memstore.Store, *NotificationHandler) {
	t.Helper()
	st := memstore.New()
	testutil.SeedUser(t, st, "u1", domain.RoleFreelancer)
	testutil.SeedUser(t, st, "u2", domain.RoleClient)
	for _, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, st.Notifications.PutForRecipient(context.Background(), &domain.Notification{
			NotificationID: id,
			RecipientID:    "u1",
			Type:           domain.NotifyProposal,
			Title:          "New proposal",
			Content:        "someone applied",
			Actions:        []domain.NotificationAction{{Label: "Accept", Method: http.MethodPost, Endpoint: "/api/projects/p1/proposals/x/accept"}},
			CreatedAt:      time.Now().UTC(),
		}))
	}
	return st, NewNotificationHandler(notification.NewService(st.Notifications, st.Users))
}

func TestNotifications_ListPaged(t *testing.T) {
	_, h := notificationFixture(t)
	p := newTestJWTProvider(t)

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, bearerReq(t, p, http.MethodGet, "/api/notifications?limit=2&page=2", "u1", domain.RoleFreelancer, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Count         int                   `json:"count"`
		Total         int                   `json:"total"`
		Pages         int                   `json:"pages"`
		CurrentPage   int                   `json:"currentPage"`
		Notifications []domain.Notification `json:"notifications"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 2, body.Pages)
	assert.Equal(t, 2, body.CurrentPage)
}

func TestNotifications_OtherUserCannotRead(t *testing.T) {
	_, h := notificationFixture(t)
	p := newTestJWTProvider(t)

	r := withChiID(bearerReq(t, p, http.MethodPut, "/api/notifications/n1/read", "u2", domain.RoleClient, nil), "n1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkRead), rr, r)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestNotifications_CompleteAction(t *testing.T) {
	st, h := notificationFixture(t)
	p := newTestJWTProvider(t)

	r := withChiParams(bearerReq(t, p, http.MethodPut, "/api/notifications/n1/actions/0", "u1", domain.RoleFreelancer, nil), "id", "n1", "index", "0")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.CompleteAction), rr, r)
	require.Equal(t, http.StatusOK, rr.Code)

	n, err := st.Notifications.Get(context.Background(), "n1")
	require.NoError(t, err)
	assert.True(t, n.Actions[0].Completed)
}

func TestNotifications_CompleteAction_BadIndex(t *testing.T) {
	_, h := notificationFixture(t)
	p := newTestJWTProvider(t)

	r := withChiParams(bearerReq(t, p, http.MethodPut, "/api/notifications/n1/actions/x", "u1", domain.RoleFreelancer, nil), "id", "n1", "index", "x")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.CompleteAction), rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	r = withChiParams(bearerReq(t, p, http.MethodPut, "/api/notifications/n1/actions/9", "u1", domain.RoleFreelancer, nil), "id", "n1", "index", "9")
	rr = httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.CompleteAction), rr, r)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
