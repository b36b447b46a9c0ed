package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/freelance-hub/internal/application/outbox"
	"github.com/freelance-hub/internal/config"
	"github.com/freelance-hub/internal/domain"
	jwtinfra "github.com/freelance-hub/internal/infrastructure/jwt"
	"github.com/freelance-hub/internal/realtime"
	"github.com/freelance-hub/internal/testutil"
	"github.com/freelance-hub/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiFixture struct {
	st    *memstore.Store
	jwt   *jwtinfra.Provider
	relay *outbox.Relay
	srv   *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	st := memstore.New()
	log := zap.NewNop()
	hub := realtime.NewHub(log)
	emitter := realtime.NewEmitter(realtime.NewLocalBroker(hub.Deliver), log)
	presence := realtime.NewLocalPresence()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	provider := jwtinfra.NewRSAProvider(key, &key.PublicKey, time.Hour)

	cfg := &config.Config{
		AppEnv:           "test",
		AllowedOrigins:   []string{"*"},
		PageDefaultLimit: 10,
		PageMaxLimit:     100,
		RecoveryCodeTTL:  time.Minute,
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := NewRouter(ctx, cfg, &Deps{
		UserRepo:         st.Users,
		ProjectRepo:      st.Projects,
		TeamRepo:         st.Teams,
		TaskRepo:         st.Tasks,
		MessageRepo:      st.Messages,
		NotificationRepo: st.Notifications,
		OutboxRepo:       st.Outbox,
		RecoveryRepo:     st.Recovery,
		JWTProvider:      provider,
		Hub:              hub,
		Emitter:          emitter,
		Presence:         presence,
		Log:              log,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	relay := outbox.NewRelay(outbox.Config{}, outbox.Deps{
		Events:        st.Outbox,
		Notifications: st.Notifications,
		Users:         st.Users,
		Emitter:       emitter,
		Presence:      presence,
		Log:           log,
	})
	return &apiFixture{st: st, jwt: provider, relay: relay, srv: srv}
}

// call performs a JSON request and decodes the response body into a map.
func (f *apiFixture) call(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (f *apiFixture) register(t *testing.T, name, role string) (token, userID string) {
	t.Helper()
	code, body := f.call(t, http.MethodPost, "/api/auth/register", "", domain.CreateUserRequest{
		Name: name, Email: name + "@example.com", Password: "secret123", Role: role,
	})
	require.Equal(t, http.StatusCreated, code, body)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

func TestRouter_HealthIsPublic(t *testing.T) {
	f := newAPIFixture(t)
	code, body := f.call(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime")
}

func TestRouter_RequiresBearer(t *testing.T) {
	f := newAPIFixture(t)
	code, body := f.call(t, http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])
}

func TestRouter_AdminRoutesNeedAdminRole(t *testing.T) {
	f := newAPIFixture(t)
	clientTok, _ := f.register(t, "alice", domain.RoleClient)
	code, _ := f.call(t, http.MethodGet, "/api/admin/stats", clientTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	testutil.SeedUser(t, f.st, "root", domain.RoleAdmin)
	adminTok, err := f.jwt.Sign("root", domain.RoleAdmin)
	require.NoError(t, err)
	code, body := f.call(t, http.MethodGet, "/api/admin/stats", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 2, stats["total_users"])
}

func TestRouter_ProposalFlow(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	aliceTok, aliceID := f.register(t, "alice", domain.RoleClient)
	bobTok, _ := f.register(t, "bob", domain.RoleFreelancer)

	code, body := f.call(t, http.MethodPost, "/api/projects", aliceTok, domain.CreateProjectRequest{
		Title: "Landing page", Description: "Build it", Skills: []string{"go"}, Budget: 500,
	})
	require.Equal(t, http.StatusCreated, code, body)
	projectID := body["project"].(map[string]any)["id"].(string)

	code, body = f.call(t, http.MethodPost, "/api/projects/"+projectID+"/proposals", bobTok, domain.SubmitProposalRequest{
		CoverLetter: "I can do this", Bid: 450,
	})
	require.Equal(t, http.StatusCreated, code, body)

	_, err := f.relay.RunOnce(ctx)
	require.NoError(t, err)

	code, body = f.call(t, http.MethodGet, "/api/notifications?unread=true", aliceTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])
	notes := body["notifications"].([]any)
	note := notes[0].(map[string]any)
	assert.Equal(t, domain.NotifyProposal, note["type"])
	actions := note["actions"].([]any)
	accept := actions[0].(map[string]any)

	code, body = f.call(t, accept["method"].(string), accept["endpoint"].(string), aliceTok, nil)
	require.Equal(t, http.StatusOK, code, body)
	project := body["project"].(map[string]any)
	assert.Equal(t, domain.ProjectInProgress, project["status"])

	_, err = f.relay.RunOnce(ctx)
	require.NoError(t, err)
	code, body = f.call(t, http.MethodGet, "/api/notifications", bobTok, nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 1, body["total"])
	content := body["notifications"].([]any)[0].(map[string]any)["content"].(string)
	assert.Contains(t, content, "accepted")

	code, body = f.call(t, http.MethodGet, "/api/projects/mine", bobTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])

	u, err := f.st.Users.Get(ctx, aliceID)
	require.NoError(t, err)
	assert.Len(t, u.NotificationIDs, 1)
}

func TestRouter_DirectChatOverREST(t *testing.T) {
	f := newAPIFixture(t)
	aliceTok, aliceID := f.register(t, "alice", domain.RoleClient)
	bobTok, bobID := f.register(t, "bob", domain.RoleFreelancer)

	code, body := f.call(t, http.MethodPost, "/api/chats/direct/"+bobID, aliceTok, domain.SendMessageRequest{Content: "hi bob"})
	require.Equal(t, http.StatusCreated, code, body)
	messageID := body["message"].(map[string]any)["id"].(string)

	code, body = f.call(t, http.MethodGet, "/api/chats/direct/"+aliceID, bobTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])

	code, _ = f.call(t, http.MethodPut, "/api/chats/messages/"+messageID+"/read", bobTok, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = f.call(t, http.MethodDelete, "/api/chats/messages/"+messageID, bobTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = f.call(t, http.MethodDelete, "/api/chats/messages/"+messageID, aliceTok, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_PaginationCap(t *testing.T) {
	f := newAPIFixture(t)
	aliceTok, _ := f.register(t, "alice", domain.RoleClient)
	for i := 0; i < 3; i++ {
		code, _ := f.call(t, http.MethodPost, "/api/projects", aliceTok, domain.CreateProjectRequest{
			Title: fmt.Sprintf("p%d", i), Description: "d",
		})
		require.Equal(t, http.StatusCreated, code)
	}
	code, body := f.call(t, http.MethodGet, "/api/projects?limit=2&page=2", aliceTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 2, body["pages"])
	assert.EqualValues(t, 2, body["currentPage"])
}

func TestRouter_DisabledAccountLosesAccess(t *testing.T) {
	f := newAPIFixture(t)
	bobTok, bobID := f.register(t, "bob", domain.RoleFreelancer)
	code, _ := f.call(t, http.MethodGet, "/api/auth/me", bobTok, nil)
	require.Equal(t, http.StatusOK, code)

	testutil.SeedUser(t, f.st, "root", domain.RoleAdmin)
	adminTok, err := f.jwt.Sign("root", domain.RoleAdmin)
	require.NoError(t, err)
	code, body := f.call(t, http.MethodPut, "/api/admin/users/"+bobID+"/enable", adminTok, map[string]bool{"enable": false})
	require.Equal(t, http.StatusOK, code, body)

	code, body = f.call(t, http.MethodGet, "/api/auth/me", bobTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "account disabled", body["error"])
}

func TestRouter_ProposalsVisibleToOwnerAndAuthorOnly(t *testing.T) {
	f := newAPIFixture(t)
	aliceTok, _ := f.register(t, "alice", domain.RoleClient)
	bobTok, bobID := f.register(t, "bob", domain.RoleFreelancer)
	carolTok, _ := f.register(t, "carol", domain.RoleFreelancer)
	daveTok, _ := f.register(t, "dave", domain.RoleFreelancer)

	code, body := f.call(t, http.MethodPost, "/api/projects", aliceTok, domain.CreateProjectRequest{Title: "API", Description: "d"})
	require.Equal(t, http.StatusCreated, code, body)
	projectID := body["project"].(map[string]any)["id"].(string)
	for _, tok := range []string{bobTok, carolTok} {
		code, body = f.call(t, http.MethodPost, "/api/projects/"+projectID+"/proposals", tok, domain.SubmitProposalRequest{CoverLetter: "me", Bid: 100})
		require.Equal(t, http.StatusCreated, code, body)
	}

	proposals := func(tok string) []any {
		t.Helper()
		code, body := f.call(t, http.MethodGet, "/api/projects/"+projectID, tok, nil)
		require.Equal(t, http.StatusOK, code, body)
		return body["project"].(map[string]any)["proposals"].([]any)
	}
	assert.Len(t, proposals(aliceTok), 2)
	own := proposals(bobTok)
	require.Len(t, own, 1)
	assert.Equal(t, bobID, own[0].(map[string]any)["freelancer_id"])
	assert.Empty(t, proposals(daveTok))

	code, body = f.call(t, http.MethodGet, "/api/projects", carolTok, nil)
	require.Equal(t, http.StatusOK, code)
	listed := body["projects"].([]any)[0].(map[string]any)["proposals"].([]any)
	assert.Len(t, listed, 1)
}

func TestRouter_RoleGuardsOnProjectWrites(t *testing.T) {
	f := newAPIFixture(t)
	aliceTok, _ := f.register(t, "alice", domain.RoleClient)
	bobTok, _ := f.register(t, "bob", domain.RoleFreelancer)

	code, body := f.call(t, http.MethodPost, "/api/projects", bobTok, domain.CreateProjectRequest{Title: "x", Description: "y"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, body["error"], "client or admin")

	code, body = f.call(t, http.MethodPost, "/api/projects", aliceTok, domain.CreateProjectRequest{Title: "x", Description: "y"})
	require.Equal(t, http.StatusCreated, code, body)
	projectID := body["project"].(map[string]any)["id"].(string)

	code, _ = f.call(t, http.MethodPost, "/api/projects/"+projectID+"/proposals", aliceTok, domain.SubmitProposalRequest{CoverLetter: "me"})
	assert.Equal(t, http.StatusForbidden, code)
}
