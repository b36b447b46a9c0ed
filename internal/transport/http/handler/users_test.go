package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freelance-hub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.AuthResponse, error) {
	args := m.Called(ctx, req)
	if a, _ := args.Get(0).(*domain.AuthResponse); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	args := m.Called(ctx, req)
	if a, _ := args.Get(0).(*domain.AuthResponse); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Profile(ctx context.Context, viewerID, userID string) (*domain.User, error) {
	args := m.Called(ctx, viewerID, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, userID, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}

type mockRecoverySvc struct{ mock.Mock }

func (m *mockRecoverySvc) RequestPasswordRecovery(ctx context.Context, req domain.PasswordRecoveryRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockRecoverySvc) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

func validRegistration() domain.CreateUserRequest {
	return domain.CreateUserRequest{
		Name: "Alice", Email: "alice@example.com", Password: "secret123", Role: domain.RoleFreelancer,
	}
}

// --- Register tests ---

func TestRegister_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockUserSvc{}, &mockRecoverySvc{})
	r := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegister_ValidationFailure(t *testing.T) {
	h := NewAuthHandler(&mockUserSvc{}, &mockRecoverySvc{})
	body, _ := json.Marshal(domain.CreateUserRequest{Name: "Alice", Email: "alice@example.com", Password: "short", Role: "student"})
	r := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp MessageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "password")
	assert.Contains(t, resp.Error, "role")
}

func TestRegister_ServiceConflict(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Register", mock.Anything, validRegistration()).Return(nil, fmt.Errorf("email taken: %w", domain.ErrConflict))
	h := NewAuthHandler(svc, &mockRecoverySvc{})
	body, _ := json.Marshal(validRegistration())
	r := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusConflict, rr.Code)
	svc.AssertExpectations(t)
}

func TestRegister_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Register", mock.Anything, validRegistration()).Return(&domain.AuthResponse{
		Token: "access-token",
		User:  &domain.User{UserID: "u1", Name: "Alice", Role: domain.RoleFreelancer},
	}, nil)
	h := NewAuthHandler(svc, &mockRecoverySvc{})
	body, _ := json.Marshal(validRegistration())
	r := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "access-token", resp.Token)
	assert.Equal(t, "Alice", resp.User.Name)
	svc.AssertExpectations(t)
}

// --- Login tests ---

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized))
	h := NewAuthHandler(svc, &mockRecoverySvc{})
	body, _ := json.Marshal(domain.LoginRequest{Email: "alice@example.com", Password: "nope"})
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogin_DisabledAccount(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden))
	h := NewAuthHandler(svc, &mockRecoverySvc{})
	body, _ := json.Marshal(domain.LoginRequest{Email: "alice@example.com", Password: "secret123"})
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, r)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

// --- Me / profile tests ---

func TestMe_MissingClaims(t *testing.T) {
	h := NewAuthHandler(&mockUserSvc{}, &mockRecoverySvc{})
	rr := httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_ReturnsCaller(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "alice@example.com"}, nil)
	h := NewAuthHandler(svc, &mockRecoverySvc{})

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Me), rr, bearerReq(t, p, http.MethodGet, "/api/auth/me", "u1", domain.RoleClient, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool        `json:"success"`
		User    domain.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "alice@example.com", resp.User.Email)
}

func TestProfile_PassesViewer(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Profile", mock.Anything, "u2", "u1").Return(&domain.User{UserID: "u1", Name: "Alice"}, nil)
	h := NewUserHandler(svc)

	r := withChiID(bearerReq(t, p, http.MethodGet, "/api/users/u1", "u2", domain.RoleClient, nil), "u1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Get), rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestProfile_NotFound(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Profile", mock.Anything, "u2", "ghost").Return(nil, fmt.Errorf("user: %w", domain.ErrNotFound))
	h := NewUserHandler(svc)

	r := withChiID(bearerReq(t, p, http.MethodGet, "/api/users/ghost", "u2", domain.RoleClient, nil), "ghost")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Get), rr, r)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateMe_UpdatesCallerOnly(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	name := "Alicia"
	svc.On("Update", mock.Anything, "u1", domain.UpdateUserRequest{Name: &name}).Return(&domain.User{UserID: "u1", Name: name}, nil)
	h := NewUserHandler(svc)

	body, _ := json.Marshal(map[string]string{"name": name})
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.UpdateMe), rr, bearerReq(t, p, http.MethodPut, "/api/users/me", "u1", domain.RoleFreelancer, body))
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

// --- password flows ---

func TestChangePassword_WrongCurrent(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	req := domain.ChangePasswordRequest{CurrentPassword: "old-pass", NewPassword: "new-pass-123"}
	svc.On("ChangePassword", mock.Anything, "u1", req).Return(fmt.Errorf("current password: %w", domain.ErrUnauthorized))
	h := NewAuthHandler(svc, &mockRecoverySvc{})

	body, _ := json.Marshal(req)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.ChangePassword), rr, bearerReq(t, p, http.MethodPut, "/api/auth/password", "u1", domain.RoleClient, body))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertExpectations(t)
}

func TestRequestRecovery_AlwaysOK(t *testing.T) {
	rec := &mockRecoverySvc{}
	rec.On("RequestPasswordRecovery", mock.Anything, domain.PasswordRecoveryRequest{Email: "nobody@example.com"}).Return(nil)
	h := NewAuthHandler(&mockUserSvc{}, rec)

	body, _ := json.Marshal(domain.PasswordRecoveryRequest{Email: "nobody@example.com"})
	rr := httptest.NewRecorder()
	h.RequestRecovery(rr, httptest.NewRequest(http.MethodPost, "/api/auth/recovery", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, rr.Code)
	rec.AssertExpectations(t)
}

func TestResetPassword_RejectsMalformedCode(t *testing.T) {
	h := NewAuthHandler(&mockUserSvc{}, &mockRecoverySvc{})
	body, _ := json.Marshal(domain.ResetPasswordRequest{Email: "a@example.com", Code: "12ab", NewPassword: "secret123"})
	rr := httptest.NewRecorder()
	h.ResetPassword(rr, httptest.NewRequest(http.MethodPost, "/api/auth/recovery/reset", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
