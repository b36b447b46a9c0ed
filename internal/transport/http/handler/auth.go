package handler

import (
	"net/http"

	"github.com/freelance-hub/internal/application/auth"
	"github.com/freelance-hub/internal/application/user"
	"github.com/freelance-hub/internal/domain"
)

// AuthHandler handles account registration, login and password flows.
type AuthHandler struct {
	users    user.Service
	recovery auth.Service
}

func NewAuthHandler(users user.Service, recovery auth.Service) *AuthHandler {
	return &AuthHandler{users: users, recovery: recovery}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.users.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{Success: true, Token: resp.Token, User: resp.User})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.users.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Success: true, Token: resp.Token, User: resp.User})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	u, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "user", u)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.users.ChangePassword(r.Context(), claims.UserID, req); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, "password updated")
}

func (h *AuthHandler) RequestRecovery(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordRecoveryRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.recovery.RequestPasswordRecovery(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, "if the account exists a recovery code was sent")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.recovery.ResetPassword(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, "password reset")
}
