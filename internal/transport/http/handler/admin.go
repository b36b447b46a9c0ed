package handler

import (
	"net/http"

	"github.com/freelance-hub/internal/application/admin"
	"github.com/freelance-hub/internal/domain"
	"github.com/go-chi/chi/v5"
)

// AdminHandler handles the admin-only endpoints.
type AdminHandler struct {
	svc admin.Service
}

func NewAdminHandler(svc admin.Service) *AdminHandler { return &AdminHandler{svc: svc} }

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Stats(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "stats", s)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, res, err := h.svc.ListUsers(r.Context(), parsePagination(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writePage(w, "users", users, res)
}

func (h *AdminHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.SetEnabledRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.svc.SetEnabled(r.Context(), claims.UserID, chi.URLParam(r, "id"), *req.Enable)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "user", u)
}

func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.BroadcastRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.svc.Broadcast(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusAccepted, "recipients", n)
}
