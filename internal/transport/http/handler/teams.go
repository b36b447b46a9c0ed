package handler

import (
	"net/http"

	"github.com/freelance-hub/internal/application/team"
	"github.com/freelance-hub/internal/domain"
	"github.com/go-chi/chi/v5"
)

// TeamHandler handles team and membership endpoints.
type TeamHandler struct {
	svc team.Service
}

func NewTeamHandler(svc team.Service) *TeamHandler { return &TeamHandler{svc: svc} }

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.CreateTeamRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Create(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "team", t)
}

func (h *TeamHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	teams, res, err := h.svc.Mine(r.Context(), claims.UserID, parsePagination(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writePage(w, "teams", teams, res)
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "team", t)
}

func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.AddMemberRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.AddMember(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "team", t)
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	t, err := h.svc.RemoveMember(r.Context(), claims.UserID, chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "team", t)
}

func (h *TeamHandler) Leave(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.svc.Leave(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, "left team")
}
