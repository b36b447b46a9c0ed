package handler

import (
	"net/http"

	"github.com/freelance-hub/internal/application/project"
	"github.com/freelance-hub/internal/domain"
	jwtinfra "github.com/freelance-hub/internal/infrastructure/jwt"
	"github.com/go-chi/chi/v5"
)

// ProjectHandler handles project and proposal endpoints.
type ProjectHandler struct {
	svc project.Service
}

func NewProjectHandler(svc project.Service) *ProjectHandler { return &ProjectHandler{svc: svc} }

func viewAll(claims *jwtinfra.Claims, projects []domain.Project) []*domain.Project {
	out := make([]*domain.Project, len(projects))
	for i := range projects {
		out[i] = projects[i].ViewFor(claims.UserID, claims.Role)
	}
	return out
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.CreateProjectRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.Create(r.Context(), claims.UserID, claims.Role, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "project", p.ViewFor(claims.UserID, claims.Role))
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := domain.ProjectFilter{
		Status:   q.Get("status"),
		ClientID: q.Get("client_id"),
		Skill:    q.Get("skill"),
	}
	projects, res, err := h.svc.List(r.Context(), f, parsePagination(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writePage(w, "projects", viewAll(claims, projects), res)
}

func (h *ProjectHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	projects, res, err := h.svc.Mine(r.Context(), claims.UserID, parsePagination(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writePage(w, "projects", viewAll(claims, projects), res)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "project", p.ViewFor(claims.UserID, claims.Role))
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.UpdateProjectRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.Update(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "project", p.ViewFor(claims.UserID, claims.Role))
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID, claims.Role, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, "project deleted")
}

func (h *ProjectHandler) SubmitProposal(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.SubmitProposalRequest
	if !decode(w, r, &req) {
		return
	}
	prop, err := h.svc.SubmitProposal(r.Context(), claims.UserID, claims.Role, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "proposal", prop)
}

func (h *ProjectHandler) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	p, err := h.svc.AcceptProposal(r.Context(), claims.UserID, chi.URLParam(r, "id"), chi.URLParam(r, "proposalId"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "project", p.ViewFor(claims.UserID, claims.Role))
}

func (h *ProjectHandler) RejectProposal(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	p, err := h.svc.RejectProposal(r.Context(), claims.UserID, chi.URLParam(r, "id"), chi.URLParam(r, "proposalId"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "project", p.ViewFor(claims.UserID, claims.Role))
}

func (h *ProjectHandler) AssignTeam(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.AssignTeamRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.AssignTeam(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "project", p.ViewFor(claims.UserID, claims.Role))
}

func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.UpdateProjectStatusRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateStatus(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "project", p.ViewFor(claims.UserID, claims.Role))
}
