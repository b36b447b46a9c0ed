package handler

import (
	"net/http"

	"github.com/freelance-hub/internal/application/task"
	"github.com/freelance-hub/internal/domain"
	"github.com/go-chi/chi/v5"
)

// TaskHandler handles project task endpoints.
type TaskHandler struct {
	svc task.Service
}

func NewTaskHandler(svc task.Service) *TaskHandler { return &TaskHandler{svc: svc} }

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.CreateTaskRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Create(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "task", t)
}

func (h *TaskHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	tasks, res, err := h.svc.ListByProject(r.Context(), claims.UserID, chi.URLParam(r, "projectId"), parsePagination(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writePage(w, "tasks", tasks, res)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "task", t)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.UpdateTaskRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Update(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "task", t)
}

func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.AssignTaskRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Assign(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "task", t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, "task deleted")
}
