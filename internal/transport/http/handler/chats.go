package handler

import (
	"net/http"

	"github.com/freelance-hub/internal/application/chat"
	"github.com/freelance-hub/internal/domain"
	"github.com/go-chi/chi/v5"
)

// TargetFunc builds the conversation addressed by a URL id.
type TargetFunc func(id string) domain.ChatTarget

// ChatHandler handles direct, team and project conversations.
type ChatHandler struct {
	svc chat.Service
}

func NewChatHandler(svc chat.Service) *ChatHandler { return &ChatHandler{svc: svc} }

func (h *ChatHandler) Send(target TargetFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r)
		if !ok {
			return
		}
		var req domain.SendMessageRequest
		if !decode(w, r, &req) {
			return
		}
		m, err := h.svc.Send(r.Context(), claims.UserID, target(chi.URLParam(r, "id")), req)
		if err != nil {
			httpError(w, err)
			return
		}
		writeData(w, http.StatusCreated, "message", m)
	}
}

func (h *ChatHandler) Conversation(target TargetFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r)
		if !ok {
			return
		}
		msgs, res, err := h.svc.Conversation(r.Context(), claims.UserID, target(chi.URLParam(r, "id")), parsePagination(r))
		if err != nil {
			httpError(w, err)
			return
		}
		writePage(w, "messages", msgs, res)
	}
}

func (h *ChatHandler) MarkConversationRead(target TargetFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r)
		if !ok {
			return
		}
		n, err := h.svc.MarkConversationRead(r.Context(), claims.UserID, target(chi.URLParam(r, "id")))
		if err != nil {
			httpError(w, err)
			return
		}
		writeData(w, http.StatusOK, "updated", n)
	}
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	m, err := h.svc.MarkRead(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "message", m)
}

func (h *ChatHandler) React(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req domain.ReactRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.svc.React(r.Context(), claims.UserID, chi.URLParam(r, "id"), req.Emoji)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, "message", m)
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeMessage(w, "message deleted")
}
