package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/freelance-hub/internal/domain"
	jwtinfra "github.com/freelance-hub/internal/infrastructure/jwt"
	"github.com/freelance-hub/internal/pkg/page"
	"github.com/freelance-hub/internal/pkg/validate"
	"github.com/freelance-hub/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// AuthEnvelope wraps login and register responses.
type AuthEnvelope struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

// Options tune behaviour shared by every handler.
type Options struct {
	// Production hides the detail of internal errors.
	Production       bool
	PageDefaultLimit int
	PageMaxLimit     int
}

var opts = Options{PageDefaultLimit: 10, PageMaxLimit: 100}

// Configure installs o. Call it once before serving.
func Configure(o Options) {
	if o.PageDefaultLimit < 1 {
		o.PageDefaultLimit = 10
	}
	opts = o
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: msg})
}

// writeData wraps v under key in a success envelope.
func writeData(w http.ResponseWriter, status int, key string, v any) {
	writeJSON(w, status, map[string]any{"success": true, key: v})
}

// writePage renders a paginated listing under key.
func writePage(w http.ResponseWriter, key string, items any, res page.Result) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"count":       res.Count,
		"total":       res.Total,
		"pages":       res.Pages,
		"currentPage": res.CurrentPage,
		key:           items,
	})
}

// httpError maps a service error to its status code.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		zap.L().Error("request failed", zap.Error(err))
		env := MessageEnvelope{Error: "internal server error"}
		if !opts.Production {
			env.Detail = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, env)
	}
}

// decode reads a JSON body into dst and validates it. It writes the failure
// response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

func requireClaims(w http.ResponseWriter, r *http.Request) (*jwtinfra.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return claims, ok
}

func parsePagination(r *http.Request) page.Request {
	p, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return page.Normalize(p, limit, opts.PageDefaultLimit, opts.PageMaxLimit)
}
