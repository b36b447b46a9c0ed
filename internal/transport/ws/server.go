// Package ws serves the real-time socket endpoint.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	jwtinfra "github.com/freelance-hub/internal/infrastructure/jwt"
	"github.com/freelance-hub/internal/realtime"
	"github.com/freelance-hub/internal/transport/http/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type tokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

type roomResolver interface {
	Rooms(ctx context.Context, userID string) ([]string, error)
}

type presence interface {
	Connect(ctx context.Context, userID string) error
	Disconnect(ctx context.Context, userID string) error
}

// Server upgrades authenticated requests to sockets, joins them to their
// rooms and feeds inbound events to a Dispatcher.
type Server struct {
	hub        *realtime.Hub
	verifier   tokenVerifier
	accounts   middleware.AccountLookup
	rooms      roomResolver
	presence   presence
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

type ServerDeps struct {
	Hub            *realtime.Hub
	Verifier       tokenVerifier
	Accounts       middleware.AccountLookup
	Rooms          roomResolver
	Presence       presence
	Dispatcher     *Dispatcher
	AllowedOrigins []string
	Log            *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		hub:        deps.Hub,
		verifier:   deps.Verifier,
		accounts:   deps.Accounts,
		rooms:      deps.Rooms,
		presence:   deps.Presence,
		dispatcher: deps.Dispatcher,
		log:        deps.Log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(deps.AllowedOrigins),
	}
	return s
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

// ServeHTTP blocks for the lifetime of the socket.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		unauthorized(w, "missing token")
		return
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		unauthorized(w, "invalid or expired token")
		return
	}

	ctx := r.Context()
	if status, msg := middleware.CheckAccount(ctx, s.accounts, claims.UserID); status != 0 {
		writeError(w, status, msg)
		return
	}
	rooms, err := s.rooms.Rooms(ctx, claims.UserID)
	if err != nil {
		s.log.Error("resolve socket rooms", zap.String("user_id", claims.UserID), zap.Error(err))
		http.Error(w, `{"success":false,"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("socket upgrade failed", zap.Error(err))
		return
	}

	c := realtime.NewClient(s.hub, conn, claims.UserID, claims.Role, s.log)
	s.hub.Register(c, rooms...)
	if err := s.presence.Connect(ctx, claims.UserID); err != nil {
		s.log.Warn("presence connect", zap.String("user_id", claims.UserID), zap.Error(err))
	}
	s.log.Debug("socket connected", zap.String("user_id", claims.UserID), zap.Int("rooms", len(rooms)))

	go c.WritePump()
	c.ReadPump(ctx, s.dispatcher.Handle)

	// the request context is done once the connection is gone
	if err := s.presence.Disconnect(context.WithoutCancel(ctx), claims.UserID); err != nil {
		s.log.Warn("presence disconnect", zap.String("user_id", claims.UserID), zap.Error(err))
	}
	s.log.Debug("socket disconnected", zap.String("user_id", claims.UserID))
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
