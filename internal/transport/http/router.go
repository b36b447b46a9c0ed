package http

import (
	"context"
	"net/http"

	"github.com/freelance-hub/internal/application/access"
	"github.com/freelance-hub/internal/application/admin"
	"github.com/freelance-hub/internal/application/auth"
	"github.com/freelance-hub/internal/application/chat"
	"github.com/freelance-hub/internal/application/notification"
	"github.com/freelance-hub/internal/application/project"
	"github.com/freelance-hub/internal/application/task"
	"github.com/freelance-hub/internal/application/team"
	"github.com/freelance-hub/internal/application/user"
	"github.com/freelance-hub/internal/config"
	"github.com/freelance-hub/internal/domain"
	jwtinfra "github.com/freelance-hub/internal/infrastructure/jwt"
	"github.com/freelance-hub/internal/infrastructure/smtp"
	"github.com/freelance-hub/internal/metrics"
	"github.com/freelance-hub/internal/realtime"
	"github.com/freelance-hub/internal/transport/http/handler"
	appmiddleware "github.com/freelance-hub/internal/transport/http/middleware"
	"github.com/freelance-hub/internal/transport/ws"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         UserRepository
	ProjectRepo      ProjectRepository
	TeamRepo         TeamRepository
	TaskRepo         TaskRepository
	MessageRepo      MessageRepository
	NotificationRepo NotificationRepository
	OutboxRepo       OutboxRepository
	RecoveryRepo     RecoveryRepository
	Mailer           smtp.Mailer // nil disables password recovery mail
	JWTProvider      *jwtinfra.Provider
	Hub              *realtime.Hub
	Emitter          Emitter
	Presence         Presence
	Log              *zap.Logger
}

// NewRouter builds and returns the application router. ctx bounds the
// background work of the rate limiters.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	handler.Configure(handler.Options{
		Production:       cfg.IsProduction(),
		PageDefaultLimit: cfg.PageDefaultLimit,
		PageMaxLimit:     cfg.PageMaxLimit,
	})

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.AccessLog(deps.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10, on the unauthenticated account endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	resolver := access.NewResolver(deps.ProjectRepo, deps.TeamRepo)

	userSvc := user.NewService(user.ServiceDeps{UserRepo: deps.UserRepo, JWTProvider: deps.JWTProvider})
	authSvc := auth.NewService(auth.ServiceDeps{
		RecoveryRepo: deps.RecoveryRepo,
		UserRepo:     deps.UserRepo,
		Mailer:       deps.Mailer,
		CodeTTL:      cfg.RecoveryCodeTTL,
		Log:          deps.Log,
	})
	projectSvc := project.NewService(project.ServiceDeps{
		ProjectRepo: deps.ProjectRepo,
		TaskRepo:    deps.TaskRepo,
		TeamRepo:    deps.TeamRepo,
		Access:      resolver,
		Emitter:     deps.Emitter,
	})
	teamSvc := team.NewService(team.ServiceDeps{
		TeamRepo:    deps.TeamRepo,
		ProjectRepo: deps.ProjectRepo,
		UserRepo:    deps.UserRepo,
		Emitter:     deps.Emitter,
	})
	taskSvc := task.NewService(task.ServiceDeps{TaskRepo: deps.TaskRepo, Access: resolver})
	chatSvc := chat.NewService(chat.ServiceDeps{
		MessageRepo: deps.MessageRepo,
		UserRepo:    deps.UserRepo,
		Access:      resolver,
		Emitter:     deps.Emitter,
	})
	notifSvc := notification.NewService(deps.NotificationRepo, deps.UserRepo)
	adminSvc := admin.NewService(admin.ServiceDeps{UserRepo: deps.UserRepo, ProjectRepo: deps.ProjectRepo, OutboxRepo: deps.OutboxRepo})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(userSvc, authSvc)
	userH := handler.NewUserHandler(userSvc)
	projectH := handler.NewProjectHandler(projectSvc)
	teamH := handler.NewTeamHandler(teamSvc)
	taskH := handler.NewTaskHandler(taskSvc)
	chatH := handler.NewChatHandler(chatSvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	adminH := handler.NewAdminHandler(adminSvc)

	socket := ws.NewServer(ws.ServerDeps{
		Hub:            deps.Hub,
		Verifier:       deps.JWTProvider,
		Accounts:       deps.UserRepo,
		Rooms:          resolver,
		Presence:       deps.Presence,
		Dispatcher:     ws.NewDispatcher(chatSvc, projectSvc, deps.Log),
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            deps.Log,
	})

	r.Handle("/metrics", metrics.Handler())
	r.Handle("/socket", socket)

	r.Route("/api", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health", healthH.Health)
		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/auth/register", authH.Register)
			r.Post("/auth/login", authH.Login)
			r.Post("/auth/recovery", authH.RequestRecovery)
			r.Post("/auth/recovery/reset", authH.ResetPassword)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)
			r.Use(appmiddleware.Active(deps.UserRepo))

			r.Get("/auth/me", authH.Me)
			r.Put("/auth/password", authH.ChangePassword)

			r.Put("/users/me", userH.UpdateMe)
			r.Get("/users/{id}", userH.Get)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectH.List)
				r.With(appmiddleware.RequireRole(domain.RoleClient, domain.RoleAdmin)).Post("/", projectH.Create)
				r.Get("/mine", projectH.Mine)
				r.Get("/{id}", projectH.Get)
				r.Put("/{id}", projectH.Update)
				r.Delete("/{id}", projectH.Delete)
				r.With(appmiddleware.RequireRole(domain.RoleFreelancer)).Post("/{id}/proposals", projectH.SubmitProposal)
				r.Post("/{id}/proposals/{proposalId}/accept", projectH.AcceptProposal)
				r.Post("/{id}/proposals/{proposalId}/reject", projectH.RejectProposal)
				r.Put("/{id}/team", projectH.AssignTeam)
				r.Put("/{id}/status", projectH.UpdateStatus)
			})

			r.Route("/teams", func(r chi.Router) {
				r.Get("/", teamH.Mine)
				r.Post("/", teamH.Create)
				r.Get("/{id}", teamH.Get)
				r.Post("/{id}/members", teamH.AddMember)
				r.Delete("/{id}/members/{userId}", teamH.RemoveMember)
				r.Post("/{id}/leave", teamH.Leave)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", taskH.Create)
				r.Get("/project/{projectId}", taskH.ListByProject)
				r.Get("/{id}", taskH.Get)
				r.Put("/{id}", taskH.Update)
				r.Put("/{id}/assign", taskH.Assign)
				r.Delete("/{id}", taskH.Delete)
			})

			r.Route("/chats", func(r chi.Router) {
				conversations := map[string]handler.TargetFunc{
					"/direct":   domain.DirectTo,
					"/teams":    domain.TeamTarget,
					"/projects": domain.ProjectTarget,
				}
				for prefix, target := range conversations {
					r.Get(prefix+"/{id}", chatH.Conversation(target))
					r.Post(prefix+"/{id}", chatH.Send(target))
					r.Put(prefix+"/{id}/read", chatH.MarkConversationRead(target))
				}
				r.Put("/messages/{id}/read", chatH.MarkRead)
				r.Post("/messages/{id}/reactions", chatH.React)
				r.Delete("/messages/{id}", chatH.Delete)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notifH.List)
				r.Get("/unread-count", notifH.UnreadCount)
				r.Put("/read-all", notifH.MarkAllRead)
				r.Delete("/read", notifH.DeleteAllRead)
				r.Get("/{id}", notifH.Get)
				r.Put("/{id}/read", notifH.MarkRead)
				r.Put("/{id}/actions/{index}", notifH.CompleteAction)
				r.Delete("/{id}", notifH.Delete)
			})

			// Admin-only routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/stats", adminH.Stats)
				r.Get("/users", adminH.ListUsers)
				r.Put("/users/{id}/enable", adminH.SetEnabled)
				r.Post("/broadcast", adminH.Broadcast)
			})
		})
	})

	return r
}
