package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// StatusProbe reports the database clock for the health endpoint.
type StatusProbe interface {
	DatabaseTime(ctx context.Context) (time.Time, error)
}

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Identity       IdentityManager
	Events         EventManager
	Status         StatusProbe
	Logger         zerolog.Logger
	CORSOrigins    []string
	RequestTimeout time.Duration
	// StaticDir, when set, is served at the root for the built frontend.
	StaticDir string
}

// NewRouter builds the chi router with the global middleware stack and all
// API routes mounted under /api.
func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.Identity)
	eventHandler := NewEventHandler(cfg.Events)
	requireAuth := RequireAuth(cfg.Identity)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", HealthCheck)
		r.Get("/health/db", DatabaseCheck(cfg.Status))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(requireAuth).Get("/me", authHandler.Me)
		})

		r.Route("/events", func(r chi.Router) {
			// Public routes
			r.Get("/", eventHandler.ListEvents)
			r.Get("/{id}", eventHandler.GetEvent)

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", eventHandler.CreateEvent)
				r.Post("/{id}/join", eventHandler.Join)
				r.Post("/{id}/leave", eventHandler.Leave)
			})
		})
	})

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}
