package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hongminglow/sales-dashboard-be/internal/auth"
	"github.com/hongminglow/sales-dashboard-be/internal/cache"
	"github.com/hongminglow/sales-dashboard-be/internal/config"
	"github.com/hongminglow/sales-dashboard-be/internal/dataset"
	"github.com/hongminglow/sales-dashboard-be/internal/http/handlers"
	"github.com/hongminglow/sales-dashboard-be/internal/logging"
	"github.com/hongminglow/sales-dashboard-be/internal/middleware"
	"github.com/hongminglow/sales-dashboard-be/internal/storage"
)

// Deps are the collaborators the HTTP surface is built from. Cache and DB may be nil.
type Deps struct {
	Users   storage.UserStore
	Sales   storage.SalesStore
	Dataset *dataset.Definition
	Syncer  handlers.SyncRunner
	Cache   *cache.ReportCache
	DB      handlers.Pinger
	Log     logging.Logger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewRouter(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// NewRouter builds the route tree. Everything except health, register and login requires a bearer token.
func NewRouter(cfg config.Config, deps Deps) http.Handler {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	requireAuth := middleware.Auth(tokens)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(deps.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	handlers.NewHealthHandler(time.Now(), deps.DB).Register(r)

	authHandler := handlers.NewAuthHandler(deps.Users, tokens, cfg.BcryptCost, deps.Log)
	r.Route("/api/auth", func(r chi.Router) {
		authHandler.Register(r)
		r.With(requireAuth).Group(authHandler.RegisterProtected)
	})

	sales := handlers.NewSalesHandler(deps.Dataset, deps.Sales, deps.Log)
	r.With(requireAuth, deps.Cache.Middleware).Route("/api/sales", sales.Register)

	r.With(requireAuth).Route("/api/sync", handlers.NewSyncHandler(deps.Syncer, deps.Log).Register)

	return r
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
