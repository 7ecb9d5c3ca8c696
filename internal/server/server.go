package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/liftlog/internal/auth"
	"github.com/claude/liftlog/internal/cache"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis_rate/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"tailscale.com/client/tailscale/apitype"
)

//go:generate mockgen -source=server.go -destination=mocks_test.go -package=server

// Authenticator is the account and login-session surface the handlers use.
// *auth.Service implements it.
type Authenticator interface {
	SignUp(ctx context.Context, email, password, fullName string) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (string, *models.User, error)
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*models.User, error)
	EnsureUser(ctx context.Context, email, fullName string) (*models.User, error)
	Events() *auth.Broker
}

// RateLimiter is satisfied by *redis_rate.Limiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// WhoIser resolves a tailnet peer address to its identity. Satisfied by the
// tsnet local client.
type WhoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Store   storage.Store
	Auth    Authenticator
	Catalog *cache.Catalog
	Alpha   *alpha.Provider
	Metrics *metrics.Manager
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Limiter throttles signup and signin. Nil disables rate limiting.
	Limiter         RateLimiter
	RateLimitPerMin int
	AuthMode        string
	DevEmail        string
	Log             *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store     storage.Store
	auth      Authenticator
	catalog   *cache.Catalog
	alpha     *alpha.Provider
	metrics   *metrics.Manager
	gatherer  prometheus.Gatherer
	limiter   RateLimiter
	ratePer   int
	mode      string
	devEmail  string
	tailscale WhoIser
	log       *slog.Logger
	router    chi.Router
}

// New creates a new Server with all routes configured.
func New(d Deps) *Server {
	s := &Server{
		store:    d.Store,
		auth:     d.Auth,
		catalog:  d.Catalog,
		alpha:    d.Alpha,
		metrics:  d.Metrics,
		gatherer: d.Gatherer,
		limiter:  d.Limiter,
		ratePer:  d.RateLimitPerMin,
		mode:     d.AuthMode,
		devEmail: d.DevEmail,
		log:      d.Log,
		router:   chi.NewRouter(),
	}
	if s.mode == "" {
		s.mode = config.AuthToken
	}
	s.routes()
	return s
}

// SetTailscale installs the tsnet client used to identify callers in
// tailscale auth mode.
func (s *Server) SetTailscale(lc WhoIser) {
	s.tailscale = lc
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(Recoverer(s.log, s.metrics))
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(RateLimit(s.limiter, "auth", s.ratePer, s.metrics))
			}
			r.Post("/auth/signup", s.handleSignUp)
			r.Post("/auth/signin", s.handleSignIn)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.identity)

			r.Post("/auth/signout", s.handleSignOut)
			r.Get("/auth/events", s.handleAuthEvents)
			r.Get("/me", s.handleMe)

			r.Get("/exercises", s.handleListExercises)
			r.Post("/exercises", s.handleCreateExercise)
			r.Get("/exercises/{id}/progress", s.handleExerciseProgress)

			r.Get("/templates", s.handleListTemplates)
			r.Post("/templates", s.handleCreateTemplate)
			r.Get("/templates/{id}", s.handleGetTemplate)
			r.Put("/templates/{id}", s.handleUpdateTemplate)
			r.Delete("/templates/{id}", s.handleDeleteTemplate)

			r.Get("/sessions", s.handleListSessions)
			r.Post("/sessions", s.handleCreateSession)
			r.Get("/sessions/{id}", s.handleGetSession)
			r.Post("/sessions/{id}/complete", s.handleCompleteSession)
			r.Get("/sessions/{id}/sets", s.handleListSets)
			r.Post("/sessions/{id}/sets", s.handleCreateSet)
			r.Get("/sessions/{id}/recommendations", s.handleRecommendations)
			r.Get("/sessions/{id}/summary", s.handleSessionSummary)

			if s.alpha != nil {
				r.Post("/import/alpha", s.handleAlphaImport)
			}
		})
	})
}
