package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/JMAlloway/Check-sub001/internal/api/handler"
	mw "github.com/JMAlloway/Check-sub001/internal/api/middleware"
	"github.com/JMAlloway/Check-sub001/internal/audit"
	"github.com/JMAlloway/Check-sub001/internal/cache"
	"github.com/JMAlloway/Check-sub001/internal/config"
	"github.com/JMAlloway/Check-sub001/internal/gateway"
	"github.com/JMAlloway/Check-sub001/internal/health"
	"github.com/JMAlloway/Check-sub001/internal/registry"
	"github.com/JMAlloway/Check-sub001/internal/token"
)

// Server is the gateway's HTTP boundary.
type Server struct {
	router  chi.Router
	logger  zerolog.Logger
	cfg     *config.Config
	svc     *gateway.Service
	auditor *audit.Logger
}

// Deps are the composed components the server routes into.
type Deps struct {
	Gateway   *gateway.Service
	Validator *token.Validator
	Registry  *registry.KeyRegistry
	Monitor   *health.Monitor
	Cache     *cache.Cache
	Auditor   *audit.Logger
}

func NewServer(logger zerolog.Logger, cfg *config.Config, deps Deps) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		logger:  logger,
		cfg:     cfg,
		svc:     deps.Gateway,
		auditor: deps.Auditor,
	}

	s.setupMiddleware()
	s.setupRoutes(deps)

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.Correlation)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes(deps Deps) {
	s.router.Handle("/metrics", promhttp.Handler())

	healthH := handler.NewHealth(deps.Monitor, deps.Cache, s.cfg.Mode)
	s.router.Get("/healthz", healthH.Healthz)

	// Image channel: bearer-token authenticated, one audit record per request.
	s.router.Route("/v1", func(r chi.Router) {
		r.Use(mw.Auth(deps.Validator, s.cfg.ConnectorID, deps.Auditor))

		image := handler.NewImage(deps.Gateway, deps.Auditor, s.cfg.ConnectorID)
		r.Get("/images/by-handle", image.ByHandle)
		r.Get("/images/by-item", image.ByItem)

		item := handler.NewItem(deps.Gateway, deps.Auditor, s.cfg.ConnectorID)
		r.Get("/items/lookup", item.Lookup)
	})

	// Local operator surface, driven by the remote console.
	s.router.Route("/admin/v1", func(r chi.Router) {
		r.Use(mw.AdminAuth(s.cfg.AdminAPIKey))

		connector := handler.NewConnector(deps.Registry)
		r.Post("/connectors", connector.Register)
		r.Get("/connectors/{id}", connector.Get)
		r.Post("/connectors/{id}/rotate", connector.BeginRotation)
		r.Post("/connectors/{id}/rotate/complete", connector.CompleteRotation)
		r.Post("/connectors/{id}/rotate/cancel", connector.CancelRotation)
		r.Post("/connectors/{id}/enable", connector.Enable)
		r.Post("/connectors/{id}/disable", connector.Disable)
		r.Put("/connectors/{id}/token-lifetime", connector.UpdateTokenLifetime)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
