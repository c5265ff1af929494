package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nikolayk812/ordermgr/internal/auth"
	"github.com/nikolayk812/ordermgr/internal/httpx"
	"github.com/nikolayk812/ordermgr/internal/observability"
	"go.uber.org/zap"
)

const (
	defaultAPIPrefix = "/api/v1"
	defaultTimeout   = 30 * time.Second
)

type routerConfig struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	health  *HealthHandlers
	orders  *OrderHandlers
	items   *ItemHandlers
	timeout time.Duration
}

type Option func(*routerConfig)

func WithLogger(logger *zap.Logger) Option {
	return func(cfg *routerConfig) {
		cfg.logger = logger
	}
}

// WithMetrics instruments every route and exposes GET /metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(cfg *routerConfig) {
		cfg.metrics = metrics
	}
}

func WithHealth(health *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = health
	}
}

func WithOrders(orders *OrderHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.orders = orders
	}
}

func WithItems(items *ItemHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.items = items
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *routerConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// NewRouter mounts the probes and metrics at the root and the order and
// catalog APIs under /api/v1 behind bearer authentication.
func NewRouter(authn *auth.Authenticator, opts ...Option) (chi.Router, error) {
	if authn == nil {
		return nil, fmt.Errorf("authenticator is nil")
	}

	cfg := routerConfig{
		logger:  zap.NewNop(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers(nil)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(cfg.logger))
	if cfg.metrics != nil {
		r.Use(cfg.metrics.Middleware)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.timeout))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics.Handler())
	}

	r.Route(defaultAPIPrefix, func(api chi.Router) {
		api.Use(authn.RequireAuth)

		if cfg.orders != nil {
			api.Route("/orders", cfg.orders.Routes)
		}
		if cfg.items != nil {
			api.Route("/items", cfg.items.Routes)
		}
	})

	return r, nil
}
