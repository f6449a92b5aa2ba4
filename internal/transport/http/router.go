// Package httptransport assembles the chi router: the shared middleware
// chain, the module handlers and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"licensing/internal/platform/metrics"
	"licensing/internal/platform/middleware"
	ratelimit "licensing/internal/ratelimit/middleware"
	"licensing/internal/ratelimit/models"
	"licensing/pkg/platform/httputil"
)

// RouteRegistrar is implemented by every module handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps is everything the router needs. Nil optional fields disable the
// corresponding feature.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Tokens         middleware.TokenValidator
	RequireAuth    bool
	RequestTimeout time.Duration
	RateLimit      *ratelimit.Middleware
	Checks         map[string]HealthCheck
	// TrustProxyHeaders takes the client IP from X-Forwarded-For/X-Real-IP.
	TrustProxyHeaders bool

	// Auth routes are reachable without a token.
	Auth []RouteRegistrar
	// API routes carry the caller's principal when a token is presented.
	API []RouteRegistrar
	// Admin routes always require an admin token.
	Admin []RouteRegistrar
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Logger, d.Metrics))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata(d.TrustProxyHeaders))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.LatencyMiddleware(d.Metrics))
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}

	r.Get("/health", healthHandler(d.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(rateLimit(d.RateLimit, models.ClassAuth))
		for _, h := range d.Auth {
			h.Register(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		if d.RequireAuth {
			r.Use(middleware.RequireAuth(d.Tokens, d.Logger))
		} else {
			r.Use(middleware.Authenticate(d.Tokens, d.Logger))
		}
		r.Use(rateLimit(d.RateLimit, models.ClassWrite))
		for _, h := range d.API {
			h.Register(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Tokens, d.Logger))
		r.Use(middleware.RequireRole(d.Logger, "admin"))
		for _, h := range d.Admin {
			h.Register(r)
		}
	})

	return r
}

func rateLimit(m *ratelimit.Middleware, class models.EndpointClass) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return m.RateLimit(class)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
