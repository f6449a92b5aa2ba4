package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensing/internal/platform/middleware"
	ratelimit "licensing/internal/ratelimit/middleware"
	"licensing/internal/ratelimit/models"
	"licensing/internal/ratelimit/store/bucket"
	"licensing/pkg/requestcontext"
	"licensing/pkg/testutil"
)

type stubTokens map[string]*middleware.Claims

func (s stubTokens) ValidateToken(token string) (*middleware.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("token is malformed")
}

type routes func(r chi.Router)

func (f routes) Register(r chi.Router) { f(r) }

func whoami(r chi.Router) {
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, requestcontext.PrincipalFrom(r.Context()).Role)
	})
	r.Post("/candidates", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
}

func dashboard(r chi.Router) {
	r.Get("/admin/dashboard", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var tokens = stubTokens{
	"admin-token":    {Subject: "f3a1c0de-0000-4000-8000-000000000001", Role: "admin"},
	"examiner-token": {Subject: "f3a1c0de-0000-4000-8000-000000000002", Role: "examiner"},
}

func newRouter(d Deps) http.Handler {
	d.Logger = discardLogger()
	d.Tokens = tokens
	d.API = []RouteRegistrar{routes(whoami)}
	d.Admin = []RouteRegistrar{routes(dashboard)}
	return NewRouter(d)
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(h, req)
}

func TestHealth(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		rr := get(newRouter(Deps{}), "/health", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	})

	t.Run("failing dependency", func(t *testing.T) {
		h := newRouter(Deps{Checks: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}})
		rr := get(h, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"ok","redis":"connection refused"}}`, rr.Body.String())
	})
}

func TestRequestIDHeader(t *testing.T) {
	rr := get(newRouter(Deps{}), "/whoami", "")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestOptionalAuth(t *testing.T) {
	h := newRouter(Deps{})

	t.Run("anonymous", func(t *testing.T) {
		rr := get(h, "/whoami", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Body.String())
	})

	t.Run("token attaches principal", func(t *testing.T) {
		rr := get(h, "/whoami", "examiner-token")
		assert.Equal(t, "examiner", rr.Body.String())
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		rr := get(h, "/whoami", "forged")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequiredAuth(t *testing.T) {
	h := newRouter(Deps{RequireAuth: true})
	assert.Equal(t, http.StatusUnauthorized, get(h, "/whoami", "").Code)
	assert.Equal(t, http.StatusOK, get(h, "/whoami", "admin-token").Code)
}

func TestAdminRoutes(t *testing.T) {
	h := newRouter(Deps{})

	assert.Equal(t, http.StatusUnauthorized, get(h, "/admin/dashboard", "").Code)
	assert.Equal(t, http.StatusForbidden, get(h, "/admin/dashboard", "examiner-token").Code)
	assert.Equal(t, http.StatusOK, get(h, "/admin/dashboard", "admin-token").Code)
}

func TestWritesAreRateLimited(t *testing.T) {
	limiter := ratelimit.New(bucket.NewInMemory(), discardLogger(),
		ratelimit.WithLimit(models.ClassWrite, models.Limit{Requests: 1, Window: time.Minute}))
	h := newRouter(Deps{RateLimit: limiter})

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/candidates", nil)
		req.RemoteAddr = "198.51.100.4:51234"
		return testutil.DoRequest(h, req)
	}

	require.Equal(t, http.StatusCreated, post().Code)
	rr := post()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// reads are never limited
	assert.Equal(t, http.StatusOK, get(h, "/whoami", "").Code)
}

func TestRotatedForwardingHeadersShareOneWriteLimit(t *testing.T) {
	limiter := ratelimit.New(bucket.NewInMemory(), discardLogger(),
		ratelimit.WithLimit(models.ClassWrite, models.Limit{Requests: 1, Window: time.Minute}))

	post := func(h http.Handler, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/candidates", nil)
		req.RemoteAddr = "198.51.100.9:40000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		return testutil.DoRequest(h, req).Code
	}

	h := newRouter(Deps{RateLimit: limiter})
	assert.Equal(t, http.StatusCreated, post(h, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, post(h, "203.0.113.2"))

	behindProxy := newRouter(Deps{RateLimit: limiter, TrustProxyHeaders: true})
	assert.Equal(t, http.StatusCreated, post(behindProxy, "203.0.113.3"))
	assert.Equal(t, http.StatusTooManyRequests, post(behindProxy, "203.0.113.3"))
}
