package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensing/pkg/requestcontext"
)

type stubValidator struct {
	claims *Claims
	err    error
}

func (s stubValidator) ValidateToken(string) (*Claims, error) { return s.claims, s.err }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("inbound id is propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("missing id is minted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})
}

func TestAuthenticate(t *testing.T) {
	var principal requestcontext.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal = requestcontext.PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("optional auth lets anonymous requests through", func(t *testing.T) {
		principal = requestcontext.Principal{}
		rec := httptest.NewRecorder()
		Authenticate(stubValidator{}, discardLogger())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, principal.IsZero())
	})

	t.Run("valid token attaches the principal", func(t *testing.T) {
		v := stubValidator{claims: &Claims{Subject: "staff-1", Role: "admin"}}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		Authenticate(v, discardLogger())(next).ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "staff-1", principal.Subject)
		assert.Equal(t, "admin", principal.Role)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		v := stubValidator{err: errors.New("bad signature")}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		Authenticate(v, discardLogger())(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"unauthorized"`)
	})

	t.Run("required auth rejects anonymous requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAuth(stubValidator{}, discardLogger())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	mw := RequireRole(discardLogger(), "admin")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{Subject: "c-1", Role: "candidate"}))
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger(), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"internal_error"`)
}

func TestClientIPFromRequest(t *testing.T) {
	cases := []struct {
		name       string
		header     map[string]string
		remote     string
		trustProxy bool
		want       string
	}{
		{"forwarded chain behind proxy", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:1234", true, "203.0.113.7"},
		{"real ip behind proxy", map[string]string{"X-Real-IP": " 198.51.100.2 "}, "10.0.0.1:1234", true, "198.51.100.2"},
		{"forwarded chain ignored", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "192.0.2.9:1234", false, "192.0.2.9"},
		{"real ip ignored", map[string]string{"X-Real-IP": "198.51.100.2"}, "192.0.2.9:1234", false, "192.0.2.9"},
		{"ipv4 remote", nil, "192.0.2.1:5555", false, "192.0.2.1"},
		{"ipv6 remote", nil, "[::1]:5555", true, "::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIPFromRequest(req, tc.trustProxy))
		})
	}
}

func TestClientMetadataIgnoresSpoofedForwarding(t *testing.T) {
	var seen []string
	h := ClientMetadata(false)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = append(seen, requestcontext.ClientIP(r.Context()))
	}))
	for _, spoofed := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/candidates", nil)
		req.RemoteAddr = "192.0.2.44:40000"
		req.Header.Set("X-Forwarded-For", spoofed)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, []string{"192.0.2.44", "192.0.2.44"}, seen)
}
