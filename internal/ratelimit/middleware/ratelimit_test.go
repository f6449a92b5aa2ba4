package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensing/internal/ratelimit/models"
	"licensing/internal/ratelimit/store/bucket"
	"licensing/pkg/requestcontext"
	"licensing/pkg/testutil"
)

type brokenStore struct{ calls int }

func (b *brokenStore) Allow(context.Context, string, models.Limit) (*models.Result, error) {
	b.calls++
	return nil, errors.New("dial tcp 10.0.0.5:6379: connection refused")
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func post(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payments", nil)
	req = req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
	return testutil.DoRequest(h, req)
}

func TestRateLimitWrites(t *testing.T) {
	m := New(bucket.NewInMemory(), discardLogger(),
		WithLimit(models.ClassWrite, models.Limit{Requests: 2, Window: time.Minute}))
	h := m.RateLimit(models.ClassWrite)(okHandler())

	testutil.Given(t, "a client within budget", func(t *testing.T) {
		rr := post(h, "203.0.113.7")
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))
	})

	testutil.Given(t, "the same client over budget", func(t *testing.T) {
		post(h, "203.0.113.7")
		rr := post(h, "203.0.113.7")
		testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	})

	testutil.Given(t, "another client", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, post(h, "198.51.100.1").Code)
	})

	testutil.Given(t, "reads", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/license/x", nil)
		req = req.WithContext(requestcontext.WithClientIP(req.Context(), "203.0.113.7"))
		assert.Equal(t, http.StatusNoContent, testutil.DoRequest(h, req).Code)
	})
}

func TestRateLimitDisabled(t *testing.T) {
	store := &brokenStore{}
	h := New(store, discardLogger(), WithDisabled(true)).RateLimit(models.ClassWrite)(okHandler())
	assert.Equal(t, http.StatusNoContent, post(h, "203.0.113.7").Code)
	assert.Zero(t, store.calls)
}

func TestFailsOpenWithoutFallback(t *testing.T) {
	h := New(&brokenStore{}, discardLogger()).RateLimit(models.ClassWrite)(okHandler())
	assert.Equal(t, http.StatusNoContent, post(h, "203.0.113.7").Code)
}

func TestFallbackAfterRepeatedFailures(t *testing.T) {
	primary := &brokenStore{}
	m := New(primary, discardLogger(),
		WithFallback(bucket.NewInMemory()),
		WithLimit(models.ClassWrite, models.Limit{Requests: 100, Window: time.Minute}))
	h := m.RateLimit(models.ClassWrite)(okHandler())

	for range 4 {
		rr := post(h, "203.0.113.7")
		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Header().Get("X-RateLimit-Status"))
	}

	rr := post(h, "203.0.113.7")
	assert.Equal(t, "degraded", rr.Header().Get("X-RateLimit-Status"))
	assert.True(t, m.breaker.IsOpen())

	calls := primary.calls
	post(h, "203.0.113.7")
	post(h, "203.0.113.7")
	assert.Equal(t, calls, primary.calls, "open circuit skips the primary between probes")
}

func TestCircuitBreakerCloses(t *testing.T) {
	cb := newCircuitBreaker(2, 2)
	assert.False(t, cb.RecordFailure())
	assert.True(t, cb.RecordFailure())
	assert.True(t, cb.IsOpen())

	assert.False(t, cb.RecordSuccess())
	assert.True(t, cb.RecordSuccess())
	assert.False(t, cb.IsOpen())
}
