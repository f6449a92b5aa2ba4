package photo

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensing/pkg/platform/sentinel"
)

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			_, _ = w.Write([]byte("photo-bytes"))
		case "/big.jpg":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		case "/slow.jpg":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		case "/broken.jpg":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(50*time.Millisecond, 32, WithPrivateNetworks())
	ctx := context.Background()

	body, err := src.Fetch(ctx, srv.URL+"/ok.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("photo-bytes"), body)

	_, err = src.Fetch(ctx, srv.URL+"/missing.jpg")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = src.Fetch(ctx, srv.URL+"/broken.jpg")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)

	_, err = src.Fetch(ctx, srv.URL+"/big.jpg")
	assert.ErrorContains(t, err, "limit 32")

	_, err = src.Fetch(ctx, srv.URL+"/slow.jpg")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestHTTPSourceRefusesInternalTargets(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("internal-admin-secret"))
	}))
	defer srv.Close()

	src := NewHTTPSource(time.Second, 1<<10)
	ctx := context.Background()

	for _, ref := range []string{
		srv.URL + "/internal/admin",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]:" + strconv.Itoa(srv.Listener.Addr().(*net.TCPAddr).Port) + "/p.jpg",
		"http://10.0.0.8/p.jpg",
	} {
		t.Run(ref, func(t *testing.T) {
			body, err := src.Fetch(ctx, ref)
			assert.ErrorIs(t, err, ErrBlocked)
			assert.Nil(t, body)
		})
	}
	assert.Zero(t, hits.Load())

	body, err := Router{HTTP: src}.Fetch(ctx, srv.URL+"/internal/admin")
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Nil(t, body)
	assert.Zero(t, hits.Load())
}

func TestHTTPSourceAllowedHosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("photo-bytes"))
	}))
	defer srv.Close()
	ctx := context.Background()

	src := NewHTTPSource(time.Second, 1<<10, WithPrivateNetworks(), WithAllowedHosts([]string{" 127.0.0.1 "}))
	body, err := src.Fetch(ctx, srv.URL+"/ok.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("photo-bytes"), body)

	src = NewHTTPSource(time.Second, 1<<10, WithPrivateNetworks(), WithAllowedHosts([]string{"photos.example"}))
	_, err = src.Fetch(ctx, srv.URL+"/ok.jpg")
	assert.ErrorIs(t, err, ErrBlocked)

	redirector := httptest.NewServer(http.RedirectHandler("http://localhost:1/p.jpg", http.StatusFound))
	defer redirector.Close()
	src = NewHTTPSource(time.Second, 1<<10, WithPrivateNetworks(), WithAllowedHosts([]string{"127.0.0.1"}))
	_, err = src.Fetch(ctx, redirector.URL+"/p.jpg")
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestPublicAddr(t *testing.T) {
	tests := map[string]bool{
		"93.184.216.34":   true,
		"2606:4700::1111": true,
		"127.0.0.1":       false,
		"10.1.2.3":        false,
		"172.16.0.1":      false,
		"192.168.1.1":     false,
		"169.254.169.254": false,
		"100.64.0.1":      false,
		"0.0.0.0":         false,
		"::1":             false,
		"fd00::1":         false,
		"fe80::1":         false,
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, want, publicAddr(netip.MustParseAddr(raw)))
		})
	}
}

type stubSource struct {
	calls int
	body  []byte
	err   error
}

func (s *stubSource) Fetch(context.Context, string) ([]byte, error) {
	s.calls++
	return s.body, s.err
}

func TestRouter(t *testing.T) {
	httpSrc := &stubSource{body: []byte("web")}
	gridSrc := &stubSource{body: []byte("grid")}
	r := Router{HTTP: httpSrc, GridFS: gridSrc}
	ctx := context.Background()

	body, err := r.Fetch(ctx, "https://cdn.example/p.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("web"), body)

	body, err = r.Fetch(ctx, "GRIDFS:65f0c0ffee0ddba11deadbee")
	require.NoError(t, err)
	assert.Equal(t, []byte("grid"), body)

	_, err = r.Fetch(ctx, "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = r.Fetch(ctx, "ftp://old/p.jpg")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = Router{}.Fetch(ctx, "gridfs:65f0c0ffee0ddba11deadbee")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestParseGridFSRef(t *testing.T) {
	oid, err := ParseGridFSRef("gridfs:65f0c0ffee0ddba11deadbee")
	require.NoError(t, err)
	assert.Equal(t, "65f0c0ffee0ddba11deadbee", oid.Hex())

	_, err = ParseGridFSRef("gridfs:nothex")
	assert.Error(t, err)
	_, err = ParseGridFSRef("https://x")
	assert.Error(t, err)
}

type fakeRedis struct {
	data     map[string][]byte
	getErr   error
	setCalls int
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.setCalls++
	f.data[key] = value.([]byte)
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	store := &fakeRedis{data: map[string][]byte{}}
	next := &stubSource{body: []byte("jpeg")}
	cache := NewRedisCache(store, next, time.Minute, nil)

	for range 3 {
		body, err := cache.Fetch(ctx, "https://cdn.example/p.jpg")
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg"), body)
	}
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, store.setCalls)
}

func TestRedisCacheBypassesFailures(t *testing.T) {
	ctx := context.Background()

	down := &fakeRedis{data: map[string][]byte{}, getErr: errors.New("connection refused")}
	next := &stubSource{body: []byte("jpeg")}
	body, err := NewRedisCache(down, next, time.Minute, nil).Fetch(ctx, "https://cdn.example/p.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), body)

	missing := &stubSource{err: sentinel.ErrNotFound}
	store := &fakeRedis{data: map[string][]byte{}}
	_, err = NewRedisCache(store, missing, time.Minute, nil).Fetch(ctx, "https://cdn.example/gone.jpg")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Zero(t, store.setCalls, "failures are not cached")
}
