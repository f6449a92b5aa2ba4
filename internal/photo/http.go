package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"licensing/pkg/platform/sentinel"
)

// ErrBlocked marks a ref whose host may not be fetched: outside the allowed
// hosts, or resolving to a loopback, private or link-local address.
var ErrBlocked = errors.New("photo host is not allowed")

// carrier-grade NAT space is not covered by netip.Addr.IsPrivate.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// HTTPSource downloads photos from http(s) URLs.
type HTTPSource struct {
	client       *http.Client
	maxBytes     int64
	allowedHosts map[string]struct{}
	allowPrivate bool
}

type HTTPOption func(*HTTPSource)

// WithAllowedHosts restricts fetches to the named hosts. An empty list allows
// any public host.
func WithAllowedHosts(hosts []string) HTTPOption {
	return func(s *HTTPSource) {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				s.allowedHosts[h] = struct{}{}
			}
		}
	}
}

// WithPrivateNetworks permits loopback and private targets, for photo stores
// that live inside the deployment network.
func WithPrivateNetworks() HTTPOption {
	return func(s *HTTPSource) {
		s.allowPrivate = true
	}
}

// NewHTTPSource bounds each fetch by timeout and the body by maxBytes.
func NewHTTPSource(timeout time.Duration, maxBytes int64, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		maxBytes:     maxBytes,
		allowedHosts: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}

	dialer := &net.Dialer{Timeout: timeout}
	if !s.allowPrivate {
		dialer.Control = refuseInternal
	}
	s.client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: timeout,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("photo fetch: too many redirects")
			}
			return s.checkHost(req.URL.String())
		},
	}
	return s
}

func (s *HTTPSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := s.checkHost(ref); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build photo request: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlocked) {
			return nil, fmt.Errorf("fetch photo: %w", err)
		}
		return nil, fmt.Errorf("fetch photo: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("fetch photo: status %d: %w", resp.StatusCode, sentinel.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch photo: status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	if resp.ContentLength > s.maxBytes {
		return nil, fmt.Errorf("photo is %d bytes, limit %d", resp.ContentLength, s.maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes", s.maxBytes)
	}
	return body, nil
}

func (s *HTTPSource) checkHost(ref string) error {
	if len(s.allowedHosts) == 0 {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return fmt.Errorf("parse photo ref: %w", err)
	}
	if _, ok := s.allowedHosts[strings.ToLower(u.Hostname())]; !ok {
		return fmt.Errorf("photo host %q: %w", u.Hostname(), ErrBlocked)
	}
	return nil
}

// refuseInternal runs after name resolution, so it also catches public names
// that resolve to internal addresses. Redirects dial through it as well.
func refuseInternal(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("photo dial address %q: %w", address, ErrBlocked)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("photo dial address %q: %w", address, ErrBlocked)
	}
	if !publicAddr(ip.Unmap()) {
		return fmt.Errorf("photo address %s: %w", ip, ErrBlocked)
	}
	return nil
}

func publicAddr(ip netip.Addr) bool {
	return ip.IsGlobalUnicast() &&
		!ip.IsPrivate() &&
		!sharedAddressSpace.Contains(ip)
}
