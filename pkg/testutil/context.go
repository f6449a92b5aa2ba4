package testutil

import (
	"net/http"
	"time"

	"licensing/pkg/requestcontext"
)

// WithPrincipal simulates what the auth middleware attaches for a bearer token.
func WithPrincipal(req *http.Request, subject, role string) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{Subject: subject, Role: role})
	return req.WithContext(ctx)
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
