// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free of
// net/http lets services depend on it without pulling in transport code.
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithPrincipal(ctx, requestcontext.Principal{Subject: id, Role: "admin"})
package requestcontext

import (
	"context"
	"strings"
	"time"

	dErrors "licensing/pkg/domain-errors"
)

type (
	principalKey   struct{}
	clientIPKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyPrincipal   = principalKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Principal is the authenticated caller as asserted by a bearer token.
// Subject is the staff or candidate UUID string; Role is "admin", "examiner" or "candidate".
type Principal struct {
	Subject string
	Role    string
}

// IsZero reports whether no principal was authenticated.
func (p Principal) IsZero() bool { return p.Subject == "" }

// PrincipalFrom returns the authenticated principal, or the zero value.
func PrincipalFrom(ctx context.Context) Principal {
	if p, ok := ctx.Value(ContextKeyPrincipal).(Principal); ok {
		return p
	}
	return Principal{}
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// ActorID resolves who is acting. A non-empty bodyID is used when no principal
// is authenticated or when it matches the principal's subject; an empty bodyID
// falls back to the principal. A disagreeing bodyID is Forbidden.
func ActorID(ctx context.Context, bodyID string) (string, error) {
	p := PrincipalFrom(ctx)
	switch {
	case bodyID == "" && p.IsZero():
		return "", dErrors.New(dErrors.CodeValidation, "actor id is required")
	case bodyID == "":
		return p.Subject, nil
	case !p.IsZero() && !strings.EqualFold(bodyID, p.Subject):
		return "", dErrors.New(dErrors.CodeForbidden, "actor id does not match the authenticated caller")
	default:
		return bodyID, nil
	}
}
