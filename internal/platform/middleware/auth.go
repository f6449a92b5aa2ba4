package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/platform/httputil"
	"licensing/pkg/requestcontext"
)

// TokenValidator validates bearer tokens issued by POST /auth/token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims is what the auth middleware needs from a validated token.
type Claims struct {
	Subject string
	Role    string
}

// Authenticate attaches the principal when a valid bearer token is present.
// Requests without a token pass through unauthenticated; a present but invalid
// token is rejected.
func Authenticate(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return authenticate(validator, logger, false)
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return authenticate(validator, logger, true)
}

func authenticate(validator TokenValidator, logger *slog.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", GetRequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, requestcontext.Principal{Subject: claims.Subject, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated principals outside roles. It is a no-op
// when no principal is attached so that optional auth keeps working.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := requestcontext.PrincipalFrom(r.Context())
			if !p.IsZero() && !slices.Contains(roles, p.Role) {
				logger.WarnContext(r.Context(), "forbidden - role not allowed",
					"request_id", GetRequestID(r.Context()),
					"role", p.Role,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
