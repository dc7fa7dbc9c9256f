package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/matchpost/matchpost/internal/auth"
	"github.com/matchpost/matchpost/internal/service"
)

// TokenValidator turns a bearer token into the caller identity.
// *service.UserService implements it.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Identity, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Tokens TokenValidator
}

// RequireSession returns a middleware that admits only requests carrying
// a valid session token in "Authorization: Bearer <token>". The identity
// is stored on the request context for handlers.
func RequireSession(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			identity, err := cfg.Tokens.ValidateToken(token)
			if err != nil {
				if errors.Is(err, service.ErrTokenExpired) {
					logAuthFailure(cfg.Logger, r, "expired_token")
					writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "session token has expired")
					return
				}
				logAuthFailure(cfg.Logger, r, "invalid_token")
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session token is invalid")
				return
			}

			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns the token from the Authorization header, or
// "" if the header is absent or uses another scheme.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}
