package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/auth/jwt"
	httperrors "github.com/gokatarajesh/quizforge/pkg/http/errors"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

type ctxKey struct{}

// WithClaims returns ctx carrying claims.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// ClaimsFromContext returns the claims injected by AuthMiddleware, if any.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*jwt.Claims)
	return claims, ok && claims != nil
}

// IdentityFromContext returns the caller's user ID. Guest tokens and
// unauthenticated requests carry no identity.
func IdentityFromContext(ctx context.Context) *string {
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.IsGuest || claims.UserID == "" {
		return nil
	}
	id := claims.UserID
	return &id
}

// AuthMiddleware validates JWT tokens and injects user claims into request context.
// Requests without an Authorization header pass through anonymously.
func AuthMiddleware(validator TokenValidator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" && r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			if token == "" || validator == nil {
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid authorization header")
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				logger.Warn().Err(err).Msg("token validation failed")
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAuth ensures the request carries a non-guest identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	// Browsers cannot set headers on WebSocket upgrades.
	if strings.HasPrefix(r.URL.Path, "/ws/") {
		return r.URL.Query().Get("token")
	}
	return ""
}
