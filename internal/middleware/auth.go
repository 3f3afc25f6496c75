package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/carmelita/carmelita-be/internal/auth"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/models"
)

type identityKey struct{}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Email  string
	Role   models.Role
}

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Authenticate attaches the caller identity when the request carries a
// valid bearer token. Requests without one pass through unauthenticated;
// handlers decide whether an identity is required.
func Authenticate(tokens TokenParser, logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			logger.WithContext(r.Context()).Warn("malformed authorization header")
			next.ServeHTTP(w, r)
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			logger.WithContext(r.Context()).WithError(err).Warn("token validation failed")
			next.ServeHTTP(w, r)
			return
		}

		ctx := WithIdentity(r.Context(), Identity{UserID: claims.Subject, Email: claims.Email, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithIdentity stores id on the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = logging.WithUserID(ctx, id.UserID)
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller identity, if the request was authenticated.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}
