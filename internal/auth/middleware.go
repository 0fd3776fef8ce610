// internal/auth/middleware.go
// JWT identity middleware. Full authentication (registration, token issuance)
// lives in the external auth collaborator; this service only needs to know
// which participant is calling.

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pairplan/pairplan-backend/internal/common/utils"
)

// ErrAuthenticationRequired is returned when no participant identity is present
var ErrAuthenticationRequired = errors.New("authentication required")

type contextKey string

const userIDKey contextKey = "userID"

// Middleware provides authentication middleware
type Middleware struct {
	jwtSecret string
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(jwtSecret string) *Middleware {
	return &Middleware{jwtSecret: jwtSecret}
}

// Authenticate verifies the JWT access token and adds the participant id to
// the request context
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.extractToken(r)
		if token == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, ErrAuthenticationRequired.Error())
			return
		}

		claims, err := utils.ValidateJWT(token, m.jwtSecret)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if claims.Type != "access" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token type")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken pulls the bearer token from the Authorization header, falling
// back to the access_token query parameter for websocket upgrades where
// browsers cannot set headers
func (m *Middleware) extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

// UserID returns the authenticated participant id from the request context
func UserID(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(userIDKey).(int64)
	if !ok {
		return 0, ErrAuthenticationRequired
	}
	return id, nil
}

// WithUserID injects a participant id into a context. Used by tests and by
// internal jobs acting on behalf of the system.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
