package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AnvithShetty10/expense-share/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey ContextKey = "user_id"

	// DevUserHeader names the header accepted in place of a token when
	// development auth is enabled.
	DevUserHeader = "X-User-ID"
)

// TokenVerifier validates a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// UserChecker reports whether a user exists and may use the API.
type UserChecker interface {
	ActiveStatus(ctx context.Context, id uuid.UUID) (found, active bool, err error)
}

// Auth requires a valid bearer token on every request. With devAuth set,
// a request carrying an X-User-ID header is trusted without a token.
// Either way the user must exist and be active.
func Auth(verifier TokenVerifier, users UserChecker, devAuth bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		admit := func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
			found, active, err := users.ActiveStatus(r.Context(), userID)
			if err != nil {
				logger.Error("user lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
				response.InternalError(w, "Internal server error")
				return
			}
			if !found {
				response.Unauthorized(w, "Could not validate credentials")
				return
			}
			if !active {
				response.Forbidden(w, "Inactive user")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if devAuth {
				if raw := r.Header.Get(DevUserHeader); raw != "" {
					userID, err := uuid.Parse(raw)
					if err != nil {
						response.Unauthorized(w, "Invalid "+DevUserHeader+" header")
						return
					}
					admit(w, r, userID)
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Authorization header required")
				return
			}

			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			userID, err := verifier.Verify(parts[1])
			if err != nil {
				logger.Debug("token rejected", zap.Error(err))
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			admit(w, r, userID)
		})
	}
}

// WithUserID stores the authenticated user ID in ctx
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}
