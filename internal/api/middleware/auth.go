package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/citewise/internal/api"
	"github.com/cloo-solutions/citewise/internal/domain"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// AuthValidator resolves a bearer token to the user it belongs to.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// StaticKeys validates tokens against a fixed token to user id table.
type StaticKeys map[string]string

func (k StaticKeys) ValidateAPIKey(_ context.Context, token string) (string, error) {
	for candidate, userID := range k {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return userID, nil
		}
	}
	return "", domain.ErrInvalidAPIKey
}

func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			userID, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil || userID == "" {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			// Outer middleware only sees the original request; the header
			// lets the access log and Sentry pick up the user.
			r.Header.Set("X-User-ID", userID)
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
