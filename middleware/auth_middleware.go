package middleware

import (
	"context"
	"net/http"
	"strings"

	"AutoPostAPI/services"
	"AutoPostAPI/utils"

	"github.com/gorilla/mux"
)

type contextKey string

const userIDKey contextKey = "userID"

// TokenValidator is satisfied by *services.TokenValidator.
type TokenValidator interface {
	ValidateToken(token string) (*services.Claims, error)
}

func AuthMiddleware(validator TokenValidator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid authorization header")
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				utils.Debugf("Rejected token for %s %s: %v", r.Method, r.URL.Path, err)
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated caller, or "" outside AuthMiddleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
