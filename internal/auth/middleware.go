package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// UserIDKey is the context key for the authenticated user id
const UserIDKey contextKey = "user_id"

// UserChecker reports whether a user id still refers to an existing account.
type UserChecker func(ctx context.Context, userID string) (bool, error)

// JWTMiddleware rejects requests without a valid bearer token and stores the
// token subject under UserIDKey.
func JWTMiddleware(secret string, userExists UserChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			userID, err := ValidateJWT(secret, tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			if userExists != nil {
				ok, err := userExists(r.Context(), userID)
				if err != nil {
					log.Printf("Error in JWTMiddleware for user %s: %v", userID, err)
					writeError(w, http.StatusInternalServerError, "Failed to process user identity")
					return
				}
				if !ok {
					writeError(w, http.StatusUnauthorized, "User not found")
					return
				}
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, or "" outside the middleware.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": message})
}
