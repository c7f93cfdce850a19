package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"newsdesk/internal/utils"
)

// ContextKey defines the type for context keys to avoid conflicts
type ContextKey string

const (
	// UserIDKey is the context key for the caller's user ID
	UserIDKey ContextKey = "userID"

	// UserIDHeader carries the user identity set by the fronting application
	UserIDHeader = "X-User-ID"
)

// UserIdentity requires a positive numeric X-User-ID header and stores it in the request context
func UserIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if raw == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "missing user identity")
				return
			}

			userID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || userID <= 0 {
				utils.RespondWithError(w, http.StatusUnauthorized, "invalid user identity")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID retrieves the user ID from the request context
func GetUserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}
