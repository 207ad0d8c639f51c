package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is unexported so only this package can read or write the user
// id stored in a request context.
type contextKey string

const userIDKey contextKey = "userID"

// Gate error bodies. Clients match on these strings.
const (
	msgTokenRequired = "Token required"
	msgInvalidFormat = "Invalid token format"
	msgTokenExpired  = "Token expired"
	msgTokenInvalid  = "Invalid token"
)

// RequireAuth guards protected routes with a Bearer token.
//
//	Authorization: Bearer <jwt>
//
// The header is checked once here; handlers receive the resolved user id
// through the context and never look at the header themselves.
//
//	no header             → 401 "Token required"
//	not "Bearer <token>"  → 401 "Invalid token format"
//	expired               → 401 "Token expired"
//	bad signature, etc.   → 401 "Invalid token"
//
// The body has the same shape as every other API error:
// {"error":"unauthorized","message":"Token required"}.
func RequireAuth(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, msgTokenRequired)
				return
			}

			raw, ok := bearerToken(header)
			if !ok {
				unauthorized(w, msgInvalidFormat)
				return
			}

			userID, err := tokens.Validate(raw)
			if err != nil {
				logger.Debug("rejected token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				if errors.Is(err, ErrTokenExpired) {
					unauthorized(w, msgTokenExpired)
					return
				}
				unauthorized(w, msgTokenInvalid)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// bearerToken splits "Bearer <token>". The scheme is case-insensitive; the
// token must be a single non-empty field.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

// ContextWithUserID returns a copy of ctx carrying the authenticated user id.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's id. ok is false on
// routes that are not behind RequireAuth.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}
