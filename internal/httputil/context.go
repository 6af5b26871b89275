package httputil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	userIDKey       contextKey = "userID"
	hashedUserIDKey contextKey = "hashedUserID"
)

// WithUserID adds the user id and its SHA-256 hashed form to the request
// context. The hashed form scopes search-index filters and is the value
// forced into the authorization header of dynamic tool calls.
func WithUserID(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	ctx = context.WithValue(ctx, hashedUserIDKey, HashUserID(userID))
	return r.WithContext(ctx)
}

// GetUserID retrieves userID from context, returns empty string if not found
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// GetHashedUserID retrieves the hashed user id from context, returns
// empty string if not found
func GetHashedUserID(r *http.Request) string {
	hashed, _ := r.Context().Value(hashedUserIDKey).(string)
	return hashed
}

// HashedUserIDFromContext reads the hashed user id off a bare context,
// for callers below the handler layer
func HashedUserIDFromContext(ctx context.Context) string {
	hashed, _ := ctx.Value(hashedUserIDKey).(string)
	return hashed
}

// HashUserID returns the hex-encoded SHA-256 of a user id
func HashUserID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}
