package common

import (
	"context"

	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyUser      contextKey = "user"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithUser adds the authenticated caller to the context
func WithUser(ctx context.Context, user entity.User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, user)
}

// UserFromContext extracts the authenticated caller from context
func UserFromContext(ctx context.Context) (entity.User, bool) {
	user, ok := ctx.Value(ContextKeyUser).(entity.User)
	return user, ok
}
