package services

import (
	"context"

	"flowboard/pkg/logger"

	"github.com/google/uuid"
)

type contextKey string

const userIDContextKey contextKey = "auth.user_id"

// WithUserContext attaches the authenticated user id to the context. The
// id is also mirrored into the logger's context fields.
func WithUserContext(ctx context.Context, userID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, userID)
	return context.WithValue(ctx, logger.UserIdKey, userID.String())
}

// UserIDFromContext extracts the authenticated user id set by the auth
// middleware.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDContextKey).(uuid.UUID)
	return id, ok
}
