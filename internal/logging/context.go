package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// NewRequestID returns a fresh request id.
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID stores a request id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored on ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithUserID stores the authenticated user's id on ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// Ctx returns the global logger enriched with the request and user ids
// found on ctx.
//
//	logging.Ctx(ctx).Info().Msg("processing")
func Ctx(ctx context.Context) *zerolog.Logger {
	lc := Logger().With()
	if id := RequestID(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	if id, _ := ctx.Value(userIDKey).(string); id != "" {
		lc = lc.Str("user_id", id)
	}
	l := lc.Logger()
	return &l
}
