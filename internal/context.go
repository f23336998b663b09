package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextRequestIDKey ctxKey = "requestID"
	ContextScreenKey    ctxKey = "screen"
)

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(ContextRequestIDKey).(string); ok {
		return id
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextRequestIDKey, id)
}

// ScreenFromContext names the screen that issued a request; used for metrics and notifications.
func ScreenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(ContextScreenKey).(string); ok {
		return s
	}
	return ""
}

func ContextWithScreen(ctx context.Context, screen string) context.Context {
	return context.WithValue(ctx, ContextScreenKey, screen)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
