package services

import (
	"context"
)

type requestIDKey struct{}

// WithRequestID tags ctx with a random per-request id used only to correlate
// log lines. It carries no user identity.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return "-"
}
