package logger

import "context"

// ctxKey keeps logger context values from colliding with other packages.
type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID stores a request ID for log correlation downstream.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID from ctx, or "" when unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
