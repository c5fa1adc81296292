package infrastructure

import "context"

// traceKey is the context key for the request trace ID. A private struct
// type makes collisions with other packages impossible.
type traceKey struct{}

// WithTraceID stores a trace ID on the context. The logging handler and
// the problem-JSON writers read it back for correlation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// GetTraceID returns the context's trace ID, or "" when none was set.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
