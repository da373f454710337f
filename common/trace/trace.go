// Package trace carries a per-message trace ID through the context so that
// log lines from the retrieval and correction pipelines can be correlated.
package trace

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// traceKey is the unexported context key used to store the trace ID.
type traceKey struct{}

const idLength = 16

// GenerateID returns a new trace ID of the form "t_<nanoid>".
func GenerateID() string {
	id, err := gonanoid.New(idLength)
	if err != nil {
		// crypto/rand failure
		return fmt.Sprintf("t_%d", time.Now().UnixNano())
	}
	return "t_" + id
}

// WithTraceID returns a child context carrying the given trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// FromContext extracts the trace ID from ctx, returning "" if absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}

// Ensure returns ctx unchanged when it already carries a trace ID, and
// otherwise a child context with a freshly generated one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := GenerateID()
	return WithTraceID(ctx, id), id
}
