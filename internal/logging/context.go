package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	requestCtxKey  struct{}
	documentCtxKey struct{}
	taskCtxKey     struct{}
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if id := DocumentIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("document.id", id))
	}
	if id := TaskIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("task.id", id))
	}
	return fields
}

// WithRequestID adds the HTTP request ID to context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestCtxKey{})
}

// WithDocumentID adds the document being indexed or queried to context.
func WithDocumentID(ctx context.Context, id string) context.Context {
	return withValue(ctx, documentCtxKey{}, id)
}

// DocumentIDFromContext returns the document ID or "".
func DocumentIDFromContext(ctx context.Context) string {
	return stringValue(ctx, documentCtxKey{})
}

// WithTaskID adds the indexing task ID to context.
func WithTaskID(ctx context.Context, id string) context.Context {
	return withValue(ctx, taskCtxKey{}, id)
}

// TaskIDFromContext returns the task ID or "".
func TaskIDFromContext(ctx context.Context) string {
	return stringValue(ctx, taskCtxKey{})
}

// IDs longer than this are truncated before they reach log output.
const maxIDLen = 128

func withValue(ctx context.Context, key any, id string) context.Context {
	if id == "" {
		return ctx
	}
	if len(id) > maxIDLen {
		id = id[:maxIDLen]
	}
	return context.WithValue(ctx, key, id)
}

func stringValue(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
