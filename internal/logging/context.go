package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldShiftID is the key for worker shift identifiers.
	FieldShiftID = "shift_id"
	// FieldAttemptID is the key for packing attempt identifiers.
	FieldAttemptID = "attempt_id"
	// FieldSKU is the key for the product code being packed.
	FieldSKU = "sku"
	// FieldWorkerID is the key for the operator identifier.
	FieldWorkerID = "worker_id"
	// FieldEventType is the key for ledger event type names.
	FieldEventType = "event_type"
	// FieldCorrelationID is the key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

type contextKey int

const (
	shiftIDKey contextKey = iota
	attemptIDKey
	correlationIDKey
)

// WithShiftID annotates ctx with the active shift.
func WithShiftID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, shiftIDKey, id)
}

// WithAttemptID annotates ctx with the active packing attempt.
func WithAttemptID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, attemptIDKey, id)
}

// WithCorrelationID annotates ctx with a request correlation identifier.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the request correlation identifier, if any.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := ctx.Value(shiftIDKey).(int64); ok && id > 0 {
		fields = append(fields, slog.Int64(FieldShiftID, id))
	}
	if id, ok := ctx.Value(attemptIDKey).(int64); ok && id > 0 {
		fields = append(fields, slog.Int64(FieldAttemptID, id))
	}
	if rid, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
