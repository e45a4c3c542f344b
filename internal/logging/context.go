package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. dispatch_skipped).
	FieldEventType = "event_type"
	// FieldErrorHint suggests the operator's next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldTransferID is the standardized key for transfer identifiers.
	FieldTransferID = "transfer_id"
	// FieldRoute is the standardized key for outbound/inbound route keys.
	FieldRoute = "route"
	// FieldParty is the standardized key for the remote party's name.
	FieldParty = "party"
	// FieldReference is the standardized key for reference codes.
	FieldReference = "reference"
	// FieldPath is the standardized key for filesystem paths.
	FieldPath = "path"
)

type contextKey int

const (
	transferIDKey contextKey = iota
	routeKey
)

// WithTransferID stores a transfer identifier on the context.
func WithTransferID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, transferIDKey, id)
}

// TransferIDFromContext returns the transfer identifier stored on ctx, if any.
func TransferIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(transferIDKey).(string)
	return id, ok && id != ""
}

// WithRoute stores a route key on the context.
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey, route)
}

// RouteFromContext returns the route key stored on ctx, if any.
func RouteFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	route, ok := ctx.Value(routeKey).(string)
	return route, ok && route != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if route, ok := RouteFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRoute, route))
	}
	if id, ok := TransferIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTransferID, id))
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
	return logger.With(attrsToArgs(fields)...)
}
