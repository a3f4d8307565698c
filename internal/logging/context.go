package logging

import (
	"context"
	"log/slog"

	"vidtools/internal/services"
)

// Structured field keys shared by every component.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldStage         = "stage"
	FieldOperation     = "operation"
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a line for filtering, e.g. "cleanup_failed".
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact describes what the caller lost because of a warning.
	FieldImpact = "impact"
)

var contextFields = []struct {
	key    string
	lookup func(context.Context) (string, bool)
}{
	{FieldJobID, services.JobIDFromContext},
	{FieldOperation, services.OperationFromContext},
	{FieldStage, services.StageFromContext},
	{FieldCorrelationID, services.RequestIDFromContext},
}

// WithContext returns logger tagged with the job, operation, stage, and
// request identifiers carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	for _, f := range contextFields {
		if v, ok := f.lookup(ctx); ok {
			args = append(args, slog.String(f.key, v))
		}
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
