package services

import "context"

// ctxKey namespaces the request-scoped identifiers threaded through a job.
type ctxKey uint8

const (
	jobIDKey ctxKey = iota
	stageKey
	operationKey
	requestIDKey
)

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key ctxKey) (string, bool) {
	v, _ := ctx.Value(key).(string)
	return v, v != ""
}

// WithJobID tags ctx with the job's progress identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	return withString(ctx, jobIDKey, id)
}

func JobIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, jobIDKey) }

// WithStage tags ctx with the running stage (compress, standardize, ...).
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, stageKey) }

// WithOperation tags ctx with the requested operation name.
func WithOperation(ctx context.Context, op string) context.Context {
	return withString(ctx, operationKey, op)
}

func OperationFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, operationKey) }

// WithRequestID tags ctx with the HTTP request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, requestIDKey) }
