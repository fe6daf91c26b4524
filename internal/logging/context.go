package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// operationIDKey is the context key for CLI/Admin-API invocation ids.
	operationIDKey contextKey = "operation_id"

	// jobIDKey is the context key for the catalog job-queue row (JobQueue.JobID)
	// a control-daemon tick is currently processing.
	jobIDKey contextKey = "job_id"

	// loggerKey is the context key for storing a logger instance.
	loggerKey contextKey = "logger"
)

// GenerateOperationID creates a new id identifying one CLI/Admin-API
// invocation, for tying together every log line one "register_backup_server"
// or shell-line invocation produces.
// Returns the first 8 characters of a UUID for readability.
func GenerateOperationID() string {
	return uuid.New().String()[:8]
}

// ContextWithOperationID returns a new context with the given operation ID.
//
//	ctx = logging.ContextWithOperationID(ctx, logging.GenerateOperationID())
func ContextWithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDKey, id)
}

// ContextWithNewOperationID returns a context with a newly generated
// operation ID. Called once per CLI invocation (main.go) and once per
// interactive shell line (runShell's read loop).
func ContextWithNewOperationID(ctx context.Context) context.Context {
	return ContextWithOperationID(ctx, GenerateOperationID())
}

// OperationIDFromContext retrieves the operation ID from context.
// Returns empty string if not present.
func OperationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(operationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithJobID returns a new context carrying the job-queue row id a
// control-daemon tick is currently processing (jobqueue.Job.JobID), so every
// log line emitted while handling that job — including nested calls like
// installAtJob — carries the same job_id field.
func ContextWithJobID(ctx context.Context, jobID int64) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// JobIDFromContext retrieves the job id from context. ok is false if no job
// id has been attached.
func JobIDFromContext(ctx context.Context) (id int64, ok bool) {
	id, ok = ctx.Value(jobIDKey).(int64)
	return id, ok
}

// ContextWithLogger stores a logger in the context. Daemons attach their
// WithDaemon(...) logger here once at Serve entry, so every call that reads
// the context downstream (processNodeGroup, processJob, installAtJob) logs
// through the same daemon-scoped logger without threading it as a parameter.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context.
// Returns the global logger if no logger is stored in context.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with context values (operation_id, job_id)
// automatically added. This is the recommended way to log from a daemon
// tick or a CLI command's RunE.
//
//	logging.Ctx(ctx).Info().Msg("job processed")
func Ctx(ctx context.Context) *zerolog.Logger {
	contextLogger := LoggerFromContext(ctx).With().Logger()

	if operationID := OperationIDFromContext(ctx); operationID != "" {
		contextLogger = contextLogger.With().Str("operation_id", operationID).Logger()
	}
	if jobID, ok := JobIDFromContext(ctx); ok {
		contextLogger = contextLogger.With().Int64("job_id", jobID).Logger()
	}

	return &contextLogger
}

// CtxWith returns a logger context builder with context values pre-populated.
// Use this when you need to add additional fields beyond the standard context
// fields.
//
//	logger := logging.CtxWith(ctx).Str("dbname", dbname).Logger()
func CtxWith(ctx context.Context) zerolog.Context {
	logCtx := LoggerFromContext(ctx).With()

	if operationID := OperationIDFromContext(ctx); operationID != "" {
		logCtx = logCtx.Str("operation_id", operationID)
	}
	if jobID, ok := JobIDFromContext(ctx); ok {
		logCtx = logCtx.Int64("job_id", jobID)
	}

	return logCtx
}

// CtxDebug starts a new debug-level message with context values added.
func CtxDebug(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Debug()
}

// CtxInfo starts a new info-level message with context values added.
func CtxInfo(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Info()
}

// CtxWarn starts a new warn-level message with context values added.
func CtxWarn(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Warn()
}

// CtxError starts a new error-level message with context values added.
func CtxError(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Error()
}

// CtxErr starts a new error-level message with context values added and
// attaches err, equivalent to CtxError(ctx).Err(err).
func CtxErr(ctx context.Context, err error) *zerolog.Event {
	return Ctx(ctx).Err(err)
}

// WithDaemon creates a child logger tagged with the daemon name. The names
// in use are control, maintenance, alerts and supervisor.
//
//	ctrlLogger := logging.WithDaemon("control")
func WithDaemon(daemon string) zerolog.Logger {
	return With().Str("daemon", daemon).Logger()
}
