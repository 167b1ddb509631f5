package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across dunner.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID    = "run_id"
	FieldWorkflow = "workflow"
	FieldLeadID   = "lead_id"
	FieldOppID    = "opportunity_id"
	FieldAccount  = "account"

	// Campaign state
	FieldStage     = "stage"
	FieldFromStage = "from_stage"
	FieldToStage   = "to_stage"
	FieldTemplate  = "template"
	FieldOutcome   = "outcome"

	// HTTP
	FieldMethod  = "method"
	FieldPath    = "path"
	FieldStatus  = "status"
	FieldAttempt = "attempt"
	FieldWait    = "wait_s"

	// Pagination
	FieldPage   = "page"
	FieldCursor = "cursor"

	// Counts and timing
	FieldCount      = "count"
	FieldTotalCount = "total_count"
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Collaborators
	FieldLetterID = "letter_id"
	FieldChannel  = "channel"
	FieldFile     = "file"
)

// Context keys for propagating logging context
type contextKey string

const (
	runIDKey    contextKey = "logger_run_id"
	workflowKey contextKey = "logger_workflow"
)

// WithRunID adds a run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithWorkflow adds a workflow name to the context for logging
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return context.WithValue(ctx, workflowKey, workflow)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if workflow, ok := ctx.Value(workflowKey).(string); ok && workflow != "" {
		fields = append(fields, FieldWorkflow, workflow)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Engine struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewEngine() *Engine {
//	    return &Engine{
//	        logger: logger.ComponentLogger("campaign.engine"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
// Use for sub-operations that need extra context fields.
//
// Example:
//
//	leadLogger := logger.ChildLogger(baseLogger, logger.FieldLeadID, lead.ID)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
