package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Components
	FieldComponent = "component"
	FieldProvider  = "provider"
	FieldModel     = "model"

	// Taxonomy
	FieldIntent       = "intent"
	FieldIntentPath   = "intent_path"
	FieldLevel        = "tree_level"
	FieldParent       = "parent"
	FieldConversation = "conversation_id"
	FieldTurn         = "turn"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors and retries
	FieldError   = "error"
	FieldAttempt = "attempt"

	// Counts and sizes
	FieldCount      = "count"
	FieldTotalCount = "total_count"
	FieldTokens     = "tokens"

	// Files
	FieldFile   = "file"
	FieldFormat = "format"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	distiller := distill.NewTagDistiller(gen, distill.Options{
//	    Logger: logger.ComponentLogger("distill.tags"),
//	})
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
// Example:
//
//	convLogger := logger.ChildLogger(base, logger.FieldConversation, id)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
