package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Global logger instance
	Logger *zap.SugaredLogger
	// Flag to track if JSON output is enabled
	JSONOutput bool
)

func init() {
	// Initialize with a safe no-op logger at package load time
	// This prevents nil pointer panics if logger is used before Initialize() is called
	Logger = zap.NewNop().Sugar()
}

// Options controls how the global logger is built.
type Options struct {
	// JSON switches the console output to zap's production JSON encoding
	JSON bool
	// Verbosity is the -v count from the CLI
	Verbosity int
	// File, when set, receives JSON logs at debug level through a rotating writer
	File string
	// MaxSizeMB and MaxBackups bound the rotating log file
	MaxSizeMB  int
	MaxBackups int
	// Theme selects the console palette (everforest, gruvbox)
	Theme string
}

// Initialize sets up the global logger.
// Console output goes to stderr so generated data on stdout stays clean.
func Initialize(opts Options) error {
	JSONOutput = opts.JSON
	if theme := os.Getenv("DISTILL_LOG_THEME"); theme != "" {
		SetTheme(theme)
	} else if opts.Theme != "" {
		SetTheme(opts.Theme)
	}

	level := VerbosityToLevel(opts.Verbosity)

	var console zapcore.Core
	if opts.JSON {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		console = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stderr), level)
	} else {
		// Human-readable console output with minimal, calm formatting
		console = zapcore.NewCore(newMinimalEncoder(), zapcore.Lock(os.Stderr), level)
	}

	core := console
	if opts.File != "" {
		core = zapcore.NewTee(console, newFileCore(opts))
	}

	Logger = zap.New(core).Sugar()
	return nil
}

// newFileCore writes everything at debug level and above to a rotating file.
func newFileCore(opts Options) zapcore.Core {
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 20
	}
	maxBackups := opts.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}
	writer := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), zapcore.DebugLevel)
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// OrNop returns l, or a no-op logger when l is nil.
// Components accept an optional logger in their config and call this once.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}

// Infow logs an info message with structured fields
func Infow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, keysAndValues...)
	}
}

// Warnw logs a warning message with structured fields
func Warnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Warnw(msg, keysAndValues...)
	}
}

// Errorw logs an error message with structured fields
func Errorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Errorw(msg, keysAndValues...)
	}
}

// Debugw logs a debug message with structured fields
func Debugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, keysAndValues...)
	}
}
