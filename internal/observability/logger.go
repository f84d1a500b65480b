// Package observability provides structured logging for the segmentation
// engine.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger wraps zerolog with pipeline-specific context helpers.
type Logger struct {
	zl zerolog.Logger
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level       string
	Format      string // json or console
	Output      io.Writer
	ServiceName string
}

// NewLogger creates a Logger from the given configuration.
func NewLogger(cfg LogConfig) *Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var zl zerolog.Logger
	if cfg.Format == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		})
	} else {
		zl = zerolog.New(output)
	}

	zl = zl.With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()

	return &Logger{zl: zl}
}

// DefaultLogger returns a logger with development settings.
func DefaultLogger() *Logger {
	return NewLogger(LogConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "segment-engine",
	})
}

// NopLogger returns a logger that discards everything; used in tests.
func NopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// WithDocument returns a logger carrying the source document identifier.
func (l *Logger) WithDocument(doc string) *Logger {
	return &Logger{zl: l.zl.With().Str("document", doc).Logger()}
}

// WithStage returns a logger carrying the pipeline stage name.
func (l *Logger) WithStage(stage string) *Logger {
	return &Logger{zl: l.zl.With().Str("stage", stage).Logger()}
}

// WithJob returns a logger carrying the job identifier.
func (l *Logger) WithJob(jobID string) *Logger {
	return &Logger{zl: l.zl.With().Str("job_id", jobID).Logger()}
}

// Debug starts a debug-level event.
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }

// Info starts an info-level event.
func (l *Logger) Info() *zerolog.Event { return l.zl.Info() }

// Warn starts a warn-level event.
func (l *Logger) Warn() *zerolog.Event { return l.zl.Warn() }

// Error starts an error-level event.
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Fatal starts a fatal-level event; sending it exits the process.
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
