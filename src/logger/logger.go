package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"crypto-tracker/src/tracing"

	"github.com/rs/zerolog"
)

// -----------------------------------------------------------------------------

// Logger provides named, leveled logging on top of zerolog
type Logger struct {
	name   string
	logger zerolog.Logger
}

// levelSource is satisfied by *models.MConfig and anything embedding it.
type levelSource interface {
	GetLogLevel() string
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance writing to stdout
func NewLogger(config interface{}, name string) *Logger {
	return NewLoggerWithWriter(config, name, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
}

// NewLoggerWithWriter creates a Logger writing to w
func NewLoggerWithWriter(config interface{}, name string, w io.Writer) *Logger {
	level := zerolog.InfoLevel
	if src, ok := config.(levelSource); ok {
		level = ParseLevel(src.GetLogLevel())
	}

	return &Logger{
		name:   name,
		logger: zerolog.New(w).Level(level).With().Timestamp().Str("component", name).Logger(),
	}
}

// -----------------------------------------------------------------------------

// ParseLevel maps the config log_level onto zerolog levels
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// -----------------------------------------------------------------------------

// WithContext tags entries with the trace and span ids of the active span in
// ctx. Without one the logger is returned as is.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	traceID, spanID, ok := tracing.GetTraceFields(ctx)
	if !ok {
		return l
	}
	return &Logger{
		name:   l.name,
		logger: l.logger.With().Str("trace_id", traceID).Str("span_id", spanID).Logger(),
	}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
	os.Exit(1)
}
