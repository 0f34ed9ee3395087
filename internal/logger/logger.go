// Package logger provides structured logging for the meeting scrapers.
//
// The logger supports four levels (DEBUG, INFO, WARN, ERROR) and writes either
// structured JSON or human-readable console lines via zerolog. Every call takes
// arbitrary structured fields.
//
// Example usage:
//
//	logger.Info("Spider finished", logger.Fields{
//	    "spider":   "losca_City_Council",
//	    "meetings": 12,
//	})
//
//	logger.Error("Fetch failed", logger.Fields{
//	    "url": "https://lacity.primegov.com/api/v2/PublicPortal/ListUpcomingMeetings",
//	}, err)
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Format selects the output encoding
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Logger provides structured logging
type Logger struct {
	zl zerolog.Logger
}

// Fields represents structured log fields
type Fields map[string]interface{}

var defaultLogger = New(LevelInfo, os.Stderr)

// New creates a JSON logger with the given minimum level and output destination.
// Messages below the minimum level are discarded.
func New(level Level, output io.Writer) *Logger {
	return NewWithFormat(level, FormatJSON, output)
}

// NewWithFormat creates a logger writing JSON or console lines
func NewWithFormat(level Level, format Format, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}
	if format == FormatConsole {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339, NoColor: true}
	}

	zl := zerolog.New(output).
		Level(zerologLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// ParseLevel converts a config string such as "warn" into a Level
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug, nil
	case LevelInfo, "":
		return LevelInfo, nil
	case LevelWarn, "WARNING":
		return LevelWarn, nil
	case LevelError:
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level: %s", s)
}

// SetDefault sets the package-level logger used by the convenience functions
func SetDefault(logger *Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}

// Default returns the package-level logger
func Default() *Logger {
	return defaultLogger
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{zl: l.zl.With().Fields(map[string]interface{}(fields)).Logger()}
}

func (l *Logger) log(level Level, message string, fields Fields, err error) {
	evt := l.zl.WithLevel(zerologLevel(level))
	if len(fields) > 0 {
		evt = evt.Fields(map[string]interface{}(fields))
	}
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Msg(message)
}

// Debug logs detailed diagnostic information
func (l *Logger) Debug(message string, fields Fields) {
	l.log(LevelDebug, message, fields, nil)
}

// Info logs general operational information
func (l *Logger) Info(message string, fields Fields) {
	l.log(LevelInfo, message, fields, nil)
}

// Warn logs issues that don't prevent operation, such as a dropped record
func (l *Logger) Warn(message string, fields Fields) {
	l.log(LevelWarn, message, fields, nil)
}

// Error logs a failure together with its error
func (l *Logger) Error(message string, fields Fields, err error) {
	l.log(LevelError, message, fields, err)
}

// Package-level convenience functions using default logger

// Debug logs a debug message with the default logger
func Debug(message string, fields Fields) {
	defaultLogger.Debug(message, fields)
}

// Info logs an info message with the default logger
func Info(message string, fields Fields) {
	defaultLogger.Info(message, fields)
}

// Warn logs a warning message with the default logger
func Warn(message string, fields Fields) {
	defaultLogger.Warn(message, fields)
}

// Error logs an error message with the default logger
func Error(message string, fields Fields, err error) {
	defaultLogger.Error(message, fields, err)
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
