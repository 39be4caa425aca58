// Package logging configures the application loggers: structured JSON to a
// rotated log file and human-readable text to stderr.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	structuredLogger    *slog.Logger
	humanReadableLogger *slog.Logger
	initOnce            sync.Once
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

// ParseLevel maps a configured level name to its slog level. Unknown
// names fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		if label, ok := levelNames[level]; ok {
			a.Value = slog.StringValue(label)
		}
	}
	return a
}

// Init initializes the logging system. Structured JSON logs go to the
// given file path with rotation; human-readable logs go to stderr. An
// empty path sends structured logs to stdout instead.
func Init(logPath string, level slog.Level) {
	initOnce.Do(func() {
		var structuredOut io.Writer = os.Stdout
		if logPath != "" {
			structuredOut = &lumberjack.Logger{
				Filename:   logPath,
				MaxSize:    10, // megabytes
				MaxBackups: 5,
				MaxAge:     30, // days
				Compress:   true,
			}
		}
		configure(structuredOut, os.Stderr, level)
	})
}

func configure(structuredOut, humanOut io.Writer, level slog.Level) {
	structuredLogger = slog.New(slog.NewJSONHandler(structuredOut, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	}))
	humanReadableLogger = slog.New(slog.NewTextHandler(humanOut, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	}))
	slog.SetDefault(structuredLogger)
}

// SetOutput redirects logger output, primarily for tests.
func SetOutput(structuredOut, humanOut io.Writer, level slog.Level) {
	configure(structuredOut, humanOut, level)
}

// Structured returns the JSON logger, initializing a stdout fallback if
// Init has not run yet.
func Structured() *slog.Logger {
	if structuredLogger == nil {
		configure(os.Stdout, os.Stderr, slog.LevelInfo)
	}
	return structuredLogger
}

// HumanReadable returns the text logger.
func HumanReadable() *slog.Logger {
	if humanReadableLogger == nil {
		configure(os.Stdout, os.Stderr, slog.LevelInfo)
	}
	return humanReadableLogger
}

// ForService returns a structured logger tagged with a service name.
// Components use this to get their own namespaced logger.
func ForService(serviceName string) *slog.Logger {
	return Structured().With("service", serviceName)
}

// Debug logs at debug level to the structured logger.
func Debug(msg string, args ...any) {
	Structured().Debug(msg, args...)
}

// Info logs at info level to the structured logger.
func Info(msg string, args ...any) {
	Structured().Info(msg, args...)
}

// Warn logs at warn level to the structured logger.
func Warn(msg string, args ...any) {
	Structured().Warn(msg, args...)
}

// Error logs at error level to the structured logger.
func Error(msg string, args ...any) {
	Structured().Error(msg, args...)
}

// Fatal logs at fatal level and exits.
func Fatal(msg string, args ...any) {
	Structured().Log(context.Background(), LevelFatal, msg, args...)
	os.Exit(1)
}
