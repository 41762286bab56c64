// Package logging configures the application loggers: a structured JSON
// logger on stdout, a human-readable logger on stderr, and per-service file
// loggers with rotation.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/petwatch/petwatch-go/internal/conf"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

var (
	structuredLogger    *slog.Logger
	humanReadableLogger *slog.Logger
	levelVar            slog.LevelVar
)

// replaceLevelAttr renames the custom TRACE and FATAL levels in log output.
func replaceLevelAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		if label, ok := levelNames[level]; ok {
			a.Value = slog.StringValue(label)
		}
	}
	return a
}

// Init initializes the logging system. JSON output goes to stdout for log
// shippers, text output to stderr for humans. The level is shared and can be
// changed at runtime with SetLevel.
func Init(debug bool) {
	if debug {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}

	structuredLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       &levelVar,
		ReplaceAttr: replaceLevelAttr,
	}))
	humanReadableLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       &levelVar,
		ReplaceAttr: replaceLevelAttr,
	}))

	slog.SetDefault(structuredLogger)
}

// SetLevel sets the minimum logging level for all loggers created by this package.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// Structured returns the structured (JSON) logger, or nil before Init.
func Structured() *slog.Logger {
	return structuredLogger
}

// HumanReadable returns the human-readable (Text) logger, or nil before Init.
func HumanReadable() *slog.Logger {
	return humanReadableLogger
}

// ForService returns a logger with the 'service' attribute added. Falls back
// to the default logger when Init has not been called, so library code can
// log safely in tests.
func ForService(serviceName string) *slog.Logger {
	if structuredLogger == nil {
		return slog.Default().With("service", serviceName)
	}
	return structuredLogger.With("service", serviceName)
}

// Fatal logs a message at the custom Fatal level and exits.
func Fatal(msg string, args ...any) {
	slog.Log(context.Background(), LevelFatal, msg, args...)
	os.Exit(1)
}

// NewFileLogger creates a slog.Logger writing JSON to the given file with
// lumberjack rotation driven by the main log settings. It returns the logger
// and a close function for the underlying writer.
func NewFileLogger(filePath, serviceName string, level slog.Level) (*slog.Logger, func() error, error) {
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		// lumberjack does not create directories
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	logWriter := &lumberjack.Logger{
		Filename: filePath,
	}

	maxSizeMB := 10
	maxBackups := 3
	maxAge := 28 // days

	if settings := conf.GetSettings(); settings != nil {
		logConf := settings.Main.Log
		if mb := int(logConf.MaxSize / (1024 * 1024)); mb > 0 {
			maxSizeMB = mb
		}
		switch logConf.Rotation {
		case conf.RotationDaily:
			maxAge = 1
			maxBackups = 30
		case conf.RotationWeekly:
			maxAge = 7
			maxBackups = 4
		case conf.RotationSize:
			// size-based rotation uses maxSizeMB as configured
		}
	}

	logWriter.MaxSize = maxSizeMB
	logWriter.MaxBackups = maxBackups
	logWriter.MaxAge = maxAge

	handler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelAttr,
	})
	logger := slog.New(handler).With("service", serviceName)

	return logger, logWriter.Close, nil
}
