// Package dcontext carries a leveled logger through a context.Context, the
// way the registry carries request-scoped loggers through its handlers.
package dcontext

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger   = logrus.NewEntry(logrus.StandardLogger())
	defaultLoggerMu sync.RWMutex
)

// Logger is the leveled-logging interface the rest of the module depends on.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)

	WithField(key string, value any) *logrus.Entry
	WithError(err error) *logrus.Entry
}

type loggerKey struct{}

// WithLogger returns a new context carrying the given logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the logger stored in ctx, or the package default.
func GetLogger(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return logger
	}
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// GetLoggerWithField resolves the context logger and attaches a field to it
// without affecting the context itself.
func GetLoggerWithField(ctx context.Context, key string, value any) Logger {
	entry, ok := GetLogger(ctx).(*logrus.Entry)
	if !ok {
		return GetLogger(ctx)
	}
	return entry.WithField(key, fmt.Sprint(value))
}

// SetDefaultLogger replaces the package default logger.
func SetDefaultLogger(logger *logrus.Entry) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = logger
}
