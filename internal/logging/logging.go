// Package logging configures the process-wide structured logger.
// All packages log through logr with key/value pairs; zap is the
// backing implementation.
package logging

import (
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels used with logger.V(). INFO is the default; DEBUG and
// TRACE are enabled by lowering the zap level at construction time.
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// Log is the process-wide logger. It defaults to a no-op logger until
// SetLogger or NewTestLogger is called, so library code can log
// unconditionally.
var Log = logr.Discard()

// SetLogger replaces the process-wide logger.
func SetLogger(l logr.Logger) {
	Log = l
}

// NewLogger builds a production logr.Logger at the named level
// ("info", "debug" or "trace"; anything else falls back to info) and
// installs it as the process-wide logger.
func NewLogger(level string) logr.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		// Fall back to the no-op logger rather than failing startup on a
		// logging misconfiguration.
		return Log
	}
	l := zapr.NewLogger(zl)
	SetLogger(l)
	return l
}

// NewTestLogger builds a development logger for test suites and
// installs it as the process-wide logger.
func NewTestLogger() logr.Logger {
	zl, err := zap.NewDevelopment()
	if err != nil {
		return Log
	}
	l := zapr.NewLogger(zl)
	SetLogger(l)
	return l
}

// zapLevel maps a named verbosity to a zap level. logr verbosity V(n)
// maps to zap level -n, so DEBUG=1 needs zap level -1 enabled.
func zapLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.Level(-DEBUG)
	case "trace":
		return zapcore.Level(-TRACE)
	default:
		return zapcore.InfoLevel
	}
}
