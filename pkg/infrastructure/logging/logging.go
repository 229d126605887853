// Package logging builds the logr.Logger used by the CLI on top of zap
package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logger.V
const (
	DEBUG = 1
	TRACE = 2
)

// NewLogger returns a console logger writing to stderr. verbosity 0 logs
// info and errors; each step up enables one more V level.
func NewLogger(verbosity int, development bool) (logr.Logger, error) {
	if verbosity < 0 {
		return logr.Discard(), fmt.Errorf("verbosity cannot be negative, got %d", verbosity)
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	// zapr maps V(n) to zap level -n
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("failed to build logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}
