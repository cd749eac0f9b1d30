// Package logger builds zap loggers and carries them through contexts.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	level  string
	stderr bool
}

// Option tunes NewLogger.
type Option func(*options)

// WithLevel overrides the level: debug, info, warn, error. Empty keeps the
// environment default.
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

// WithStderr sends all output to stderr. Required when stdout carries a
// protocol, as with the MCP stdio transport.
func WithStderr() Option {
	return func(o *options) { o.stderr = true }
}

// NewLogger creates a zap logger for the given environment.
// prod uses JSON output, local/dev/docker use console output, cli is a
// console logger at warn level for one-shot commands.
func NewLogger(env string, opts ...Option) (*zap.Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local", "dev", "docker":
		cfg = zap.NewDevelopmentConfig()
	case "cli":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		cfg.DisableStacktrace = true
		cfg.EncoderConfig.TimeKey = ""
		cfg.OutputPaths = []string{"stderr"}
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if o.level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(o.level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", o.level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	if o.stderr {
		cfg.OutputPaths = []string{"stderr"}
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
