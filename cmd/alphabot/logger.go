package main

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xDyN/AlphaBot/internal/config"
)

// newLogger builds the process logger: JSON to stderr by default, a console
// encoder in development mode, and an extra file sink when configured.
func newLogger(c config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}

	if c.Level != "" {
		level, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	if c.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, c.File)
	}

	return zc.Build()
}
