// Package observability provides logging utilities.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cory-johannsen/hexdraft/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
// When cfg.File is set, output is teed into a size-rotated file.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.File == "" {
		logger, err := zapCfg.Build()
		if err != nil {
			return nil, fmt.Errorf("building logger: %w", err)
		}
		return logger, nil
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(zapCfg.EncoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(zapCfg.EncoderConfig)
	}
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zapCfg.Level),
		zapcore.NewCore(encoder, zapcore.AddSync(RotatingFile(cfg)), zapCfg.Level),
	)
	return zap.New(core, zap.AddCaller()), nil
}

// RotatingFile returns the lumberjack writer used for the file sink.
//
// Precondition: cfg.File must be non-empty.
func RotatingFile(cfg config.LoggingConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
}
