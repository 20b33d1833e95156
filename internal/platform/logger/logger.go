package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. "debug" and "development" give human-readable console
// output; anything else gives JSON with ISO8601 timestamps.
func New(mode string) (*zap.Logger, error) {
	var config zap.Config

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "debug", "dev", "development":
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	return config.Build()
}
