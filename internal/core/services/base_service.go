package services

import (
	"context"

	"github.com/SscSPs/loan_ledger/internal/middleware"
	"go.uber.org/zap"
)

// BaseService provides common functionality for all services
type BaseService struct{}

// GetLogger gets the logger from context or returns the process logger
func (s *BaseService) GetLogger(ctx context.Context) *zap.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, fields ...zap.Field) {
	s.GetLogger(ctx).Error(msg, append([]zap.Field{zap.Error(err)}, fields...)...)
}

// LogWarn logs a recoverable problem
func (s *BaseService) LogWarn(ctx context.Context, msg string, fields ...zap.Field) {
	s.GetLogger(ctx).Warn(msg, fields...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, fields ...zap.Field) {
	s.GetLogger(ctx).Info(msg, fields...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, fields ...zap.Field) {
	s.GetLogger(ctx).Debug(msg, fields...)
}
