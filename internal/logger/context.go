package logger

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type contextKey string

const loggerKey contextKey = "logger"

const localsKey = "logger"

// FromContext returns the request logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
			return log
		}
	}
	return zap.L()
}

func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromFiber returns the request logger attached by Middleware.
func FromFiber(c *fiber.Ctx) *zap.Logger {
	if log, ok := c.Locals(localsKey).(*zap.Logger); ok {
		return log
	}
	return zap.L()
}
