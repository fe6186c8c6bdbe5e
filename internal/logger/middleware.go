package logger

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Middleware attaches a request-scoped logger carrying the request id and
// logs one line per request. It expects the requestid middleware to run first.
func Middleware(base *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID, _ := c.Locals("requestid").(string)
		ctxLogger := base.With(zap.String("request_id", requestID))
		c.Locals(localsKey, ctxLogger)
		c.SetUserContext(WithContext(c.UserContext(), ctxLogger))

		err := c.Next()
		if err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if status >= fiber.StatusInternalServerError {
			ctxLogger.Error("http request", fields...)
		} else {
			ctxLogger.Info("http request", fields...)
		}
		return nil
	}
}
