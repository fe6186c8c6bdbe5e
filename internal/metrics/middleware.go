package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Middleware records request count and duration labelled by route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		if path == "" {
			path = "unmatched"
		}
		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		RequestCounter.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		RequestDurationHistogram.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the default prometheus registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
