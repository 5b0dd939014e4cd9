package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/metrics"
)

// Metrics records request duration labelled by the matched route, not the
// raw path, so ids do not explode the label set.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		metrics.RecordHTTPRequestDuration(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start))
		return err
	}
}
