package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLogMiddleware emits one structured slog line per request.
// 4xx logs at Warn, 5xx and handler errors at Error.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()

		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
			slog.String("ip", c.IP()),
		}
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			attrs = append(attrs, slog.String("request_id", rid))
		}

		level := slog.LevelInfo
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		slog.LogAttrs(c.Context(), level, c.Method()+" "+c.Path(), attrs...)
		return err
	}
}
