package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	loggerKey    ctxKey = "logger"
)

// RequestIDLogMiddleware stores the fiber request ID and a request-scoped
// logger in the user context so code below the handler layer can log with
// the id attached.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, ok := c.Locals("requestid").(string)
		if !ok || rid == "" {
			return c.Next()
		}

		ctx := context.WithValue(c.Context(), requestIDKey, rid)
		ctx = context.WithValue(ctx, loggerKey, slog.Default().With("request_id", rid))
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// LoggerFromCtx returns the request-scoped logger, or the default logger
// when the context carries none.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
