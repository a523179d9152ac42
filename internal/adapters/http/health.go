package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"systems": len(deps.Systems.List()),
			"version": Version,
		})
	}
}

// ReadyHandler checks the dependencies a tap cannot be processed without.
// The database is required; NATS and valkey degrade gracefully and only
// report their state.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		ready := true

		checks["database"] = checkDatabase(ctx, deps)
		if checks["database"] != "ok" {
			ready = false
		}

		if deps.NATS != nil {
			if deps.NATS.IsConnected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
			}
		} else {
			checks["nats"] = "not configured"
		}

		if deps.Cache != nil {
			checks["cache"] = checkCache(ctx, deps)
		} else {
			checks["cache"] = "not configured"
		}

		if len(deps.Systems.List()) == 0 {
			checks["systems"] = "none configured"
			ready = false
		} else {
			checks["systems"] = "ok"
		}

		status, code := "ready", fiber.StatusOK
		if !ready {
			status, code = "not ready", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}

func checkDatabase(ctx context.Context, deps *Dependencies) string {
	if deps.DB == nil {
		return "not configured"
	}
	if err := deps.DB.Pool.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func checkCache(ctx context.Context, deps *Dependencies) string {
	_, err := deps.Cache.Get(ctx, "__health_check__")
	// A missing key comes back as "valkey nil message", which means the
	// server answered.
	if err != nil && err.Error() != "valkey nil message" {
		return "error: " + err.Error()
	}
	return "ok"
}
