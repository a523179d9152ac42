package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		// Default cache times by endpoint pattern
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0" // GraphQL varies wildly

		case strings.Contains(path, "/stats"):
			ttl = "no-cache" // Live roll-ups, never stale

		case strings.Contains(path, "/transactions"):
			ttl = "private, max-age=0" // Per-rider data

		case strings.Contains(path, "/journey"):
			ttl = "no-cache" // Open journeys change on every tap

		case strings.HasPrefix(path, "/v1/stations") || strings.Contains(path, "/stations"):
			ttl = "public, max-age=300" // 5 min for station layout

		case strings.Contains(path, "/routes"):
			ttl = "public, max-age=300" // 5 min for route layout

		case strings.HasPrefix(path, "/v1/systems"):
			ttl = "public, max-age=600" // Systems only change on reload

		case path == "/v1/ledger/status":
			ttl = "public, max-age=60" // Row counts: 1 min

		case strings.HasPrefix(path, "/v1/"):
			ttl = "private, max-age=0" // Default: fare data is personal
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
