package http

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

// ETagMiddleware sets a weak ETag on successful GET responses and answers
// 304 Not Modified when the client already holds the current body. Station
// and route lists change rarely, so conditional requests save most of the
// payload for polling map clients.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		sum := sha256.Sum256(body)
		etag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
		c.Set(fiber.HeaderETag, etag)

		if c.Get(fiber.HeaderIfNoneMatch) == etag {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}
