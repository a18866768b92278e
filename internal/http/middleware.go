package http

import (
	"github.com/gofiber/fiber/v2"

	"tavola/internal/config"
)

// corsMiddleware answers preflight requests and tags every response so
// browser-based consumers can call the API directly.
func corsMiddleware(c *fiber.Ctx) error {
	c.Set("Access-Control-Allow-Origin", "*")
	c.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
	if c.Method() == fiber.MethodOptions {
		return c.SendStatus(fiber.StatusOK)
	}
	return c.Next()
}

// apiKeyMiddleware validates the X-API-Key header when auth is
// enabled. Health and metrics stay open; only /v1 routes pass through
// here.
func apiKeyMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Auth.Enabled {
			return c.Next()
		}
		if c.Get("X-API-Key") != cfg.Auth.APIKey {
			return c.Status(fiber.StatusUnauthorized).JSON(errorEnvelope("invalid or missing API key"))
		}
		return c.Next()
	}
}
