package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/trackgram/trackgram/internal/pkg/env"
)

// HandleGeneratePool runs one invite pool replenishment sweep. The endpoint
// exists for external schedulers; the in-process ticker covers normal
// operation, so running both is harmless, the sweep is idempotent.
func HandleGeneratePool(c *fiber.Ctx) error {
	secret := env.GetEnv("CRON_SECRET", "")
	if secret == "" {
		return errorJSON(c, fiber.StatusServiceUnavailable, "unavailable", "cron endpoint disabled")
	}

	auth := c.Get(fiber.HeaderAuthorization)
	if strings.TrimPrefix(auth, "Bearer ") != secret {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "invalid cron secret")
	}

	invites.ReplenishAll(c.Context())
	return c.JSON(fiber.Map{"status": "ok"})
}
