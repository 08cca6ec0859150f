package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trackgram/trackgram/internal/pkg/jobqueue"
)

// HandleQueueStatus reports the background queue's health: pending and
// in-flight counts plus lifetime status counters.
func HandleQueueStatus(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()
	ctx := c.Context()

	pending, err := queue.GetQueueSize(ctx)
	if err != nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "unavailable", "queue unreachable")
	}
	processing, _ := queue.GetProcessingSize(ctx)
	stats, _ := queue.GetJobStats(ctx)

	return c.JSON(fiber.Map{
		"pending":    pending,
		"processing": processing,
		"stats":      stats,
	})
}
