package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trackgram/trackgram/app/controllers"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Build the controller service graph before any route can fire
	controllers.InitializeTrackingControllers()

	app.Get("/up", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Telegram calls this with the bot's numeric id in the path; the shared
	// secret header is checked in the handler.
	app.Post("/webhook/telegram/:botid", controllers.HandleTelegramWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
