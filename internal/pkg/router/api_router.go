package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/trackgram/trackgram/app/controllers"
	"github.com/trackgram/trackgram/internal/pkg/cache"
	"github.com/trackgram/trackgram/internal/pkg/env"
)

type ApiRouter struct {
	// limiterStorage is a factory so tests can install the routes without a
	// reachable Redis; nil storage falls back to the limiter's memory store.
	limiterStorage func() fiber.Storage
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	// The tracking endpoints are called cross-origin from landing pages.
	api := app.Group("/api", cors.New(cors.Config{
		AllowOrigins: env.GetEnv("CORS_ALLOW_ORIGINS", "*"),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}), limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    h.limiterStorage(),
	}))

	api.Post("/track", controllers.HandleTrackEvent)
	api.Get("/invite", controllers.HandleIssueInvite)
	api.Post("/invite", controllers.HandleIssueInvite)
	api.Get("/status", controllers.HandleQueueStatus)
	// External schedulers differ on verb; accept both.
	api.Get("/cron/generate-pool", controllers.HandleGeneratePool)
	api.Post("/cron/generate-pool", controllers.HandleGeneratePool)
	// Setup check for channel owners.
	api.Get("/webhook/telegram/:botid", controllers.HandleWebhookStatus)
}

// newLimiterStorage backs the rate limiter with Redis so limits hold across
// instances. Counters live in database 1; the cache uses database 0.
func newLimiterStorage() fiber.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{limiterStorage: newLimiterStorage}
}
