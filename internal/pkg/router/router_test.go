package router

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/trackgram/trackgram/app/repository"
)

func routeSet(app *fiber.App) map[string]bool {
	set := make(map[string]bool)
	for _, route := range app.GetRoutes() {
		set[route.Method+" "+route.Path] = true
	}
	return set
}

// Mirrors the boot order: the repository factory must be initialized before
// the routers install, because controller setup resolves it eagerly.
func TestHttpRouterInstallsAfterFactoryInit(t *testing.T) {
	repository.InitializeFactory(&gorm.DB{})

	app := fiber.New()
	assert.NotPanics(t, func() {
		NewHttpRouter().InstallRouter(app)
	})

	routes := routeSet(app)
	assert.True(t, routes["GET /up"])
	assert.True(t, routes["POST /webhook/telegram/:botid"])
}

func TestApiRoutesRegistered(t *testing.T) {
	app := fiber.New()
	r := &ApiRouter{limiterStorage: func() fiber.Storage { return nil }}
	r.InstallRouter(app)

	routes := routeSet(app)
	assert.True(t, routes["POST /api/track"])
	assert.True(t, routes["GET /api/invite"])
	assert.True(t, routes["POST /api/invite"])
	assert.True(t, routes["GET /api/status"])
	assert.True(t, routes["GET /api/cron/generate-pool"])
	assert.True(t, routes["POST /api/cron/generate-pool"])
	assert.True(t, routes["GET /api/webhook/telegram/:botid"])
}
