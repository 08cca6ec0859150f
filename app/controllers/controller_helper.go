package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/trackgram/trackgram/app/repository"
	"github.com/trackgram/trackgram/internal/pkg/attribution"
	"github.com/trackgram/trackgram/internal/pkg/capi"
	"github.com/trackgram/trackgram/internal/pkg/conversion"
	"github.com/trackgram/trackgram/internal/pkg/invitepool"
	"github.com/trackgram/trackgram/internal/pkg/jobqueue"
	"github.com/trackgram/trackgram/internal/pkg/notify"
	"github.com/trackgram/trackgram/internal/pkg/pushcut"
	"github.com/trackgram/trackgram/internal/pkg/welcome"
)

// Shared service instances used by the tracking controllers. All of them are
// stateless facades over the global repositories, so one of each is enough.
var (
	resolver      *attribution.Resolver
	linker        *attribution.Linker
	conversions   *conversion.Dispatcher
	welcomes      *welcome.Dispatcher
	invites       *invitepool.Service
	notifications *notify.Service

	validate = validator.New()
)

// InitializeTrackingControllers builds the service graph behind the HTTP
// handlers and wires the background queue processors. Must run after the
// repository factory is initialized.
func InitializeTrackingControllers() {
	repos := repository.GetGlobalRepositories()

	resolver = attribution.NewResolver(repos.TelegramLink, repos.Event, repos.Funnel)
	linker = attribution.NewLinker(repos.TelegramLink)
	conversions = conversion.NewDispatcher(repos.Event, repos.TelegramLink, repos.Funnel, capi.NewClient())
	welcomes = welcome.NewDispatcher(repos.TelegramLink, repos.Funnel, repos.MessageLog)
	invites = invitepool.NewService(repos.InvitePool, repos.Funnel, repos.TelegramLink)
	notifications = notify.NewService(repos.Funnel, repos.Pushcut, pushcut.NewClient())

	manager := jobqueue.GetManager()
	manager.GetQueue().SetNotifier(notifications)
	manager.SetReplenisher(invites)
}

// enqueueNotification hands a pushcut push to the background queue. Failures
// only log; notifications never gate the tracking path. A variable so tests
// can intercept the enqueue without a running queue.
var enqueueNotification = func(funnelID uint, eventType string, vars map[string]string) {
	payload := jobqueue.PushcutNotifyJobPayload{
		FunnelID:  funnelID,
		EventType: eventType,
		Vars:      vars,
	}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypePushcutNotify, payload.ToMap()); err != nil {
		log.Errorf("[Controller] Failed to enqueue %s notification: %v", eventType, err)
	}
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}
