package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/trackgram/trackgram/app/models"
	"github.com/trackgram/trackgram/app/repository"
)

// Repeated identical web events inside this window are dropped, the pixel
// script fires on every SPA navigation and on reloads.
const trackDedupWindow = 5 * time.Minute

// TrackRequest is the body of POST /api/track.
type TrackRequest struct {
	VisitorID string               `json:"visitor_id" validate:"required,max=64"`
	FunnelID  uint                 `json:"funnel_id" validate:"required"`
	EventType string               `json:"event_type" validate:"required,oneof=pageview click"`
	Metadata  models.EventMetadata `json:"metadata"`
}

// HandleTrackEvent records one web event (pageview or click) for a visitor.
// Request IP and user agent fill in whatever the client-side payload left
// empty, they feed the conversion match quality later.
func HandleTrackEvent(c *fiber.Ctx) error {
	var req TrackRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}
	if err := validate.Struct(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	if req.Metadata.IPAddress == "" {
		req.Metadata.IPAddress = c.IP()
	}
	if req.Metadata.UserAgent == "" {
		req.Metadata.UserAgent = c.Get(fiber.HeaderUserAgent)
	}

	repos := repository.GetGlobalRepositories()

	duplicate, err := repos.Event.HasEventSince(req.VisitorID, req.EventType, time.Now().Add(-trackDedupWindow))
	if err != nil {
		log.Errorf("[Track] Dedup check failed for visitor %s: %v", req.VisitorID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal", "event check failed")
	}
	if duplicate {
		return c.JSON(fiber.Map{"status": "duplicate"})
	}

	funnelID := req.FunnelID
	if err := repos.Event.Create(&models.Event{
		VisitorID: req.VisitorID,
		FunnelID:  &funnelID,
		EventType: req.EventType,
		Metadata:  req.Metadata,
	}); err != nil {
		log.Errorf("[Track] Failed to store %s for visitor %s: %v", req.EventType, req.VisitorID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal", "event not stored")
	}

	notifyType := models.PUSHCUT_EVENT_PAGEVIEW
	if req.EventType == models.EVENT_CLICK {
		notifyType = models.PUSHCUT_EVENT_CLICK
	}
	enqueueNotification(req.FunnelID, notifyType, map[string]string{
		"visitor_id": req.VisitorID,
		"utm_source": req.Metadata.UTMSource,
		"page_url":   req.Metadata.PageURL,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "ok"})
}
