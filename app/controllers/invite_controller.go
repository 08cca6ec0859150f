package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/trackgram/trackgram/app/models"
	"github.com/trackgram/trackgram/app/repository"
	"github.com/trackgram/trackgram/internal/pkg/invitepool"
)

// InviteRequest is the body of POST /api/invite. GET accepts the same fields
// as query parameters, the landing page uses whichever is simpler to emit.
type InviteRequest struct {
	VisitorID   string `json:"visitor_id" query:"visitor_id" validate:"required,max=64"`
	FunnelID    uint   `json:"funnel_id" query:"funnel_id" validate:"required"`
	FBC         string `json:"fbc" query:"fbc"`
	FBP         string `json:"fbp" query:"fbp"`
	UTMSource   string `json:"utm_source" query:"utm_source"`
	UTMMedium   string `json:"utm_medium" query:"utm_medium"`
	UTMCampaign string `json:"utm_campaign" query:"utm_campaign"`
	UTMContent  string `json:"utm_content" query:"utm_content"`
	UTMTerm     string `json:"utm_term" query:"utm_term"`
	PageURL     string `json:"page_url" query:"page_url"`
}

// HandleIssueInvite records the click and hands the visitor their invite
// link. The click event is written before the link is issued; attribution by
// timing depends on it even when link creation fails.
func HandleIssueInvite(c *fiber.Ctx) error {
	var req InviteRequest
	if c.Method() == fiber.MethodGet {
		if err := c.QueryParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid query parameters")
		}
	} else if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}
	if err := validate.Struct(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	repos := repository.GetGlobalRepositories()

	funnelID := req.FunnelID
	if err := repos.Event.Create(&models.Event{
		VisitorID: req.VisitorID,
		FunnelID:  &funnelID,
		EventType: models.EVENT_CLICK,
		Metadata: models.EventMetadata{
			FBC:         req.FBC,
			FBP:         req.FBP,
			UTMSource:   req.UTMSource,
			UTMMedium:   req.UTMMedium,
			UTMCampaign: req.UTMCampaign,
			UTMContent:  req.UTMContent,
			UTMTerm:     req.UTMTerm,
			PageURL:     req.PageURL,
			IPAddress:   c.IP(),
			UserAgent:   c.Get(fiber.HeaderUserAgent),
		},
	}); err != nil {
		log.Errorf("[Invite] Failed to store click for visitor %s: %v", req.VisitorID, err)
	}

	result, err := invites.Issue(c.Context(), req.VisitorID, req.FunnelID)
	if err != nil {
		switch {
		case errors.Is(err, invitepool.ErrNoBot):
			return errorJSON(c, fiber.StatusNotFound, "not_found", "funnel has no bot configured")
		case errors.Is(err, invitepool.ErrNoInvite):
			return errorJSON(c, fiber.StatusServiceUnavailable, "unavailable", "no invite link available")
		default:
			log.Errorf("[Invite] Issue failed for visitor %s: %v", req.VisitorID, err)
			return errorJSON(c, fiber.StatusInternalServerError, "internal", "invite issue failed")
		}
	}

	enqueueNotification(req.FunnelID, models.PUSHCUT_EVENT_CLICK, map[string]string{
		"visitor_id": req.VisitorID,
		"utm_source": req.UTMSource,
		"page_url":   req.PageURL,
	})

	return c.JSON(result)
}
