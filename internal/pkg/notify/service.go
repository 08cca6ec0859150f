package notify

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trackgram/trackgram/app/models"
	"github.com/trackgram/trackgram/app/repository"
	"github.com/trackgram/trackgram/internal/pkg/pushcut"
)

// PushSender delivers one rendered notification.
type PushSender interface {
	Send(ctx context.Context, n pushcut.Notification) error
}

// Service resolves a funnel event to the owner's Pushcut configuration,
// renders the templates and delivers the push. Everything here is best
// effort: a tenant without an integration, a disabled event type or an
// upstream failure must never affect the tracking pipeline.
type Service struct {
	funnels  repository.FunnelRepository
	pushcuts repository.PushcutRepository
	sender   PushSender
}

// NewService creates a notification service.
func NewService(funnels repository.FunnelRepository, pushcuts repository.PushcutRepository, sender PushSender) *Service {
	return &Service{funnels: funnels, pushcuts: pushcuts, sender: sender}
}

// Notify sends the funnel owner's configured push for the event type, if any.
// The attempt is logged either way; the returned error is for the retry
// machinery, not for callers on the hot path.
func (s *Service) Notify(ctx context.Context, funnelID uint, eventType string, vars map[string]string) error {
	ownerID, err := s.funnels.GetOwnerID(funnelID)
	if err != nil {
		return err
	}
	if ownerID == 0 {
		return nil
	}

	integration, err := s.pushcuts.GetActiveIntegration(ownerID)
	if err != nil {
		return err
	}
	if integration == nil {
		return nil
	}

	notification, err := s.pushcuts.GetEnabledNotification(integration.ID, eventType)
	if err != nil {
		return err
	}
	if notification == nil {
		return nil
	}

	title := pushcut.ParseTemplate(notification.TitleTemplate, vars)
	text := pushcut.ParseTemplate(notification.TextTemplate, vars)

	sendErr := s.sender.Send(ctx, pushcut.Notification{
		APIKey:           integration.APIKey,
		NotificationName: integration.NotificationName,
		Title:            title,
		Text:             text,
		Sound:            notification.Sound,
	})

	entry := &models.PushcutLog{
		IntegrationID: integration.ID,
		EventType:     eventType,
		Title:         title,
		Text:          text,
		Status:        models.PUSHCUT_STATUS_SENT,
		Metadata:      models.EventVars(vars),
	}
	if sendErr != nil {
		entry.Status = models.PUSHCUT_STATUS_FAILED
		entry.ErrorMessage = sendErr.Error()
	}
	if logErr := s.pushcuts.CreateLog(entry); logErr != nil {
		log.Errorf("[Notify] Failed to write pushcut log for integration %d: %v", integration.ID, logErr)
	}

	if sendErr != nil {
		log.Warnf("[Notify] Push %s for funnel %d failed: %v", eventType, funnelID, sendErr)
		return sendErr
	}
	log.Infof("[Notify] Push %s delivered for funnel %d", eventType, funnelID)
	return nil
}
