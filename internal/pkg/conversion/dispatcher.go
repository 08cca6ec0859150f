package conversion

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trackgram/trackgram/app/models"
	"github.com/trackgram/trackgram/app/repository"
	"github.com/trackgram/trackgram/internal/pkg/capi"
)

const (
	// Named events reported to the ad platform.
	EventNameLead  = "Lead"
	EventNameLeave = "SaidaDeCanal"

	// Lookback over the visitor's web events when aggregating metadata.
	metadataLookback = 5

	// Repeated join webhooks inside this window are treated as duplicates.
	JoinDedupWindow = 5 * time.Minute

	dispatchTimeout = 30 * time.Second
)

// Sender dispatches one conversion event to one pixel.
type Sender interface {
	SendEvent(ctx context.Context, accessToken, pixelID string, event capi.Event) error
}

// Dispatcher turns resolved joins/leaves into conversion events, exactly one
// per configured pixel per lead.
type Dispatcher struct {
	events  repository.EventRepository
	links   repository.TelegramLinkRepository
	funnels repository.FunnelRepository
	sender  Sender
	now     func() time.Time
}

// NewDispatcher creates a conversion dispatcher.
func NewDispatcher(events repository.EventRepository, links repository.TelegramLinkRepository, funnels repository.FunnelRepository, sender Sender) *Dispatcher {
	return &Dispatcher{
		events:  events,
		links:   links,
		funnels: funnels,
		sender:  sender,
		now:     time.Now,
	}
}

// JoinParams describe one attributed join.
type JoinParams struct {
	VisitorID        string
	FunnelID         uint
	TelegramUserID   int64
	TelegramUsername string
	TelegramName     string
	ChatID           int64
	ChatTitle        string
	InviteName       string
	Source           string
	Unattributed     bool
}

// ProcessJoin records the join event and fans the Lead conversion out to
// every pixel of the funnel. A join already recorded for this visitor inside
// the dedup window suppresses both the event insert and the fan-out.
//
// The dedup is a read-then-insert check, not a store-level constraint: two
// webhooks racing through the gap can both pass it. That matches the
// dashboard's historical behavior; the welcome path has the stronger guard.
func (d *Dispatcher) ProcessJoin(ctx context.Context, params JoinParams) error {
	funnel, err := d.funnels.GetByID(params.FunnelID)
	if err != nil {
		return err
	}
	if funnel == nil {
		log.Warnf("[Conversion] Funnel %d not found, skipping lead", params.FunnelID)
		return nil
	}

	pixels, err := d.funnels.GetPixels(params.FunnelID)
	if err != nil {
		log.Errorf("[Conversion] Pixel lookup failed for funnel %d: %v", params.FunnelID, err)
	}

	metadata := d.AggregateMetadata(params.VisitorID)

	recent, err := d.events.HasEventSince(params.VisitorID, models.EVENT_JOIN, d.now().Add(-JoinDedupWindow))
	if err != nil {
		return err
	}
	if recent {
		log.Infof("[Conversion] Recent join exists for visitor %s (%s), skipping", params.VisitorID, params.Source)
		return nil
	}

	eventMeta := metadata
	eventMeta.Source = params.Source
	eventMeta.TelegramUserID = params.TelegramUserID
	eventMeta.TelegramUsername = params.TelegramUsername
	eventMeta.TelegramName = params.TelegramName
	eventMeta.ChatID = params.ChatID
	eventMeta.ChatTitle = params.ChatTitle
	eventMeta.InviteName = params.InviteName
	eventMeta.Unattributed = params.Unattributed

	funnelID := params.FunnelID
	if err := d.events.Create(&models.Event{
		VisitorID: params.VisitorID,
		FunnelID:  &funnelID,
		EventType: models.EVENT_JOIN,
		Metadata:  eventMeta,
	}); err != nil {
		return err
	}
	log.Infof("[Conversion] JOIN recorded for visitor %s (%s)", params.VisitorID, params.Source)

	d.fanOut(ctx, pixels, EventNameLead, funnel.Name, params.VisitorID, metadata)
	return nil
}

// ProcessLeave is the structural mirror of ProcessJoin: resolve the link by
// telegram user id, record the leave, report the channel-exit conversion.
// Leaves carry no dedup window.
func (d *Dispatcher) ProcessLeave(ctx context.Context, telegramUserID int64, chatID int64, chatTitle string) error {
	link, err := d.links.GetLatestByTelegramUser(telegramUserID)
	if err != nil {
		return err
	}
	if link == nil {
		log.Infof("[Conversion] No link for leaving user %d, nothing to report", telegramUserID)
		return nil
	}

	funnel, err := d.funnels.GetByID(link.FunnelID)
	if err != nil {
		return err
	}

	pixels, err := d.funnels.GetPixels(link.FunnelID)
	if err != nil {
		log.Errorf("[Conversion] Pixel lookup failed for funnel %d: %v", link.FunnelID, err)
	}

	metadata := d.AggregateMetadata(link.VisitorID)

	eventMeta := metadata
	eventMeta.Source = "telegram_webhook"
	eventMeta.TelegramUserID = telegramUserID
	eventMeta.ChatID = chatID
	eventMeta.ChatTitle = chatTitle

	funnelID := link.FunnelID
	if err := d.events.Create(&models.Event{
		VisitorID: link.VisitorID,
		FunnelID:  &funnelID,
		EventType: models.EVENT_LEAVE,
		Metadata:  eventMeta,
	}); err != nil {
		return err
	}
	log.Infof("[Conversion] LEAVE recorded for visitor %s", link.VisitorID)

	contentName := "Channel Exit"
	if funnel != nil && funnel.Name != "" {
		contentName = funnel.Name
	}
	d.fanOut(ctx, pixels, EventNameLeave, contentName, link.VisitorID, metadata)
	return nil
}

// AggregateMetadata merges the visitor's newest click/pageview events into a
// single attribution snapshot. Per field the first non-empty value wins
// scanning newest→oldest; the scan stops early once fbc, fbp and utm_source
// are all present.
func (d *Dispatcher) AggregateMetadata(visitorID string) models.EventMetadata {
	events, err := d.events.RecentByVisitor(visitorID, []string{models.EVENT_CLICK, models.EVENT_PAGEVIEW}, metadataLookback)
	if err != nil {
		log.Errorf("[Conversion] Metadata lookup failed for visitor %s: %v", visitorID, err)
		return models.EventMetadata{}
	}

	var merged models.EventMetadata
	for _, ev := range events {
		m := ev.Metadata
		fillString(&merged.FBC, m.FBC)
		fillString(&merged.FBP, m.FBP)
		fillString(&merged.UserAgent, m.UserAgent)
		fillString(&merged.IPAddress, m.IPAddress)
		fillString(&merged.City, m.City)
		fillString(&merged.Region, m.Region)
		fillString(&merged.Country, m.Country)
		fillString(&merged.PostalCode, m.PostalCode)
		fillString(&merged.UTMSource, m.UTMSource)
		fillString(&merged.UTMMedium, m.UTMMedium)
		fillString(&merged.UTMCampaign, m.UTMCampaign)
		fillString(&merged.UTMContent, m.UTMContent)
		fillString(&merged.UTMTerm, m.UTMTerm)
		fillString(&merged.PageURL, m.PageURL)

		if merged.FBC != "" && merged.FBP != "" && merged.UTMSource != "" {
			break
		}
	}
	return merged
}

// fanOut dispatches one conversion per pixel concurrently. Each pixel is its
// own failure domain: an error is logged and never cancels the siblings.
func (d *Dispatcher) fanOut(ctx context.Context, pixels []models.Pixel, eventName, contentName, visitorID string, metadata models.EventMetadata) {
	if len(pixels) == 0 {
		log.Infof("[Conversion] No pixels configured, skipping %s dispatch", eventName)
		return
	}

	event := capi.BuildEvent(eventName, d.now().Unix(), metadata.PageURL, capi.UserData{
		City:       metadata.City,
		Region:     metadata.Region,
		Country:    metadata.Country,
		PostalCode: metadata.PostalCode,
		ExternalID: visitorID,
		FBC:        metadata.FBC,
		FBP:        metadata.FBP,
		IPAddress:  metadata.IPAddress,
		UserAgent:  metadata.UserAgent,
	}, capi.CustomData{
		ContentName: contentName,
		UTMSource:   metadata.UTMSource,
		UTMMedium:   metadata.UTMMedium,
		UTMCampaign: metadata.UTMCampaign,
		UTMContent:  metadata.UTMContent,
		UTMTerm:     metadata.UTMTerm,
	})

	dispatchCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, pixel := range pixels {
		if !pixel.IsUsable() {
			continue
		}
		wg.Add(1)
		go func(p models.Pixel) {
			defer wg.Done()
			if err := d.sender.SendEvent(dispatchCtx, p.AccessToken, p.PixelID, event); err != nil {
				log.Errorf("[Conversion] %s dispatch to pixel %s failed: %v", eventName, p.PixelID, err)
				return
			}
			log.Infof("[Conversion] %s dispatched to pixel %s", eventName, p.PixelID)
		}(pixel)
	}
	wg.Wait()
}

func fillString(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}
