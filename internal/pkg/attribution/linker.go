package attribution

import (
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trackgram/trackgram/app/models"
	"github.com/trackgram/trackgram/app/repository"
)

// Linker persists the durable visitor↔telegram relationship.
type Linker struct {
	links repository.TelegramLinkRepository
	now   func() time.Time
}

// NewLinker creates a Linker.
func NewLinker(links repository.TelegramLinkRepository) *Linker {
	return &Linker{links: links, now: time.Now}
}

// LinkParams describe one observed visitor↔telegram association.
type LinkParams struct {
	VisitorID        string
	FunnelID         uint
	BotID            uint
	TelegramUserID   int64
	TelegramUsername string
	TelegramName     string
	Metadata         models.LinkMetadata
}

// Link idempotently upserts the (visitor, funnel) row: an existing row gets
// its telegram identity and LinkedAt refreshed and its metadata merged, a
// missing one is inserted with (visitor, telegram_user) conflict resolution.
// Returns the row id so callers can address the welcome-dedup column without
// a second lookup.
func (l *Linker) Link(params LinkParams) (uint, error) {
	existing, err := l.links.GetByVisitorAndFunnel(params.VisitorID, params.FunnelID)
	if err != nil {
		return 0, err
	}

	params.Metadata.TelegramName = params.TelegramName

	if existing != nil {
		existing.TelegramUserID = params.TelegramUserID
		existing.TelegramUsername = params.TelegramUsername
		existing.TelegramName = params.TelegramName
		existing.LinkedAt = l.now()
		existing.Metadata = existing.Metadata.Merge(params.Metadata)
		if err := l.links.Update(existing); err != nil {
			return 0, err
		}
		return existing.ID, nil
	}

	link := &models.TelegramLink{
		VisitorID:        params.VisitorID,
		FunnelID:         params.FunnelID,
		BotID:            params.BotID,
		TelegramUserID:   params.TelegramUserID,
		TelegramUsername: params.TelegramUsername,
		TelegramName:     params.TelegramName,
		LinkedAt:         l.now(),
		Metadata:         params.Metadata,
	}
	if err := l.links.Upsert(link); err != nil {
		log.Errorf("[Attribution] Failed to create link for visitor %s: %v", params.VisitorID, err)
		return 0, err
	}
	return link.ID, nil
}
