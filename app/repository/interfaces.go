package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/trackgram/trackgram/app/models"
)

// Lookups return (nil, nil) when no row matches; callers treat a missing row
// as a normal outcome, not an error (attribution misses, absent configs).

// EventRepository defines the interface for event-related database operations
type EventRepository interface {
	Create(event *models.Event) error
	RecentByVisitor(visitorID string, eventTypes []string, limit int) ([]models.Event, error)
	HasEventSince(visitorID, eventType string, since time.Time) (bool, error)
	HasEvent(visitorID, eventType string) (bool, error)
	RecentClicks(since time.Time, limit int) ([]models.Event, error)
}

// TelegramLinkRepository defines the interface for visitor↔telegram link operations
type TelegramLinkRepository interface {
	GetByID(id uint) (*models.TelegramLink, error)
	GetByVisitorAndFunnel(visitorID string, funnelID uint) (*models.TelegramLink, error)
	GetLatestByVisitorPrefix(prefix string) (*models.TelegramLink, error)
	GetLatestByInviteName(inviteName string) (*models.TelegramLink, error)
	GetLatestByTelegramUser(telegramUserID int64) (*models.TelegramLink, error)
	Create(link *models.TelegramLink) error
	Update(link *models.TelegramLink) error
	Upsert(link *models.TelegramLink) error
	MarkWelcomeSent(id uint, at time.Time) (bool, error)
}

// InvitePoolRepository defines the interface for the pre-generated invite link pool
type InvitePoolRepository interface {
	Create(link *models.InvitePoolLink) error
	CountAvailable(funnelID uint) (int64, error)
	NextAvailable(funnelID uint) (*models.InvitePoolLink, error)
	Claim(id uint) (bool, error)
}

// FunnelRepository defines read access to funnels and their associations
type FunnelRepository interface {
	GetByID(id uint) (*models.Funnel, error)
	GetAllWithBots() ([]models.Funnel, error)
	GetBot(funnelID uint) (*models.TelegramBot, error)
	GetBotByID(botID uint) (*models.TelegramBot, error)
	GetIDsByBot(botID uint) ([]uint, error)
	GetPixels(funnelID uint) ([]models.Pixel, error)
	GetWelcomeSetting(funnelID uint) (*models.WelcomeSetting, error)
	GetOwnerID(funnelID uint) (uint, error)
}

// PushcutRepository defines access to pushcut integrations, templates and logs
type PushcutRepository interface {
	GetActiveIntegration(userID uint) (*models.PushcutIntegration, error)
	GetEnabledNotification(integrationID uint, eventType string) (*models.PushcutNotification, error)
	CreateLog(entry *models.PushcutLog) error
}

// MessageLogRepository defines the outbound bot message audit log
type MessageLogRepository interface {
	Create(entry *models.MessageLog) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Event        EventRepository
	TelegramLink TelegramLinkRepository
	InvitePool   InvitePoolRepository
	Funnel       FunnelRepository
	Pushcut      PushcutRepository
	MessageLog   MessageLogRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Event:        NewEventRepository(db),
		TelegramLink: NewTelegramLinkRepository(db),
		InvitePool:   NewInvitePoolRepository(db),
		Funnel:       NewFunnelRepository(db),
		Pushcut:      NewPushcutRepository(db),
		MessageLog:   NewMessageLogRepository(db),
	}
}
