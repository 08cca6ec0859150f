package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trackgram/trackgram/app/models"
)

type telegramLinkRepository struct {
	db *gorm.DB
}

// NewTelegramLinkRepository creates a new telegram link repository instance
func NewTelegramLinkRepository(db *gorm.DB) TelegramLinkRepository {
	return &telegramLinkRepository{db: db}
}

func (r *telegramLinkRepository) GetByID(id uint) (*models.TelegramLink, error) {
	var link models.TelegramLink
	err := r.db.First(&link, id).Error
	return r.oneOrNil(&link, err)
}

func (r *telegramLinkRepository) GetByVisitorAndFunnel(visitorID string, funnelID uint) (*models.TelegramLink, error) {
	var link models.TelegramLink
	err := r.db.
		Where("visitor_id = ? AND funnel_id = ?", visitorID, funnelID).
		Order("linked_at DESC").
		First(&link).Error
	return r.oneOrNil(&link, err)
}

// GetLatestByVisitorPrefix matches on a visitor id prefix because invite link
// names truncate the visitor id to fit Telegram's 32 character limit.
func (r *telegramLinkRepository) GetLatestByVisitorPrefix(prefix string) (*models.TelegramLink, error) {
	var link models.TelegramLink
	err := r.db.
		Where("visitor_id LIKE ?", prefix+"%").
		Order("linked_at DESC").
		First(&link).Error
	return r.oneOrNil(&link, err)
}

func (r *telegramLinkRepository) GetLatestByInviteName(inviteName string) (*models.TelegramLink, error) {
	var link models.TelegramLink
	err := r.db.
		Where("JSON_UNQUOTE(JSON_EXTRACT(metadata, '$.invite_name')) = ?", inviteName).
		Order("linked_at DESC").
		First(&link).Error
	return r.oneOrNil(&link, err)
}

func (r *telegramLinkRepository) GetLatestByTelegramUser(telegramUserID int64) (*models.TelegramLink, error) {
	var link models.TelegramLink
	err := r.db.
		Where("telegram_user_id = ?", telegramUserID).
		Order("linked_at DESC").
		First(&link).Error
	return r.oneOrNil(&link, err)
}

func (r *telegramLinkRepository) Create(link *models.TelegramLink) error {
	return r.db.Create(link).Error
}

func (r *telegramLinkRepository) Update(link *models.TelegramLink) error {
	return r.db.Save(link).Error
}

// Upsert inserts the link, resolving a (visitor_id, telegram_user_id)
// conflict to an update of the volatile columns.
func (r *telegramLinkRepository) Upsert(link *models.TelegramLink) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "visitor_id"}, {Name: "telegram_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"funnel_id", "bot_id", "telegram_username", "telegram_name", "linked_at", "metadata",
		}),
	}).Create(link).Error
}

// MarkWelcomeSent stamps welcome_sent_at if and only if it is still unset.
// The conditional update makes the check and the write atomic; the boolean
// result reports whether this caller won the claim.
func (r *telegramLinkRepository) MarkWelcomeSent(id uint, at time.Time) (bool, error) {
	res := r.db.Model(&models.TelegramLink{}).
		Where("id = ? AND welcome_sent_at IS NULL", id).
		Update("welcome_sent_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *telegramLinkRepository) oneOrNil(link *models.TelegramLink, err error) (*models.TelegramLink, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return link, nil
}
