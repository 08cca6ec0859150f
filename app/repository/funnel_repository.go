package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/trackgram/trackgram/app/models"
)

type funnelRepository struct {
	db *gorm.DB
}

// NewFunnelRepository creates a new funnel repository instance
func NewFunnelRepository(db *gorm.DB) FunnelRepository {
	return &funnelRepository{db: db}
}

func (r *funnelRepository) GetByID(id uint) (*models.Funnel, error) {
	var funnel models.Funnel
	err := r.db.First(&funnel, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &funnel, nil
}

func (r *funnelRepository) GetAllWithBots() ([]models.Funnel, error) {
	var funnels []models.Funnel
	err := r.db.Preload("Bot").Find(&funnels).Error
	return funnels, err
}

func (r *funnelRepository) GetBot(funnelID uint) (*models.TelegramBot, error) {
	funnel, err := r.GetByID(funnelID)
	if err != nil || funnel == nil || funnel.BotID == nil {
		return nil, err
	}
	return r.GetBotByID(*funnel.BotID)
}

func (r *funnelRepository) GetBotByID(botID uint) (*models.TelegramBot, error) {
	var bot models.TelegramBot
	err := r.db.First(&bot, botID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bot, nil
}

func (r *funnelRepository) GetIDsByBot(botID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Funnel{}).
		Where("bot_id = ?", botID).
		Pluck("id", &ids).Error
	return ids, err
}

// GetPixels collects the funnel's legacy single pixel plus the many-to-many
// set, deduplicated by the platform-side pixel id.
func (r *funnelRepository) GetPixels(funnelID uint) ([]models.Pixel, error) {
	funnel, err := r.GetByID(funnelID)
	if err != nil || funnel == nil {
		return nil, err
	}

	var collected []models.Pixel

	if funnel.PixelID != nil {
		var legacy models.Pixel
		if err := r.db.First(&legacy, *funnel.PixelID).Error; err == nil {
			collected = append(collected, legacy)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var extra []models.Pixel
	err = r.db.
		Joins("JOIN funnel_pixels ON funnel_pixels.pixel_id = pixels.id").
		Where("funnel_pixels.funnel_id = ?", funnelID).
		Find(&extra).Error
	if err != nil {
		return nil, err
	}
	collected = append(collected, extra...)

	seen := make(map[string]struct{}, len(collected))
	unique := make([]models.Pixel, 0, len(collected))
	for _, p := range collected {
		if _, ok := seen[p.PixelID]; ok {
			continue
		}
		seen[p.PixelID] = struct{}{}
		unique = append(unique, p)
	}
	return unique, nil
}

func (r *funnelRepository) GetWelcomeSetting(funnelID uint) (*models.WelcomeSetting, error) {
	var setting models.WelcomeSetting
	err := r.db.Where("funnel_id = ?", funnelID).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (r *funnelRepository) GetOwnerID(funnelID uint) (uint, error) {
	funnel, err := r.GetByID(funnelID)
	if err != nil || funnel == nil {
		return 0, err
	}
	return funnel.UserID, nil
}
