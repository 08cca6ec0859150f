package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/trackgram/trackgram/app/models"
)

type pushcutRepository struct {
	db *gorm.DB
}

// NewPushcutRepository creates a new pushcut repository instance
func NewPushcutRepository(db *gorm.DB) PushcutRepository {
	return &pushcutRepository{db: db}
}

func (r *pushcutRepository) GetActiveIntegration(userID uint) (*models.PushcutIntegration, error) {
	var integration models.PushcutIntegration
	err := r.db.
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&integration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &integration, nil
}

func (r *pushcutRepository) GetEnabledNotification(integrationID uint, eventType string) (*models.PushcutNotification, error) {
	var notification models.PushcutNotification
	err := r.db.
		Where("integration_id = ? AND event_type = ? AND enabled = ?", integrationID, eventType, true).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &notification, nil
}

func (r *pushcutRepository) CreateLog(entry *models.PushcutLog) error {
	return r.db.Create(entry).Error
}
