package repository

import (
	"gorm.io/gorm"

	"github.com/trackgram/trackgram/app/models"
)

type messageLogRepository struct {
	db *gorm.DB
}

// NewMessageLogRepository creates a new message log repository instance
func NewMessageLogRepository(db *gorm.DB) MessageLogRepository {
	return &messageLogRepository{db: db}
}

func (r *messageLogRepository) Create(entry *models.MessageLog) error {
	return r.db.Create(entry).Error
}
