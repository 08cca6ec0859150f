package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/trackgram/trackgram/app/models"
)

type invitePoolRepository struct {
	db *gorm.DB
}

// NewInvitePoolRepository creates a new invite pool repository instance
func NewInvitePoolRepository(db *gorm.DB) InvitePoolRepository {
	return &invitePoolRepository{db: db}
}

func (r *invitePoolRepository) Create(link *models.InvitePoolLink) error {
	return r.db.Create(link).Error
}

func (r *invitePoolRepository) CountAvailable(funnelID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.InvitePoolLink{}).
		Where("funnel_id = ? AND status = ?", funnelID, models.POOL_STATUS_AVAILABLE).
		Count(&count).Error
	return count, err
}

func (r *invitePoolRepository) NextAvailable(funnelID uint) (*models.InvitePoolLink, error) {
	var link models.InvitePoolLink
	err := r.db.
		Where("funnel_id = ? AND status = ?", funnelID, models.POOL_STATUS_AVAILABLE).
		Order("created_at ASC").
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// Claim transitions the entry available→used. The status guard in the WHERE
// clause keeps two concurrent claimers from winning the same link.
func (r *invitePoolRepository) Claim(id uint) (bool, error) {
	now := time.Now()
	res := r.db.Model(&models.InvitePoolLink{}).
		Where("id = ? AND status = ?", id, models.POOL_STATUS_AVAILABLE).
		Updates(map[string]interface{}{
			"status":  models.POOL_STATUS_USED,
			"used_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
