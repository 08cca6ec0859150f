package models

import "time"

const (
	POOL_STATUS_AVAILABLE = "available"
	POOL_STATUS_USED      = "used"
)

// InvitePoolLink is a pre-generated single-use Telegram invite link waiting to
// be handed out. Links are anonymous at creation and bound to a visitor at
// click time; the available→used transition happens exactly once through a
// conditional update.
type InvitePoolLink struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	FunnelID   uint       `gorm:"index:idx_pool_funnel_status" json:"funnel_id"`
	InviteLink string     `gorm:"type:varchar(255)" json:"invite_link"`
	InviteName string     `gorm:"type:varchar(64);index" json:"invite_name"`
	Status     string     `gorm:"type:varchar(20);default:'available';index:idx_pool_funnel_status" json:"status"`
	UsedAt     *time.Time `gorm:"type:timestamp;default:null" json:"used_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (l *InvitePoolLink) IsAvailable() bool {
	return l.Status == POOL_STATUS_AVAILABLE
}
