package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Funnel groups a bot, a pixel set and a slug into one campaign. This service
// only reads funnels; the dashboard owns their lifecycle.
type Funnel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Name      string    `gorm:"type:varchar(150)" json:"name" validate:"required,max=150"`
	Slug      string    `gorm:"type:varchar(100);uniqueIndex" json:"slug" validate:"required,max=100"`
	PixelID   *uint     `gorm:"default:null" json:"pixel_id"` // legacy single-pixel reference
	BotID     *uint     `gorm:"default:null" json:"bot_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Bot            *TelegramBot    `gorm:"foreignKey:BotID" json:"bot,omitempty"`
	Pixel          *Pixel          `gorm:"foreignKey:PixelID" json:"pixel,omitempty"`
	Pixels         []Pixel         `gorm:"many2many:funnel_pixels" json:"pixels,omitempty"`
	WelcomeSetting *WelcomeSetting `gorm:"foreignKey:FunnelID" json:"welcome_setting,omitempty"`
}

func (f *Funnel) Validate() error {
	v := validator.New()

	return v.Struct(f)
}

// FunnelPixel is the many-to-many join between funnels and pixels.
type FunnelPixel struct {
	FunnelID  uint      `gorm:"primaryKey" json:"funnel_id"`
	PixelID   uint      `gorm:"primaryKey" json:"pixel_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
