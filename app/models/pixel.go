package models

import "time"

// Pixel holds ad-platform conversion credentials. PixelID is the platform-side
// identifier, AccessToken the CAPI token.
type Pixel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	Name        string    `gorm:"type:varchar(150)" json:"name"`
	PixelID     string    `gorm:"type:varchar(64);index" json:"pixel_id"`
	AccessToken string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsUsable reports whether the pixel carries everything a CAPI call needs.
func (p *Pixel) IsUsable() bool {
	return p.PixelID != "" && p.AccessToken != ""
}
