package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// WelcomeSetting configures the onboarding message a funnel sends to freshly
// joined members. When active, on-demand invite links are created with
// creates_join_request so the bot can message the user before they enter.
type WelcomeSetting struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	FunnelID    uint           `gorm:"uniqueIndex" json:"funnel_id"`
	IsActive    bool           `gorm:"default:false" json:"is_active"`
	MessageText string         `gorm:"type:text" json:"message_text"`
	Buttons     WelcomeButtons `gorm:"type:json" json:"buttons"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// WelcomeButton is one inline-keyboard entry under the welcome message.
type WelcomeButton struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type WelcomeButtons []WelcomeButton

func (b WelcomeButtons) Value() (driver.Value, error) {
	if b == nil {
		b = WelcomeButtons{}
	}
	return json.Marshal(b)
}

func (b *WelcomeButtons) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for WelcomeButtons: %T", value)
	}
	return json.Unmarshal(raw, b)
}
