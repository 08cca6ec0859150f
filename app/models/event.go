package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	EVENT_PAGEVIEW = "pageview"
	EVENT_CLICK    = "click"
	EVENT_JOIN     = "join"
	EVENT_LEAVE    = "leave"
)

// Event is an append-only tracking record. Rows are only ever inserted; the
// dashboard and the attribution fallbacks read them, nothing updates them.
type Event struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	VisitorID string        `gorm:"type:varchar(64);index" json:"visitor_id" validate:"required,max=64"`
	FunnelID  *uint         `gorm:"index;default:null" json:"funnel_id"`
	EventType string        `gorm:"type:varchar(20);index" json:"event_type" validate:"oneof=pageview click join leave"`
	Metadata  EventMetadata `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
}

// EventMetadata keeps the fields the conversion pipeline cares about as real
// columns of the JSON document. Anything a tracking script sends beyond these
// is preserved in Extra for forward compatibility.
type EventMetadata struct {
	FBC        string `json:"fbc,omitempty"`
	FBP        string `json:"fbp,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`

	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`

	PageURL string `json:"page_url,omitempty"`
	Source  string `json:"source,omitempty"`

	TelegramUserID   int64  `json:"telegram_user_id,omitempty"`
	TelegramUsername string `json:"telegram_username,omitempty"`
	TelegramName     string `json:"telegram_name,omitempty"`
	ChatID           int64  `json:"chat_id,omitempty"`
	ChatTitle        string `json:"chat_title,omitempty"`
	InviteName       string `json:"invite_name,omitempty"`

	Unattributed bool `json:"unattributed,omitempty"`

	Extra map[string]interface{} `json:"extra,omitempty"`
}

func (m EventMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *EventMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = EventMetadata{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for EventMetadata: %T", value)
	}
	return json.Unmarshal(raw, m)
}
