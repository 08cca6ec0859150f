package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	PUSHCUT_EVENT_NEW_LEAD     = "new_lead"
	PUSHCUT_EVENT_MEMBER_JOIN  = "member_join"
	PUSHCUT_EVENT_MEMBER_LEAVE = "member_leave"
	PUSHCUT_EVENT_JOIN_REQUEST = "join_request"
	PUSHCUT_EVENT_PAGEVIEW     = "pageview"
	PUSHCUT_EVENT_CLICK        = "click"

	PUSHCUT_STATUS_SENT   = "sent"
	PUSHCUT_STATUS_FAILED = "failed"
)

// PushcutIntegration is a tenant's Pushcut account binding. One per user.
type PushcutIntegration struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"index" json:"user_id"`
	APIKey           string    `gorm:"type:varchar(255)" json:"-"`
	NotificationName string    `gorm:"type:varchar(150)" json:"notification_name"`
	IsActive         bool      `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PushcutNotification is the per-event-type template configuration of an
// integration. A missing or disabled row means the event is not notified.
type PushcutNotification struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	IntegrationID uint      `gorm:"index:idx_pushcut_event,priority:1" json:"integration_id"`
	EventType     string    `gorm:"type:varchar(30);index:idx_pushcut_event,priority:2" json:"event_type"`
	Enabled       bool      `gorm:"default:true" json:"enabled"`
	TitleTemplate string    `gorm:"type:varchar(255)" json:"title_template"`
	TextTemplate  string    `gorm:"type:text" json:"text_template"`
	Sound         string    `gorm:"type:varchar(50)" json:"sound"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PushcutLog records every attempted push, success or failure, for later
// inspection from the dashboard.
type PushcutLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	IntegrationID uint      `gorm:"index" json:"integration_id"`
	EventType     string    `gorm:"type:varchar(30)" json:"event_type"`
	Title         string    `gorm:"type:varchar(255)" json:"title"`
	Text          string    `gorm:"type:text" json:"text"`
	Status        string    `gorm:"type:varchar(20)" json:"status"`
	ErrorMessage  string    `gorm:"type:text" json:"error_message"`
	Metadata      EventVars `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// EventVars are the template variables of one notification.
type EventVars map[string]string

func (v EventVars) Value() (driver.Value, error) {
	if v == nil {
		v = EventVars{}
	}
	return json.Marshal(v)
}

func (v *EventVars) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	var raw []byte
	switch val := value.(type) {
	case []byte:
		raw = val
	case string:
		raw = []byte(val)
	default:
		return fmt.Errorf("unsupported type for EventVars: %T", value)
	}
	return json.Unmarshal(raw, v)
}
