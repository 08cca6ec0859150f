package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	LINK_TYPE_DYNAMIC = "dynamic_invite"
	LINK_TYPE_POOL    = "pool_invite"

	LINKED_VIA_DYNAMIC_INVITE = "dynamic_invite"
	LINKED_VIA_JOIN_REQUEST   = "join_request"
	LINKED_VIA_START_COMMAND  = "start_command"
	LINKED_VIA_CHAT_MEMBER    = "chat_member_fallback"
)

// TelegramLink is the durable bridge between an anonymous web visitor and a
// Telegram identity. One row per (visitor, funnel); the same pair is updated
// in place on every webhook for that user. WelcomeSentAt is write-once via a
// conditional update, it is the welcome idempotency boundary.
type TelegramLink struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	VisitorID        string       `gorm:"type:varchar(64);index;uniqueIndex:idx_visitor_tg_user,priority:1" json:"visitor_id"`
	FunnelID         uint         `gorm:"index" json:"funnel_id"`
	BotID            uint         `gorm:"index" json:"bot_id"`
	TelegramUserID   int64        `gorm:"index;uniqueIndex:idx_visitor_tg_user,priority:2" json:"telegram_user_id"`
	TelegramUsername string       `gorm:"type:varchar(100)" json:"telegram_username"`
	TelegramName     string       `gorm:"type:varchar(200)" json:"telegram_name"`
	LinkedAt         time.Time    `gorm:"index" json:"linked_at"`
	WelcomeSentAt    *time.Time   `gorm:"type:timestamp;default:null" json:"welcome_sent_at"`
	Metadata         LinkMetadata `gorm:"type:json" json:"metadata"`
	CreatedAt        time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// LinkMetadata records how the link came to be: which invite link was issued,
// how the visitor was correlated, and the chat the user ended up in.
type LinkMetadata struct {
	InviteLink       string `json:"invite_link,omitempty"`
	InviteName       string `json:"invite_name,omitempty"`
	GeneratedAt      string `json:"generated_at,omitempty"`
	Type             string `json:"type,omitempty"`
	LinkedVia        string `json:"linked_via,omitempty"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`
	ChatID           int64  `json:"chat_id,omitempty"`
	ChatTitle        string `json:"chat_title,omitempty"`
	TelegramName     string `json:"telegram_name,omitempty"`
}

// Merge overlays the non-zero fields of other onto a copy of m. Existing
// values survive when the incoming update does not carry a replacement.
func (m LinkMetadata) Merge(other LinkMetadata) LinkMetadata {
	out := m
	if other.InviteLink != "" {
		out.InviteLink = other.InviteLink
	}
	if other.InviteName != "" {
		out.InviteName = other.InviteName
	}
	if other.GeneratedAt != "" {
		out.GeneratedAt = other.GeneratedAt
	}
	if other.Type != "" {
		out.Type = other.Type
	}
	if other.LinkedVia != "" {
		out.LinkedVia = other.LinkedVia
	}
	if other.RequiresApproval {
		out.RequiresApproval = true
	}
	if other.ChatID != 0 {
		out.ChatID = other.ChatID
	}
	if other.ChatTitle != "" {
		out.ChatTitle = other.ChatTitle
	}
	if other.TelegramName != "" {
		out.TelegramName = other.TelegramName
	}
	return out
}

func (m LinkMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *LinkMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = LinkMetadata{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for LinkMetadata: %T", value)
	}
	return json.Unmarshal(raw, m)
}
