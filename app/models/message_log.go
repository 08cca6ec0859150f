package models

import "time"

const (
	MESSAGE_DIRECTION_OUTBOUND = "outbound"
	MESSAGE_DIRECTION_INBOUND  = "inbound"

	MESSAGE_STATUS_SENT   = "sent"
	MESSAGE_STATUS_FAILED = "failed"
)

// MessageLog is the audit trail of every bot message we attempted, written
// regardless of whether the Telegram API accepted it.
type MessageLog struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	FunnelID         uint      `gorm:"index" json:"funnel_id"`
	TelegramChatID   string    `gorm:"type:varchar(32)" json:"telegram_chat_id"`
	TelegramUserName string    `gorm:"type:varchar(100)" json:"telegram_user_name"`
	Direction        string    `gorm:"type:varchar(10)" json:"direction"`
	MessageContent   string    `gorm:"type:text" json:"message_content"`
	Status           string    `gorm:"type:varchar(20)" json:"status"`
	ErrorMessage     string    `gorm:"type:text" json:"error_message"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}
