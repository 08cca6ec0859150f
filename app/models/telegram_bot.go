package models

import "time"

// TelegramBot is the bot attached to a funnel's channel. ChatID is the channel
// or group the bot administers; ChannelLink is a static fallback invite used
// when dynamic link creation is impossible.
type TelegramBot struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	Name        string    `gorm:"type:varchar(150)" json:"name"`
	BotToken    string    `gorm:"type:varchar(255)" json:"-"`
	ChatID      int64     `gorm:"default:0" json:"chat_id"`
	ChannelLink string    `gorm:"type:varchar(255)" json:"channel_link"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanCreateInvites reports whether the bot is configured well enough to mint
// invite links for its chat.
func (b *TelegramBot) CanCreateInvites() bool {
	return b.BotToken != "" && b.ChatID != 0
}
