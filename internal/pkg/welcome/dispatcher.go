package welcome

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trackgram/trackgram/app/models"
	"github.com/trackgram/trackgram/app/repository"
	"github.com/trackgram/trackgram/internal/pkg/telegram"
)

// BotAPI is the slice of the Bot API the welcome flow needs.
type BotAPI interface {
	RevokeInviteLink(ctx context.Context, chatID int64, inviteLink string) error
	SendMessage(ctx context.Context, params telegram.SendMessageParams) error
}

// Dispatcher sends each linked member their funnel's welcome message at most
// once. The once-guard is a conditional update on the link row, so concurrent
// webhook deliveries race on the database instead of on process memory.
type Dispatcher struct {
	links    repository.TelegramLinkRepository
	funnels  repository.FunnelRepository
	messages repository.MessageLogRepository
	newBot   func(token string) BotAPI
	now      func() time.Time
}

// NewDispatcher creates a welcome dispatcher.
func NewDispatcher(links repository.TelegramLinkRepository, funnels repository.FunnelRepository, messages repository.MessageLogRepository) *Dispatcher {
	return &Dispatcher{
		links:    links,
		funnels:  funnels,
		messages: messages,
		newBot:   func(token string) BotAPI { return telegram.NewClient(token) },
		now:      time.Now,
	}
}

// NewDispatcherWithBot creates a dispatcher with a custom bot factory (tests).
func NewDispatcherWithBot(links repository.TelegramLinkRepository, funnels repository.FunnelRepository, messages repository.MessageLogRepository, newBot func(token string) BotAPI) *Dispatcher {
	d := NewDispatcher(links, funnels, messages)
	d.newBot = newBot
	return d
}

// Send delivers the welcome message for the given link, if the funnel has an
// active welcome and this link has not been welcomed before. The consumed
// invite link is revoked first so it cannot be forwarded; revocation failure
// only logs, the welcome must not depend on it.
func (d *Dispatcher) Send(ctx context.Context, link *models.TelegramLink) error {
	setting, err := d.funnels.GetWelcomeSetting(link.FunnelID)
	if err != nil {
		return err
	}
	if setting == nil || !setting.IsActive || setting.MessageText == "" {
		return nil
	}

	bot, err := d.funnels.GetBot(link.FunnelID)
	if err != nil {
		return err
	}
	if bot == nil || bot.BotToken == "" {
		log.Warnf("[Welcome] Funnel %d has no usable bot, skipping welcome", link.FunnelID)
		return nil
	}
	client := d.newBot(bot.BotToken)

	if link.Metadata.InviteLink != "" {
		if err := client.RevokeInviteLink(ctx, bot.ChatID, link.Metadata.InviteLink); err != nil {
			log.Warnf("[Welcome] Could not revoke invite link for visitor %s: %v", link.VisitorID, err)
		}
	}

	claimed, err := d.links.MarkWelcomeSent(link.ID, d.now())
	if err != nil {
		return err
	}
	if !claimed {
		log.Infof("[Welcome] Already sent to telegram user %d, skipping", link.TelegramUserID)
		return nil
	}

	text := Render(setting.MessageText, link.TelegramName, link.TelegramUsername)

	var buttons [][]telegram.InlineButton
	for _, b := range setting.Buttons {
		if b.Label == "" || b.URL == "" {
			continue
		}
		buttons = append(buttons, []telegram.InlineButton{{Text: b.Label, URL: b.URL}})
	}

	sendErr := client.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:  link.TelegramUserID,
		Text:    text,
		Buttons: buttons,
	})

	entry := &models.MessageLog{
		FunnelID:         link.FunnelID,
		TelegramChatID:   strconv.FormatInt(link.TelegramUserID, 10),
		TelegramUserName: link.TelegramUsername,
		Direction:        models.MESSAGE_DIRECTION_OUTBOUND,
		MessageContent:   text,
		Status:           models.MESSAGE_STATUS_SENT,
	}
	if sendErr != nil {
		entry.Status = models.MESSAGE_STATUS_FAILED
		entry.ErrorMessage = sendErr.Error()
	}
	if logErr := d.messages.Create(entry); logErr != nil {
		log.Errorf("[Welcome] Failed to write message log for funnel %d: %v", link.FunnelID, logErr)
	}

	if sendErr != nil {
		log.Errorf("[Welcome] Send to telegram user %d failed: %v", link.TelegramUserID, sendErr)
		return sendErr
	}
	log.Infof("[Welcome] Sent to telegram user %d (funnel %d)", link.TelegramUserID, link.FunnelID)
	return nil
}

// Render substitutes the {first_name} and {username} placeholders. A missing
// username renders as an empty string rather than a dangling "@".
func Render(text, name, username string) string {
	out := strings.ReplaceAll(text, "{first_name}", name)
	handle := ""
	if username != "" {
		handle = "@" + username
	}
	return strings.ReplaceAll(out, "{username}", handle)
}
