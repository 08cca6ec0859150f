package controllers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/trackgram/trackgram/app/models"
	"github.com/trackgram/trackgram/app/repository"
	"github.com/trackgram/trackgram/internal/pkg/attribution"
	"github.com/trackgram/trackgram/internal/pkg/conversion"
	"github.com/trackgram/trackgram/internal/pkg/env"
	"github.com/trackgram/trackgram/internal/pkg/telegram"
)

// Background join-request processing gets its own deadline, the HTTP request
// is already answered by then.
const backgroundTimeout = 60 * time.Second

// HandleTelegramWebhook ingests one Bot API update. Telegram retries anything
// that is not a 200, so every internal failure is logged and swallowed; only
// a wrong secret or an unparseable body is rejected.
func HandleTelegramWebhook(c *fiber.Ctx) error {
	if secret := env.GetEnv("TELEGRAM_WEBHOOK_SECRET", ""); secret != "" {
		if c.Get("X-Telegram-Bot-Api-Secret-Token") != secret {
			return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "invalid webhook secret")
		}
	}

	botID64, err := strconv.ParseUint(c.Params("botid"), 10, 32)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid bot id")
	}
	botID := uint(botID64)

	var update telegram.Update
	if err := c.BodyParser(&update); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid update payload")
	}

	ctx := context.Background()

	switch {
	case update.MemberUpdate() != nil:
		handleMemberUpdate(ctx, botID, update.MemberUpdate())
	case update.ChatJoinRequest != nil:
		handleJoinRequest(botID, update.ChatJoinRequest)
	case update.Message != nil && strings.HasPrefix(update.Message.Text, "/start"):
		handleStartCommand(ctx, botID, update.Message)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// HandleWebhookStatus reports whether the bot behind this webhook path is
// configured, so channel owners can check their setup without sending a test
// update.
func HandleWebhookStatus(c *fiber.Ctx) error {
	botID64, err := strconv.ParseUint(c.Params("botid"), 10, 32)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid bot id")
	}

	bot, err := repository.GetGlobalRepositories().Funnel.GetBotByID(uint(botID64))
	if err != nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "unavailable", "bot lookup failed")
	}

	return c.JSON(fiber.Map{
		"ok":             true,
		"bot_configured": bot != nil && bot.BotToken != "",
		"secret_set":     env.GetEnv("TELEGRAM_WEBHOOK_SECRET", "") != "",
	})
}

// handleMemberUpdate turns a chat member status transition into a join or
// leave. Anything that is neither (promotions, restrictions) is ignored.
func handleMemberUpdate(ctx context.Context, botID uint, mu *telegram.ChatMemberUpdated) {
	if mu.OldChatMember == nil || mu.NewChatMember == nil {
		return
	}
	oldStatus := mu.OldChatMember.Status
	newStatus := mu.NewChatMember.Status
	user := mu.Actor()
	if user == nil {
		return
	}

	switch {
	case telegram.IsJoinTransition(oldStatus, newStatus):
		processJoin(ctx, botID, mu.InviteLink, user, mu.Chat, models.LINKED_VIA_CHAT_MEMBER, false)

	case telegram.IsLeaveTransition(oldStatus, newStatus):
		var chatID int64
		var chatTitle string
		if mu.Chat != nil {
			chatID = mu.Chat.ID
			chatTitle = mu.Chat.Title
		}
		if err := conversions.ProcessLeave(ctx, user.ID, chatID, chatTitle); err != nil {
			log.Errorf("[Webhook] Leave processing for user %d failed: %v", user.ID, err)
		} else if fid := funnelForLeave(user.ID); fid != 0 {
			enqueueNotification(fid, models.PUSHCUT_EVENT_MEMBER_LEAVE, map[string]string{
				"first_name": user.FirstName,
				"username":   user.Username,
				"channel":    chatTitle,
			})
		}
	}
}

// handleJoinRequest approves the request immediately so the user is never
// left waiting, then runs attribution and welcome in the background.
func handleJoinRequest(botID uint, jr *telegram.ChatJoinRequest) {
	if jr.From == nil || jr.Chat == nil {
		return
	}

	bot, err := repository.GetGlobalRepositories().Funnel.GetBotByID(botID)
	if err != nil || bot == nil || bot.BotToken == "" {
		log.Errorf("[Webhook] Cannot approve join request, bot %d unavailable: %v", botID, err)
		return
	}

	approveCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	client := telegram.NewClient(bot.BotToken)
	if err := client.ApproveJoinRequest(approveCtx, jr.Chat.ID, jr.From.ID); err != nil {
		log.Errorf("[Webhook] Approve join request for user %d failed: %v", jr.From.ID, err)
	}
	cancel()

	if funnelIDs, ferr := repository.GetGlobalRepositories().Funnel.GetIDsByBot(botID); ferr == nil && len(funnelIDs) > 0 {
		notifyJoinRequest(funnelIDs[0], jr)
	}

	user, chat, invite := jr.From, jr.Chat, jr.InviteLink
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		processJoin(ctx, botID, invite, user, chat, models.LINKED_VIA_JOIN_REQUEST, true)
	}()
}

// handleStartCommand links a visitor who opened the bot through a deep link
// ("/start <visitor_id>") and welcomes them right away; they have a private
// chat with the bot, so the message cannot bounce.
func handleStartCommand(ctx context.Context, botID uint, msg *telegram.Message) {
	if msg.From == nil {
		return
	}
	parts := strings.Fields(msg.Text)
	if len(parts) < 2 {
		return
	}
	visitorID := parts[1]

	funnelIDs, err := repository.GetGlobalRepositories().Funnel.GetIDsByBot(botID)
	if err != nil || len(funnelIDs) == 0 {
		log.Warnf("[Webhook] /start from user %d but bot %d has no funnels", msg.From.ID, botID)
		return
	}

	linkID, err := linker.Link(attribution.LinkParams{
		VisitorID:        visitorID,
		FunnelID:         funnelIDs[0],
		BotID:            botID,
		TelegramUserID:   msg.From.ID,
		TelegramUsername: msg.From.Username,
		TelegramName:     msg.From.FullName(),
		Metadata:         models.LinkMetadata{LinkedVia: models.LINKED_VIA_START_COMMAND},
	})
	if err != nil {
		log.Errorf("[Webhook] /start link for visitor %s failed: %v", visitorID, err)
		return
	}

	sendWelcomeByID(ctx, linkID)
}

// processJoin is the shared join path for chat_member updates and approved
// join requests: attribute, link, convert, welcome, notify.
func processJoin(ctx context.Context, botID uint, invite *telegram.ChatInviteLink, user *telegram.User, chat *telegram.Chat, linkedVia string, requiresApproval bool) {
	inviteName := ""
	inviteURL := ""
	if invite != nil {
		inviteName = invite.Name
		inviteURL = invite.InviteLink
	}

	result, err := resolver.Resolve(attribution.Request{
		InviteName:     inviteName,
		TelegramUserID: user.ID,
		BotID:          botID,
	})
	if err != nil {
		log.Errorf("[Webhook] Attribution for user %d failed: %v", user.ID, err)
	}

	unattributed := false
	var visitorID string
	var funnelID uint
	if result != nil {
		visitorID = result.VisitorID
		funnelID = result.FunnelID
	} else {
		// Keep the join anyway: an unattributed member is still a member.
		unattributed = true
		visitorID = fallbackVisitorID(user.ID)
		funnelIDs, err := repository.GetGlobalRepositories().Funnel.GetIDsByBot(botID)
		if err != nil || len(funnelIDs) == 0 {
			log.Warnf("[Webhook] Join from user %d but bot %d has no funnels, dropping", user.ID, botID)
			return
		}
		funnelID = funnelIDs[0]
	}

	var chatID int64
	var chatTitle string
	if chat != nil {
		chatID = chat.ID
		chatTitle = chat.Title
	}

	linkID, err := linker.Link(attribution.LinkParams{
		VisitorID:        visitorID,
		FunnelID:         funnelID,
		BotID:            botID,
		TelegramUserID:   user.ID,
		TelegramUsername: user.Username,
		TelegramName:     user.FullName(),
		Metadata: models.LinkMetadata{
			InviteLink:       inviteURL,
			InviteName:       inviteName,
			LinkedVia:        linkedVia,
			RequiresApproval: requiresApproval,
			ChatID:           chatID,
			ChatTitle:        chatTitle,
		},
	})
	if err != nil {
		log.Errorf("[Webhook] Linking visitor %s failed: %v", visitorID, err)
	}

	if err := conversions.ProcessJoin(ctx, conversion.JoinParams{
		VisitorID:        visitorID,
		FunnelID:         funnelID,
		TelegramUserID:   user.ID,
		TelegramUsername: user.Username,
		TelegramName:     user.FullName(),
		ChatID:           chatID,
		ChatTitle:        chatTitle,
		InviteName:       inviteName,
		Source:           linkedVia,
		Unattributed:     unattributed,
	}); err != nil {
		log.Errorf("[Webhook] Join processing for visitor %s failed: %v", visitorID, err)
	}

	if linkID != 0 {
		sendWelcomeByID(ctx, linkID)
	}

	enqueueNotification(funnelID, models.PUSHCUT_EVENT_MEMBER_JOIN, map[string]string{
		"first_name": user.FirstName,
		"username":   user.Username,
		"channel":    chatTitle,
		"visitor_id": visitorID,
	})
}

func sendWelcomeByID(ctx context.Context, linkID uint) {
	link, err := repository.GetGlobalRepositories().TelegramLink.GetByID(linkID)
	if err != nil || link == nil {
		log.Errorf("[Webhook] Could not load link %d for welcome: %v", linkID, err)
		return
	}
	if err := welcomes.Send(ctx, link); err != nil {
		log.Errorf("[Webhook] Welcome for link %d failed: %v", linkID, err)
	}
}

// notifyJoinRequest pushes the owner notification for a pending join request.
// The member_join push follows separately once the join itself is processed.
func notifyJoinRequest(funnelID uint, jr *telegram.ChatJoinRequest) {
	chatTitle := ""
	if jr.Chat != nil {
		chatTitle = jr.Chat.Title
	}
	enqueueNotification(funnelID, models.PUSHCUT_EVENT_JOIN_REQUEST, map[string]string{
		"first_name": jr.From.FirstName,
		"username":   jr.From.Username,
		"channel":    chatTitle,
	})
}

// fallbackVisitorID names members that joined without any attribution trail.
func fallbackVisitorID(telegramUserID int64) string {
	return "unknown_" + strconv.FormatInt(telegramUserID, 10)
}

// funnelForLeave resolves which funnel a leaving user belonged to, for the
// owner notification only.
func funnelForLeave(telegramUserID int64) uint {
	link, err := repository.GetGlobalRepositories().TelegramLink.GetLatestByTelegramUser(telegramUserID)
	if err != nil || link == nil {
		return 0
	}
	return link.FunnelID
}
