package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.client.api.Request(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	var userID int64
	var username string
	if cb.From != nil {
		userID, username = cb.From.ID, cb.From.UserName
	}
	b.log.Info("callback",
		"action", cb.Data,
		"chat_id", chatID,
		"user_id", userID,
		"username", username,
	)

	if cb.Data != cmdCard {
		return
	}
	if !b.inChannel(chatID, cb.Message.MessageID, noticeCard) {
		return
	}
	b.handleCard(ctx, chatID)
}
