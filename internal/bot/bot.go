// Package bot connects the card poster to Telegram and handles commands.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"card_bot/internal/config"
	"card_bot/internal/poster"
)

const (
	cmdHealth = "health"
	cmdCard   = "carte"
)

const (
	noticeHealth = "Je fonctionne uniquement dans le salon de la carte du jour 😉"
	noticeCard   = "Va dans le salon de la carte du jour pour utiliser cette commande 😉"
)

// Poster posts a card on demand.
type Poster interface {
	Post(ctx context.Context, now time.Time, forced bool) (poster.Result, error)
	CardCount() int
	NoRepeatDays() int
}

// Status reports scheduling information for /health.
type Status interface {
	LastPostedDate() string
	Next(now time.Time) time.Time
}

// Bot handles /health and /carte in the configured channel.
type Bot struct {
	client *Client
	poster Poster
	status Status
	cfg    *config.Config
	log    *slog.Logger
	// now is in the configured zone so forced posts use the local date.
	now    func() time.Time
}

// New creates a Bot.
func New(client *Client, p Poster, status Status, cfg *config.Config, log *slog.Logger) *Bot {
	loc := cfg.Location()
	return &Bot{
		client: client,
		poster: p,
		status: status,
		cfg:    cfg,
		log:    log,
		now:    func() time.Time { return time.Now().In(loc) },
	}
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.client.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.client.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				b.log.Warn("update channel closed")
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	// Commands arrive as messages in groups and as channel posts in channels.
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	b.handleCommand(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID)

	switch cmd {
	case cmdHealth:
		if !b.inChannel(chatID, msg.MessageID, noticeHealth) {
			return
		}
		b.handleHealth(chatID)
	case cmdCard:
		if !b.inChannel(chatID, msg.MessageID, noticeCard) {
			return
		}
		b.handleCard(ctx, chatID)
	}
}

// inChannel replies with notice and returns false outside the target
// channel. Telegram has no ephemeral replies, so the notice answers the
// invoking message.
func (b *Bot) inChannel(chatID int64, replyTo int, notice string) bool {
	if b.cfg.IsTargetChannel(chatID) {
		return true
	}
	b.client.reply(chatID, replyTo, notice)
	return false
}

func (b *Bot) handleHealth(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, FormatHealth(b.poster.CardCount(), b.poster.NoRepeatDays(),
		b.status.LastPostedDate(), b.status.Next(b.now())))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧩 Tirer une carte", cmdCard),
		),
	)
	if _, err := b.client.api.Send(msg); err != nil {
		b.log.Error("send health", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCard(ctx context.Context, chatID int64) {
	b.client.reply(chatID, 0, "🧩 Le Cartomancien consulte les cartes...")

	res, err := b.poster.Post(ctx, b.now(), true)
	if err != nil {
		b.log.Error("forced post", "chat_id", chatID, "error", err)
		b.client.reply(chatID, 0, fmt.Sprintf("Impossible de tirer une carte : %v", err))
		return
	}
	if len(res.FailedReactions) > 0 {
		b.log.Warn("reactions not added", "card", res.Card, "emojis", res.FailedReactions)
	}
}

// FormatHealth formats the /health reply.
func FormatHealth(cards, noRepeatDays int, lastPosted string, next time.Time) string {
	text := fmt.Sprintf("🧩 En ligne ✅ | %d cartes | Anti-doublon: %d jours", cards, noRepeatDays)
	if lastPosted != "" {
		text += fmt.Sprintf("\nDernière carte programmée : %s", lastPosted)
	}
	text += fmt.Sprintf("\nProchaine carte : %s", next.Format("2006-01-02 15:04 MST"))
	return text
}
