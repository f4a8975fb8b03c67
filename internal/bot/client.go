package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"card_bot/internal/poster"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type reactionType struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

// Client adapts the Telegram Bot API to poster.Platform.
type Client struct {
	api telegramAPI
	log *slog.Logger

	mu    sync.Mutex
	chats map[int64]tgbotapi.Chat
}

var _ poster.Platform = (*Client)(nil)

// NewClient connects to Telegram with the given token.
func NewClient(token string, log *slog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("authorized", "username", api.Self.UserName)
	return newClient(api, log), nil
}

func newClient(api telegramAPI, log *slog.Logger) *Client {
	return &Client{
		api:   api,
		log:   log,
		chats: make(map[int64]tgbotapi.Chat),
	}
}

// ResolveChannel checks that the bot can see the channel, fetching it from
// Telegram only on the first call.
func (c *Client) ResolveChannel(_ context.Context, channelID int64) error {
	_, err := c.chat(channelID)
	return err
}

func (c *Client) chat(channelID int64) (tgbotapi.Chat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if chat, ok := c.chats[channelID]; ok {
		return chat, nil
	}
	chat, err := c.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: channelID}})
	if err != nil {
		return tgbotapi.Chat{}, fmt.Errorf("get chat: %w", err)
	}
	c.chats[channelID] = chat
	c.log.Debug("channel resolved", "chat_id", channelID, "title", chat.Title)
	return chat, nil
}

// Send posts an HTML message to the channel.
func (c *Client) Send(_ context.Context, channelID int64, text string) (poster.MessageRef, error) {
	msg := tgbotapi.NewMessage(channelID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := c.api.Send(msg)
	if err != nil {
		return poster.MessageRef{}, fmt.Errorf("send message: %w", err)
	}
	return poster.MessageRef{ChatID: channelID, MessageID: sent.MessageID}, nil
}

// React sets an emoji reaction on a message. The library has no typed
// config for setMessageReaction, so the raw endpoint is used.
func (c *Client) React(_ context.Context, msg poster.MessageRef, emoji string) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", msg.ChatID)
	params.AddNonZero("message_id", msg.MessageID)
	if err := params.AddInterface("reaction", []reactionType{{Type: "emoji", Emoji: emoji}}); err != nil {
		return fmt.Errorf("encode reaction: %w", err)
	}

	if _, err := c.api.MakeRequest("setMessageReaction", params); err != nil {
		return fmt.Errorf("set reaction: %w", err)
	}
	return nil
}

// RegisterCommands publishes the command list shown in Telegram clients.
func (c *Client) RegisterCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: cmdHealth, Description: "Vérifie que Le Cartomancien fonctionne."},
		tgbotapi.BotCommand{Command: cmdCard, Description: "Force l'affichage d'une carte (anti-doublon actif)."},
	)
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	return nil
}

func (c *Client) reply(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := c.api.Send(msg); err != nil {
		c.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}
