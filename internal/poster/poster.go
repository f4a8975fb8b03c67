// Package poster sends the card of the day and records it in history.
package poster

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"card_bot/internal/history"
)

// VoteReactions are added to every posted card, in order.
var VoteReactions = []string{"👍", "👎", "🔥"}

// MessageRef identifies a sent message.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Result describes a completed post. FailedReactions lists the reactions
// that could not be added; they never fail the post.
type Result struct {
	Card            string
	Message         MessageRef
	FailedReactions []string
}

// Platform is the chat platform as seen by the poster.
type Platform interface {
	ResolveChannel(ctx context.Context, channelID int64) error
	Send(ctx context.Context, channelID int64, text string) (MessageRef, error)
	React(ctx context.Context, msg MessageRef, emoji string) error
}

// Picker chooses a card from the catalog given the recent set.
type Picker interface {
	Pick(catalog []string, recent map[string]struct{}) string
}

// Poster posts cards to a single channel. Posts are serialized so that two
// concurrent triggers never pick from the same history snapshot.
type Poster struct {
	mu           sync.Mutex
	platform     Platform
	history      *history.History
	picker       Picker
	cards        []string
	channelID    int64
	noRepeatDays int
	log          *slog.Logger
}

// New creates a Poster.
func New(platform Platform, h *history.History, p Picker, cards []string, channelID int64, noRepeatDays int, log *slog.Logger) *Poster {
	return &Poster{
		platform:     platform,
		history:      h,
		picker:       p,
		cards:        cards,
		channelID:    channelID,
		noRepeatDays: noRepeatDays,
		log:          log,
	}
}

// Post picks a card, sends it to the channel, adds vote reactions and
// records it. Channel, send and persistence failures are returned;
// reaction failures are only reported in the Result.
func (p *Poster) Post(ctx context.Context, now time.Time, forced bool) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.platform.ResolveChannel(ctx, p.channelID); err != nil {
		return Result{}, fmt.Errorf("resolve channel %d: %w", p.channelID, err)
	}

	res := Result{Card: p.picker.Pick(p.cards, p.history.RecentCards(now, p.noRepeatDays))}

	msg, err := p.platform.Send(ctx, p.channelID, FormatCard(res.Card, p.noRepeatDays))
	if err != nil {
		return Result{}, fmt.Errorf("send card: %w", err)
	}
	res.Message = msg

	for _, emoji := range VoteReactions {
		if err := p.platform.React(ctx, msg, emoji); err != nil {
			p.log.Debug("add reaction", "emoji", emoji, "message_id", msg.MessageID, "error", err)
			res.FailedReactions = append(res.FailedReactions, emoji)
		}
	}

	if err := p.history.Record(ctx, now, res.Card); err != nil {
		return res, err
	}

	p.log.Info("card posted", "card", res.Card, "forced", forced, "message_id", msg.MessageID)
	return res, nil
}

// CardCount returns the catalog size.
func (p *Poster) CardCount() int {
	return len(p.cards)
}

// NoRepeatDays returns the anti-repeat window.
func (p *Poster) NoRepeatDays() int {
	return p.noRepeatDays
}

// FormatCard formats a card as an HTML Telegram message.
func FormatCard(card string, noRepeatDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧩 <b>Carte du jour : %s</b>\n", html.EscapeString(card))
	b.WriteString("🗳️ Votez : 👍 jouable | 👎 dépassée | 🔥 iconique\n")
	fmt.Fprintf(&b, "⏳ Anti-doublon : %d jours", noRepeatDays)
	return b.String()
}
