// Package history keeps the posted-card history and the last scheduled
// post date, persisting every change through a storage.Storage.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"card_bot/internal/model"
	"card_bot/internal/picker"
	"card_bot/internal/storage"
)

// History is the single writer of the bot state.
type History struct {
	mu    sync.Mutex
	state *model.State
	store storage.Storage
	log   *slog.Logger
}

// Open loads the state from store. Load failures, including corrupt
// content, are logged and replaced by an empty state.
func Open(ctx context.Context, store storage.Storage, log *slog.Logger) *History {
	state, err := store.Load(ctx)
	if err != nil {
		log.Warn("load history, starting empty", "error", err)
		state = model.NewState()
	}
	return &History{state: state, store: store, log: log}
}

// LastPostedDate returns the date of the last scheduled post, or "".
func (h *History) LastPostedDate() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.LastPostedDate
}

// RecentCards returns the cards posted within days of now.
func (h *History) RecentCards(now time.Time, days int) map[string]struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return picker.Recent(h.state.History, now, days)
}

// Snapshot returns a copy of the current state.
func (h *History) Snapshot() *model.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Clone()
}

// Record appends card under today's date, prunes old entries and persists.
func (h *History) Record(ctx context.Context, now time.Time, card string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state.History = append(h.state.History, model.HistoryEntry{Date: model.DateOf(now), Card: card})
	h.state.History = Prune(h.state.History, now, model.RetentionDays)

	if err := h.store.Save(ctx, h.state); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	h.log.Debug("history recorded", "card", card, "entries", len(h.state.History))
	return nil
}

// MarkPosted sets the last scheduled post date to today and persists.
func (h *History) MarkPosted(ctx context.Context, now time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state.LastPostedDate = model.DateOf(now)
	if err := h.store.Save(ctx, h.state); err != nil {
		return fmt.Errorf("save last posted date: %w", err)
	}
	return nil
}

// Prune drops entries older than days before now and entries whose date
// cannot be parsed. The order of the remaining entries is kept.
func Prune(entries []model.HistoryEntry, now time.Time, days int) []model.HistoryEntry {
	cutoff := model.Midnight(now).AddDate(0, 0, -days)

	kept := make([]model.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		d, err := e.Day()
		if err != nil || d.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
