package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"card_bot/internal/model"
)

type jsonState struct {
	LastPostedDate *string              `json:"last_posted_date"`
	History        []model.HistoryEntry `json:"history"`
}

// jsonDocument is the on-disk shape as read. Entries are decoded one by
// one so a single bad entry does not discard the rest.
type jsonDocument struct {
	LastPostedDate *string           `json:"last_posted_date"`
	History        []json.RawMessage `json:"history"`
}

// JSON implements Storage as a single JSON document on disk.
type JSON struct {
	path string
}

// NewJSON returns a JSON store at path, creating the parent directory.
func NewJSON(path string) (*JSON, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	return &JSON{path: path}, nil
}

// Load reads the state file. A missing file yields an empty state.
// History entries that are not {"date": string, "card": string} objects
// are skipped; ErrCorrupt is returned only when the document itself
// cannot be decoded.
func (j *JSON) Load(_ context.Context) (*model.State, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", j.path, ErrCorrupt, err)
	}

	state := model.NewState()
	if doc.LastPostedDate != nil {
		state.LastPostedDate = *doc.LastPostedDate
	}
	for _, raw := range doc.History {
		var e model.HistoryEntry
		if err := json.Unmarshal(raw, &e); err != nil || e.Date == "" || e.Card == "" {
			continue
		}
		state.History = append(state.History, e)
	}
	return state, nil
}

// Save writes the state to a temporary file and renames it into place.
func (j *JSON) Save(_ context.Context, state *model.State) error {
	raw := jsonState{History: state.History}
	if raw.History == nil {
		raw.History = []model.HistoryEntry{}
	}
	if state.LastPostedDate != "" {
		raw.LastPostedDate = &state.LastPostedDate
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Close is a no-op; the file is only open during Load and Save.
func (j *JSON) Close() error {
	return nil
}
