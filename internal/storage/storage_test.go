package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"card_bot/internal/model"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestJSON(t *testing.T) (*JSON, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "state.json")
	s, err := NewJSON(path)
	if err != nil {
		t.Fatalf("new json: %v", err)
	}
	return s, path
}

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	js, _ := newTestJSON(t)
	return map[string]Storage{
		"sqlite": newTestDB(t),
		"json":   js,
	}
}

func TestLoadEmpty(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Load(context.Background())
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff(model.NewState(), got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		state *model.State
	}{
		{
			name: "with last posted date",
			state: &model.State{
				LastPostedDate: "2026-03-15",
				History: []model.HistoryEntry{
					{Date: "2026-03-14", Card: "Alpha"},
					{Date: "2026-03-15", Card: "Beta"},
					{Date: "2026-03-15", Card: "Épée de feu & <co>"},
				},
			},
		},
		{
			name:  "no scheduled post yet",
			state: &model.State{History: []model.HistoryEntry{{Date: "2026-03-14", Card: "Gamma"}}},
		},
		{
			name:  "empty",
			state: model.NewState(),
		},
	}

	for name, s := range backends(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				ctx := context.Background()
				if err := s.Save(ctx, tt.state); err != nil {
					t.Fatalf("save: %v", err)
				}
				got, err := s.Load(ctx)
				if err != nil {
					t.Fatalf("load: %v", err)
				}
				if diff := cmp.Diff(tt.state, got); diff != "" {
					t.Errorf("round trip mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestSaveReplacesHistory(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := &model.State{
				LastPostedDate: "2026-03-14",
				History:        []model.HistoryEntry{{Date: "2026-03-14", Card: "Alpha"}, {Date: "2026-03-15", Card: "Beta"}},
			}
			if err := s.Save(ctx, first); err != nil {
				t.Fatalf("save first: %v", err)
			}
			second := &model.State{History: []model.HistoryEntry{{Date: "2026-03-15", Card: "Beta"}}}
			if err := s.Save(ctx, second); err != nil {
				t.Fatalf("save second: %v", err)
			}

			got, err := s.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff(second, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{{{ not json"},
		{name: "wrong shape", content: `{"last_posted_date": 5, "history": "nope"}`},
		{name: "top-level array", content: `[1, 2, 3]`},
		{name: "truncated", content: `{"last_posted_date": "2026-03-15", "history": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, path := newTestJSON(t)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := s.Load(context.Background())
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestJSONLegacyFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *model.State
	}{
		{
			name: "null date, unparseable date kept",
			content: `{
  "last_posted_date": null,
  "history": [
    {"date": "2026-03-10", "card": "Alpha"},
    {"date": "garbage", "card": "Beta"}
  ]
}`,
			want: &model.State{History: []model.HistoryEntry{
				{Date: "2026-03-10", Card: "Alpha"},
				{Date: "garbage", Card: "Beta"},
			}},
		},
		{
			name:    "mistyped card skipped",
			content: `{"last_posted_date":"2026-03-15","history":[{"date":"2026-03-14","card":"Alpha"},{"date":"2026-03-15","card":5}]}`,
			want: &model.State{
				LastPostedDate: "2026-03-15",
				History:        []model.HistoryEntry{{Date: "2026-03-14", Card: "Alpha"}},
			},
		},
		{
			name:    "non-object entries skipped",
			content: `{"last_posted_date":"2026-03-15","history":[5,"Beta",null,[],{"date":"2026-03-14","card":"Alpha"}]}`,
			want: &model.State{
				LastPostedDate: "2026-03-15",
				History:        []model.HistoryEntry{{Date: "2026-03-14", Card: "Alpha"}},
			},
		},
		{
			name:    "entries missing fields skipped",
			content: `{"last_posted_date":null,"history":[{"date":"2026-03-14"},{"card":"Beta"},{"date":"2026-03-15","card":"Gamma"}]}`,
			want:    &model.State{History: []model.HistoryEntry{{Date: "2026-03-15", Card: "Gamma"}}},
		},
		{
			name:    "no history key",
			content: `{"last_posted_date":"2026-03-15"}`,
			want:    &model.State{LastPostedDate: "2026-03-15", History: []model.HistoryEntry{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, path := newTestJSON(t)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}

			got, err := s.Load(context.Background())
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONWritesNullDate(t *testing.T) {
	s, path := newTestJSON(t)
	if err := s.Save(context.Background(), model.NewState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path) //nolint:gosec // test temp dir
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "{\n  \"last_posted_date\": null,\n  \"history\": []\n}"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("file mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteFileReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bot.db")

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	state := &model.State{LastPostedDate: "2026-03-15", History: []model.HistoryEntry{{Date: "2026-03-15", Card: "Alpha"}}}
	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = s.Close()

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(state, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}
