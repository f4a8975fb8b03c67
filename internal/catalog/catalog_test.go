package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func writeCards(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cards.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write cards: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr error
	}{
		{
			name:    "plain lines",
			content: "Alpha\nBeta\nGamma\n",
			want:    []string{"Alpha", "Beta", "Gamma"},
		},
		{
			name:    "comments blanks and whitespace",
			content: "# header\n\n  Alpha  \n\t# indented comment\nBeta\r\n",
			want:    []string{"Alpha", "Beta"},
		},
		{
			name:    "duplicates keep first occurrence order",
			content: "Gamma\nAlpha\nGamma\nBeta\nAlpha\n",
			want:    []string{"Gamma", "Alpha", "Beta"},
		},
		{
			name:    "hash inside a card is kept",
			content: "Carte #1\n",
			want:    []string{"Carte #1"},
		},
		{
			name:    "empty file",
			content: "",
			wantErr: ErrEmptyCatalog,
		},
		{
			name:    "only comments",
			content: "# one\n   \n# two\n",
			wantErr: ErrEmptyCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(&mockTransport{})
			got, err := l.Load(context.Background(), Source{Location: writeCards(t, tt.content), Format: FormatText})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadFixture(t *testing.T) {
	l := NewLoader(&mockTransport{})
	got, err := l.Load(context.Background(), Source{Location: "../../testdata/cards.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Alpha", "Beta", "Gamma", "Épée de feu"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	l := NewLoader(&mockTransport{})
	_, err := l.Load(context.Background(), Source{Location: filepath.Join(t.TempDir(), "nope.txt")})
	if !errors.Is(err, ErrSourceMissing) {
		t.Fatalf("expected ErrSourceMissing, got %v", err)
	}
}

func TestLoadRemote(t *testing.T) {
	xml := loadFixture(t, "../../testdata/cards.xml")

	tests := []struct {
		name      string
		transport *mockTransport
		format    string
		want      []string
		wantErr   error
		anyErr    bool
	}{
		{
			name:      "plain text over http",
			transport: &mockTransport{body: "Alpha\n# skip\nBeta\n", statusCode: 200},
			format:    FormatText,
			want:      []string{"Alpha", "Beta"},
		},
		{
			name:      "feed item titles",
			transport: &mockTransport{body: xml, statusCode: 200},
			format:    FormatFeed,
			want:      []string{"Alpha", "Beta", "Gamma"},
		},
		{
			name:      "not found",
			transport: &mockTransport{statusCode: 404},
			format:    FormatText,
			wantErr:   ErrSourceMissing,
		},
		{
			name:      "server error",
			transport: &mockTransport{statusCode: 500},
			format:    FormatText,
			anyErr:    true,
		},
		{
			name:      "transport error",
			transport: &mockTransport{err: errors.New("connection refused")},
			format:    FormatText,
			anyErr:    true,
		},
		{
			name:      "invalid feed",
			transport: &mockTransport{body: "not xml", statusCode: 200},
			format:    FormatFeed,
			anyErr:    true,
		},
		{
			name:      "empty remote list",
			transport: &mockTransport{body: "\n\n# nothing\n", statusCode: 200},
			format:    FormatText,
			wantErr:   ErrEmptyCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(tt.transport)
			got, err := l.Load(context.Background(), Source{Location: "https://cards.example.com/list", Format: tt.format})
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			case tt.anyErr:
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadUnknownFormat(t *testing.T) {
	l := NewLoader(&mockTransport{})
	_, err := l.Load(context.Background(), Source{Location: writeCards(t, "Alpha\n"), Format: "csv"})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}
