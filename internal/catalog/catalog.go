// Package catalog loads the list of cards the bot draws from.
package catalog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Sentinel errors returned by Load. Both are fatal at startup.
var (
	ErrSourceMissing = errors.New("card source not found")
	ErrEmptyCatalog  = errors.New("card source has no cards")
)

// Source formats.
const (
	FormatText = "text"
	FormatFeed = "feed"
)

const maxBody = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source identifies where cards come from.
// Location is a file path or an http(s) URL.
type Source struct {
	Location string
	Format   string
}

// Loader reads card sources.
type Loader struct {
	client  HTTPClient
	timeout time.Duration
}

// NewLoader creates a Loader that fetches remote sources with client.
func NewLoader(client HTTPClient) *Loader {
	return &Loader{
		client:  client,
		timeout: 30 * time.Second,
	}
}

// Load reads the source and returns its cards, trimmed, without blank or
// comment lines, deduplicated in first-occurrence order.
func (l *Loader) Load(ctx context.Context, src Source) ([]string, error) {
	data, err := l.read(ctx, src.Location)
	if err != nil {
		return nil, err
	}

	var lines []string
	switch src.Format {
	case FormatFeed:
		lines, err = feedLines(data)
	case FormatText, "":
		lines, err = textLines(data)
	default:
		return nil, fmt.Errorf("unknown card format %q", src.Format)
	}
	if err != nil {
		return nil, err
	}

	cards := Clean(lines)
	if len(cards) == 0 {
		return nil, fmt.Errorf("%s: %w", src.Location, ErrEmptyCatalog)
	}
	return cards, nil
}

// Clean applies the catalog rules to raw lines.
func Clean(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	var cards []string
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		cards = append(cards, s)
	}
	return cards
}

func (l *Loader) read(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return l.fetch(ctx, location)
	}

	data, err := os.ReadFile(location) //nolint:gosec // operator-provided path
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", location, ErrSourceMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("read cards: %w", err)
	}
	return data, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "CardBot/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", url, ErrSourceMissing)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func textLines(data []byte) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxBody)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan cards: %w", err)
	}
	return lines, nil
}

func feedLines(data []byte) ([]string, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	lines := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		lines = append(lines, item.Title)
	}
	return lines, nil
}
