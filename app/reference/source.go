package reference

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/content-pilot/app/cfg"
)

const fetchTimeout = 30 * time.Second

// Entry is one inspiration item pulled from a direction's feed
type Entry struct {
	Title       string
	Link        string
	Summary     string
	PublishedAt *time.Time
}

// Source fetches inspiration material for topic selection and reference
// gathering. Feeds provide candidate titles; linked pages provide body text.
type Source struct {
	gofeedParser *gofeed.Parser
	extractor    *Extractor
	httpClient   *http.Client
	userAgent    string
}

func NewSource(httpClient *http.Client) *Source {
	c := cfg.Get()

	return &Source{
		gofeedParser: gofeed.NewParser(),
		extractor:    NewExtractor(),
		httpClient:   httpClient,
		userAgent:    c.UserAgent,
	}
}

// FetchEntries returns up to limit entries from the feed, newest first as
// the feed orders them. Entries without a title are skipped.
func (s *Source) FetchEntries(ctx context.Context, url string, limit int) ([]Entry, error) {
	data, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	parsed, err := s.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]Entry, 0, limit)
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		entry := Entry{
			Title:   title,
			Link:    item.Link,
			Summary: strings.TrimSpace(cmp.Or(item.Description, item.Content)),
		}
		if item.PublishedParsed != nil {
			entry.PublishedAt = item.PublishedParsed
		}

		entries = append(entries, entry)
		if len(entries) >= limit {
			break
		}
	}

	return entries, nil
}

// FetchPageText downloads a page and extracts its readable text
func (s *Source) FetchPageText(ctx context.Context, url string) (string, error) {
	data, err := s.fetch(ctx, url)
	if err != nil {
		return "", err
	}

	return s.extractor.Run(data)
}

func (s *Source) fetch(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
