package reference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/lysyi3m/content-pilot/app/cfg"
)

func setupTestConfig() {
	// Clear os.Args to prevent config parsing from failing
	oldArgs := os.Args
	os.Args = []string{"test"}
	defer func() { os.Args = oldArgs }()

	cfg.Load()
}

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Hot Questions</title>
	<link>https://example.com</link>
	<item>
		<title>How do goroutines differ from threads?</title>
		<link>https://example.com/q/1</link>
		<description>A discussion of scheduling.</description>
		<pubDate>Mon, 01 Jul 2024 10:00:00 GMT</pubDate>
	</item>
	<item>
		<title></title>
		<link>https://example.com/q/2</link>
	</item>
	<item>
		<title>What makes channels composable?</title>
		<link>https://example.com/q/3</link>
	</item>
	<item>
		<title>Why prefer context cancellation?</title>
		<link>https://example.com/q/4</link>
	</item>
</channel>
</rss>`

func TestFetchEntries(t *testing.T) {
	setupTestConfig()

	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	source := NewSource(server.Client())

	entries, err := source.FetchEntries(context.Background(), server.URL, 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// The untitled item is skipped
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Title != "How do goroutines differ from threads?" {
		t.Errorf("Unexpected first entry title: %s", entries[0].Title)
	}
	if entries[0].Summary != "A discussion of scheduling." {
		t.Errorf("Unexpected first entry summary: %s", entries[0].Summary)
	}
	if entries[0].PublishedAt == nil {
		t.Error("Expected first entry to carry a published date")
	}
	if entries[1].PublishedAt != nil {
		t.Error("Expected undated entry to have nil published date")
	}

	if userAgent == "" {
		t.Error("Expected User-Agent header to be set")
	}
}

func TestFetchEntriesRespectsLimit(t *testing.T) {
	setupTestConfig()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	source := NewSource(server.Client())

	entries, err := source.FetchEntries(context.Background(), server.URL, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(entries))
	}
}

func TestFetchEntriesHTTPError(t *testing.T) {
	setupTestConfig()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewSource(server.Client())

	if _, err := source.FetchEntries(context.Background(), server.URL, 10); err == nil {
		t.Error("Expected error for HTTP 500")
	}
}

func TestFetchEntriesInvalidFeed(t *testing.T) {
	setupTestConfig()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a feed"))
	}))
	defer server.Close()

	source := NewSource(server.Client())

	if _, err := source.FetchEntries(context.Background(), server.URL, 10); err == nil {
		t.Error("Expected error for unparseable feed")
	}
}

func TestFetchPageText(t *testing.T) {
	setupTestConfig()

	page := `<!DOCTYPE html>
	<html>
	<head><title>Answer</title></head>
	<body>
		<article>
			<p>Goroutines are multiplexed onto OS threads by the runtime scheduler, which makes them cheap enough to use per request.</p>
			<p>Because blocking a goroutine does not block the thread, servers can keep a simple synchronous programming model at scale.</p>
			<p>The runtime grows and shrinks stacks on demand, so the per goroutine footprint starts at a few kilobytes instead of megabytes.</p>
		</article>
	</body>
	</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	source := NewSource(server.Client())

	text, err := source.FetchPageText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if text == "" {
		t.Error("Expected extracted text")
	}
}
