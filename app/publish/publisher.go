package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/lysyi3m/content-pilot/app/cfg"
	"github.com/lysyi3m/content-pilot/app/database"
)

// Result is what one publish attempt reports back. A Success=false result
// with an error message is a platform-level rejection; transport problems
// surface as Go errors instead.
type Result struct {
	Success        bool
	ExternalURL    string
	ErrorMessage   string
	ScreenshotPath string
}

// Publisher pushes one article to the platform under one account. It must
// honor the context deadline and is not assumed idempotent: a timeout does
// not prove non-delivery, so retrying is an at-least-once choice.
type Publisher interface {
	Publish(ctx context.Context, article *database.Article, account *database.Account) (*Result, error)
}

// NewPublisher builds the configured publisher driver: "http" posts to an
// external publisher service, "dryrun" succeeds locally without touching
// any platform.
func NewPublisher(httpClient *http.Client) (Publisher, error) {
	c := cfg.Get()

	switch c.PublisherMode {
	case "dryrun":
		return &dryRunPublisher{}, nil
	case "http", "":
		if c.PublisherURL == "" {
			return nil, fmt.Errorf("publisher mode %q requires PUBLISHER_URL", c.PublisherMode)
		}
		return &httpPublisher{
			httpClient: httpClient,
			url:        c.PublisherURL,
			userAgent:  c.UserAgent,
		}, nil
	default:
		return nil, fmt.Errorf("unknown publisher mode %q", c.PublisherMode)
	}
}

type publishRequest struct {
	ArticleID string   `json:"article_id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Summary   string   `json:"summary,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Category  string   `json:"category,omitempty"`
	Account   string   `json:"account"`
	Profile   string   `json:"profile,omitempty"`
}

type publishResponse struct {
	Success        bool   `json:"success"`
	URL            string `json:"url"`
	Error          string `json:"error"`
	ScreenshotPath string `json:"screenshot_path"`
}

// httpPublisher delegates the platform interaction to an external service
// speaking a small JSON contract.
type httpPublisher struct {
	httpClient *http.Client
	url        string
	userAgent  string
}

func (p *httpPublisher) Publish(ctx context.Context, article *database.Article, account *database.Account) (*Result, error) {
	payload, err := json.Marshal(publishRequest{
		ArticleID: article.ID,
		Title:     article.Title,
		Content:   article.Content,
		Summary:   article.Summary,
		Tags:      article.Tags,
		Category:  article.Category,
		Account:   account.Name,
		Profile:   account.ProfileName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call publisher: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read publisher response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("publisher returned status %d", resp.StatusCode)
	}

	var decoded publishResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode publisher response: %w", err)
	}

	return &Result{
		Success:        decoded.Success,
		ExternalURL:    decoded.URL,
		ErrorMessage:   decoded.Error,
		ScreenshotPath: decoded.ScreenshotPath,
	}, nil
}

// dryRunPublisher accepts everything without side effects, for local
// development and pipeline tests.
type dryRunPublisher struct{}

func (p *dryRunPublisher) Publish(_ context.Context, article *database.Article, account *database.Account) (*Result, error) {
	slog.Info("Dry-run publish",
		"article_id", article.ID,
		"title", article.Title,
		"account", account.Name)

	return &Result{
		Success:     true,
		ExternalURL: fmt.Sprintf("dryrun://articles/%s", article.ID),
	}, nil
}
