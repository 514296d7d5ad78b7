package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/content-pilot/app/ai"
	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/events"
)

// completion scripts one fake model response
type completion struct {
	output string
	err    error
}

type clientCall struct {
	system string
	prompt string
}

// MockClient implements ai.Client with scripted completions consumed in
// order. The last scripted completion repeats once the queue drains.
type MockClient struct {
	name  string
	queue []completion
	calls []clientCall
}

// Ensure MockClient implements the ai.Client interface
var _ ai.Client = (*MockClient)(nil)

func (m *MockClient) Name() string                     { return m.name }
func (m *MockClient) Model() string                    { return "mock-model" }
func (m *MockClient) Health(ctx context.Context) error { return nil }

func (m *MockClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.calls = append(m.calls, clientCall{system: system, prompt: prompt})
	if len(m.queue) == 0 {
		return "", fmt.Errorf("mock client %s has no scripted completion", m.name)
	}
	next := m.queue[0]
	if len(m.queue) > 1 {
		m.queue = m.queue[1:]
	}
	return next.output, next.err
}

// MockRegistry implements the provider registry with a primary client and
// an optional fallback
type MockRegistry struct {
	primary    *MockClient
	fallback   *MockClient
	resolveErr error
}

func (m *MockRegistry) Resolve(preferred string) (ai.Client, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.primary, nil
}

func (m *MockRegistry) Next(after string) (ai.Client, bool) {
	if m.fallback == nil {
		return nil, false
	}
	return m.fallback, true
}

// MockArticleRepository implements a simple mock for testing
type MockArticleRepository struct {
	created   []database.Article
	createErr error
}

// Ensure MockArticleRepository implements the repository interface
var _ database.ArticleRepository = (*MockArticleRepository)(nil)

func (m *MockArticleRepository) CreateArticle(a *database.Article) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	id := fmt.Sprintf("article-%d", len(m.created)+1)
	stored := *a
	stored.ID = id
	m.created = append(m.created, stored)
	return id, nil
}

func (m *MockArticleRepository) GetArticle(id string) (*database.Article, error) {
	return nil, nil
}

func (m *MockArticleRepository) GetArticles(status, directionID string, limit, offset int) ([]database.Article, error) {
	return nil, nil
}

func (m *MockArticleRepository) GetArticlesBySeries(seriesID string) ([]database.Article, error) {
	return nil, nil
}

func (m *MockArticleRepository) GetArticleStats() (map[string]int, error) {
	return map[string]int{}, nil
}

func (m *MockArticleRepository) UpdateArticleDraft(id, title, content, summary string, tags []string, wordCount int) error {
	return nil
}

func (m *MockArticleRepository) SetArticleStatus(id, status string) error {
	return nil
}

func (m *MockArticleRepository) MarkArticlePublished(id, url string, publishedAt time.Time) error {
	return nil
}

func (m *MockArticleRepository) DeleteArticle(id string) error {
	return nil
}

type stageRecord struct {
	stage  string
	cursor int
}

// MockStoryRepository implements a simple mock for testing
type MockStoryRepository struct {
	jobs        []database.StoryJob
	stages      []stageRecord
	lastUpdate  database.StoryJob
	doneID      string
	doneArticle string
	failedID    string
	failedMsg   string
}

// Ensure MockStoryRepository implements the repository interface
var _ database.StoryRepository = (*MockStoryRepository)(nil)

func (m *MockStoryRepository) CreateJob(j *database.StoryJob) (string, error) {
	id := fmt.Sprintf("job-%d", len(m.jobs)+1)
	stored := *j
	stored.ID = id
	m.jobs = append(m.jobs, stored)
	return id, nil
}

func (m *MockStoryRepository) GetJob(id string) (*database.StoryJob, error) {
	return nil, nil
}

func (m *MockStoryRepository) UpdateStage(id, stage string, cursor int, elementsJSON, outlineJSON, summariesJSON string) error {
	m.stages = append(m.stages, stageRecord{stage: stage, cursor: cursor})
	m.lastUpdate = database.StoryJob{
		ID:            id,
		Stage:         stage,
		ChapterCursor: cursor,
		ElementsJSON:  elementsJSON,
		OutlineJSON:   outlineJSON,
		SummariesJSON: summariesJSON,
	}
	return nil
}

func (m *MockStoryRepository) MarkJobDone(id, articleID string) error {
	m.doneID = id
	m.doneArticle = articleID
	return nil
}

func (m *MockStoryRepository) MarkJobFailed(id, message string) error {
	m.failedID = id
	m.failedMsg = message
	return nil
}

func (m *MockStoryRepository) FailInterruptedJobs(message string) (int, error) {
	return 0, nil
}

func newTestGenerator(registry providerRegistry, articles *MockArticleRepository, stories *MockStoryRepository) *Generator {
	return &Generator{
		registry:    registry,
		articleRepo: articles,
		storyRepo:   stories,
		bus:         events.NewBus(0, 0),
		stageDelay:  time.Millisecond,
	}
}

func transientError(provider string) error {
	return &ai.ProviderError{Provider: provider, StatusCode: 429, Message: "rate limited", Transient: true}
}

func permanentError(provider string) error {
	return &ai.ProviderError{Provider: provider, StatusCode: 401, Message: "invalid key", Transient: false}
}

const draftJSON = `{
	"title": "Why Small Harbors Outlast Big Ports",
	"content": "## The quiet advantage\n\nSmall harbors adapt faster than their giant neighbors.\n\n---\n\nWhat would you fix first?",
	"summary": "Small harbors survive by adapting faster.",
	"tags": ["harbors", "logistics", "coastal towns", "trade", "infrastructure"]
}`

func testDirection(mode string) *database.ContentDirection {
	return &database.ContentDirection{
		ID:        "dir-1",
		Name:      "Coastal economics",
		Keywords:  "harbors, shipping",
		Mode:      mode,
		Style:     "analytical",
		WordCount: 1200,
	}
}

func TestRunSingleStoresDraft(t *testing.T) {
	client := &MockClient{name: "openai", queue: []completion{{output: draftJSON}}}
	registry := &MockRegistry{primary: client}
	articles := &MockArticleRepository{}

	gen := newTestGenerator(registry, articles, &MockStoryRepository{})

	created := gen.bus.Subscribe(events.EventArticleCreated)
	defer gen.bus.Unsubscribe(created)

	result, err := gen.Run(context.Background(), &Request{
		Direction: testDirection(database.ModeSingle),
		Topic:     "Why small harbors outlast big ports",
	})
	if err != nil {
		t.Fatalf("Expected run to succeed, got %v", err)
	}

	if result.Planned != 1 {
		t.Errorf("Expected 1 planned article, got %d", result.Planned)
	}
	if len(result.Articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(result.Articles))
	}
	if len(articles.created) != 1 {
		t.Fatalf("Expected 1 stored article, got %d", len(articles.created))
	}

	article := articles.created[0]
	if article.Status != database.ArticleStatusDraft {
		t.Errorf("Expected status draft, got %q", article.Status)
	}
	if article.Title != "Why Small Harbors Outlast Big Ports" {
		t.Errorf("Unexpected title: %q", article.Title)
	}
	if article.Provider != "openai" {
		t.Errorf("Expected provider openai, got %q", article.Provider)
	}
	if article.Category != "Coastal economics" {
		t.Errorf("Expected category from direction name, got %q", article.Category)
	}
	if article.DirectionID != "dir-1" {
		t.Errorf("Expected direction ID dir-1, got %q", article.DirectionID)
	}
	if article.WordCount == 0 {
		t.Error("Expected a non-zero word count")
	}
	if len(article.Tags) != 5 {
		t.Errorf("Expected 5 tags, got %d", len(article.Tags))
	}

	select {
	case event := <-created:
		if event.EntityID != article.ID {
			t.Errorf("Expected event for %s, got %s", article.ID, event.EntityID)
		}
		if event.Status != database.ArticleStatusDraft {
			t.Errorf("Expected event status draft, got %q", event.Status)
		}
	case <-time.After(time.Second):
		t.Error("Expected an article created event")
	}
}

func TestRunSinglePassesTopicAndStyle(t *testing.T) {
	client := &MockClient{name: "openai", queue: []completion{{output: draftJSON}}}
	registry := &MockRegistry{primary: client}

	gen := newTestGenerator(registry, &MockArticleRepository{}, &MockStoryRepository{})

	direction := testDirection(database.ModeSingle)
	direction.AntiDetectLevel = 2

	_, err := gen.Run(context.Background(), &Request{
		Direction:  direction,
		Topic:      "The hidden cost of container gigantism",
		References: []Reference{{Title: "Port report", Content: "Throughput fell in 2024."}},
	})
	if err != nil {
		t.Fatalf("Expected run to succeed, got %v", err)
	}

	if len(client.calls) != 1 {
		t.Fatalf("Expected 1 completion call, got %d", len(client.calls))
	}

	call := client.calls[0]
	if !strings.Contains(call.prompt, "The hidden cost of container gigantism") {
		t.Error("Expected the topic in the user prompt")
	}
	if !strings.Contains(call.prompt, styleDescriptions["analytical"]) {
		t.Error("Expected the style description in the user prompt")
	}
	if !strings.Contains(call.prompt, "about 1200 words") {
		t.Error("Expected the target length in the user prompt")
	}
	if !strings.Contains(call.prompt, "Port report") {
		t.Error("Expected the reference material in the user prompt")
	}
	if !strings.Contains(call.system, "Humanized writing rules") {
		t.Error("Expected the level 2 humanizing rules in the system prompt")
	}
}

func TestRunFallsBackOnTransientError(t *testing.T) {
	primary := &MockClient{name: "openai", queue: []completion{{err: transientError("openai")}}}
	fallback := &MockClient{name: "deepseek", queue: []completion{{output: draftJSON}}}
	registry := &MockRegistry{primary: primary, fallback: fallback}
	articles := &MockArticleRepository{}

	gen := newTestGenerator(registry, articles, &MockStoryRepository{})

	_, err := gen.Run(context.Background(), &Request{
		Direction: testDirection(database.ModeSingle),
		Topic:     "Fallback topic",
	})
	if err != nil {
		t.Fatalf("Expected run to succeed via fallback, got %v", err)
	}

	if len(primary.calls) != 1 {
		t.Errorf("Expected 1 primary call, got %d", len(primary.calls))
	}
	if len(fallback.calls) != 1 {
		t.Errorf("Expected 1 fallback call, got %d", len(fallback.calls))
	}
	if articles.created[0].Provider != "deepseek" {
		t.Errorf("Expected fallback provider recorded, got %q", articles.created[0].Provider)
	}
}

func TestRunDoesNotFallBackOnPermanentError(t *testing.T) {
	primary := &MockClient{name: "openai", queue: []completion{{err: permanentError("openai")}}}
	fallback := &MockClient{name: "deepseek", queue: []completion{{output: draftJSON}}}
	registry := &MockRegistry{primary: primary, fallback: fallback}
	articles := &MockArticleRepository{}

	gen := newTestGenerator(registry, articles, &MockStoryRepository{})

	_, err := gen.Run(context.Background(), &Request{
		Direction: testDirection(database.ModeSingle),
		Topic:     "Doomed topic",
	})
	if err == nil {
		t.Fatal("Expected a permanent provider error to fail the run")
	}

	if len(fallback.calls) != 0 {
		t.Errorf("Expected no fallback call on a permanent error, got %d", len(fallback.calls))
	}
	if len(articles.created) != 0 {
		t.Errorf("Expected no stored articles, got %d", len(articles.created))
	}
}

func TestRunFailsWithoutProviders(t *testing.T) {
	registry := &MockRegistry{resolveErr: ai.ErrNoProviderConfigured}

	gen := newTestGenerator(registry, &MockArticleRepository{}, &MockStoryRepository{})

	_, err := gen.Run(context.Background(), &Request{
		Direction: testDirection(database.ModeSingle),
		Topic:     "No providers",
	})
	if !errors.Is(err, ai.ErrNoProviderConfigured) {
		t.Errorf("Expected ErrNoProviderConfigured, got %v", err)
	}
}

func TestRunRequiresDirection(t *testing.T) {
	gen := newTestGenerator(&MockRegistry{}, &MockArticleRepository{}, &MockStoryRepository{})

	_, err := gen.Run(context.Background(), &Request{Topic: "orphan"})
	if err == nil {
		t.Error("Expected a request without direction to fail")
	}
}

func TestRunSingleRejectsEmptyContent(t *testing.T) {
	empty := `{"title": "A title", "content": "  ", "summary": "", "tags": []}`
	client := &MockClient{name: "openai", queue: []completion{{output: empty}}}
	articles := &MockArticleRepository{}

	gen := newTestGenerator(&MockRegistry{primary: client}, articles, &MockStoryRepository{})

	_, err := gen.Run(context.Background(), &Request{
		Direction: testDirection(database.ModeSingle),
		Topic:     "Empty content",
	})
	if err == nil {
		t.Fatal("Expected an empty completion body to fail the run")
	}
	if len(articles.created) != 0 {
		t.Errorf("Expected no stored articles, got %d", len(articles.created))
	}
}

func TestGenerateTopics(t *testing.T) {
	topicsJSON := `{"topics": ["Hidden fees of megaports", "Why pilots still board by ladder", "The dredging debt nobody audits"]}`
	client := &MockClient{name: "openai", queue: []completion{{output: topicsJSON}}}

	gen := newTestGenerator(&MockRegistry{primary: client}, &MockArticleRepository{}, &MockStoryRepository{})

	direction := testDirection(database.ModeSingle)
	topics, err := gen.GenerateTopics(context.Background(), direction, []string{"Container gigantism"}, 5)
	if err != nil {
		t.Fatalf("Expected topic generation to succeed, got %v", err)
	}

	if len(topics) != 3 {
		t.Errorf("Expected 3 topics, got %d", len(topics))
	}
	if topics[0] != "Hidden fees of megaports" {
		t.Errorf("Unexpected first topic: %q", topics[0])
	}

	call := client.calls[0]
	if call.system != topicsSystemPrompt {
		t.Error("Expected the topics system prompt")
	}
	if !strings.Contains(call.prompt, "Generate 10 article topics") {
		t.Error("Expected double the requested count to cover dedup filtering")
	}
	if !strings.Contains(call.prompt, "Coastal economics") {
		t.Error("Expected the direction name in the prompt")
	}
	if !strings.Contains(call.prompt, "- Container gigantism") {
		t.Error("Expected existing topics listed in the prompt")
	}
}

func TestGenerateTopicsFallsBackToNameKeywords(t *testing.T) {
	client := &MockClient{name: "openai", queue: []completion{{output: `{"topics": ["one"]}`}}}

	gen := newTestGenerator(&MockRegistry{primary: client}, &MockArticleRepository{}, &MockStoryRepository{})

	direction := testDirection(database.ModeSingle)
	direction.Keywords = ""

	if _, err := gen.GenerateTopics(context.Background(), direction, nil, 2); err != nil {
		t.Fatalf("Expected topic generation to succeed, got %v", err)
	}

	if !strings.Contains(client.calls[0].prompt, "Core keywords: Coastal economics") {
		t.Error("Expected the direction name used as keyword fallback")
	}
}
