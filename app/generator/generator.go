package generator

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/content-pilot/app/ai"
	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/events"
	"github.com/lysyi3m/content-pilot/app/monitoring"
)

const storyStageDelay = 5 * time.Second

// providerRegistry is the slice of the AI registry the generator consumes
type providerRegistry interface {
	Resolve(preferred string) (ai.Client, error)
	Next(after string) (ai.Client, bool)
}

// Generator turns direction policies and topics into stored article drafts.
// It owns every model interaction: topic selection, the three generation
// modes and the provider fallback rule.
type Generator struct {
	registry    providerRegistry
	articleRepo database.ArticleRepository
	storyRepo   database.StoryRepository
	bus         *events.Bus
	stageDelay  time.Duration
}

func NewGenerator(registry *ai.Registry, articleRepo database.ArticleRepository,
	storyRepo database.StoryRepository, bus *events.Bus) *Generator {
	return &Generator{
		registry:    registry,
		articleRepo: articleRepo,
		storyRepo:   storyRepo,
		bus:         bus,
		stageDelay:  storyStageDelay,
	}
}

// Run executes one generation request in the direction's mode. Every
// produced article is stored as a draft before Run returns.
func (g *Generator) Run(ctx context.Context, req *Request) (*Result, error) {
	if req.Direction == nil {
		return nil, fmt.Errorf("generation request has no direction")
	}

	mode := cmp.Or(req.Direction.Mode, database.ModeSingle)
	start := time.Now()

	var result *Result
	var err error

	switch mode {
	case database.ModeAgent:
		result, err = g.runAgent(ctx, req)
	case database.ModeStory:
		var article *database.Article
		article, err = g.runStory(ctx, req)
		if err == nil {
			result = &Result{Articles: []database.Article{*article}, Planned: 1}
		}
	default:
		var article *database.Article
		article, err = g.runSingle(ctx, req)
		if err == nil {
			result = &Result{Articles: []database.Article{*article}, Planned: 1}
		}
	}

	if err != nil {
		monitoring.RecordGenerationFailure(mode)
		return nil, err
	}

	monitoring.ObserveGenerationDuration(mode, time.Since(start))

	return result, nil
}

// GenerateTopics asks the model for count fresh topics for a direction,
// passing recent topics so it steers away from them. Extra candidates are
// requested because the caller filters through the dedup ledger.
func (g *Generator) GenerateTopics(ctx context.Context, direction *database.ContentDirection, existing []string, count int) ([]string, error) {
	keywords := cmp.Or(direction.Keywords, direction.Name)

	prompt := buildTopicsUserPrompt(direction.Name, direction.Description, keywords, existing, count*2)

	output, _, err := g.complete(ctx, direction.Provider, topicsSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate topics: %w", err)
	}

	var payload topicsPayload
	if err := ai.ParseJSON(output, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse topic list: %w", err)
	}

	return payload.Topics, nil
}

// complete runs one completion against the preferred provider, retrying
// once with the next configured provider after a transient failure.
func (g *Generator) complete(ctx context.Context, preferred, system, prompt string) (string, string, error) {
	client, err := g.registry.Resolve(preferred)
	if err != nil {
		return "", "", err
	}

	output, err := client.Complete(ctx, system, prompt)
	if err == nil {
		return output, client.Name(), nil
	}
	if !ai.IsTransient(err) {
		return "", "", err
	}

	fallback, ok := g.registry.Next(client.Name())
	if !ok {
		return "", "", err
	}

	slog.Warn("Provider failed, retrying with next in priority order",
		"provider", client.Name(),
		"fallback", fallback.Name(),
		"error", err)

	output, retryErr := fallback.Complete(ctx, system, prompt)
	if retryErr != nil {
		return "", "", retryErr
	}

	return output, fallback.Name(), nil
}

// storeDraft persists an article draft and announces it on the bus
func (g *Generator) storeDraft(article *database.Article, mode string) error {
	article.Status = database.ArticleStatusDraft

	id, err := g.articleRepo.CreateArticle(article)
	if err != nil {
		return fmt.Errorf("failed to store article: %w", err)
	}
	article.ID = id

	monitoring.RecordArticleGenerated(mode, article.Provider)
	g.bus.Emit(events.EventArticleCreated, id, database.ArticleStatusDraft, article.Title)

	return nil
}

// referencesText renders reference entries into a prompt block, capped so
// oversized source material cannot crowd out the instructions
func referencesText(references []Reference, limit int) string {
	if len(references) == 0 {
		return ""
	}

	text := ""
	for _, ref := range references {
		line := "- " + ref.Title
		if ref.Content != "" {
			line += ": " + truncateRunes(ref.Content, 400)
		}
		text += line + "\n"
		if len(text) >= limit {
			break
		}
	}

	return text
}
