package generator

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/content-pilot/app/ai"
	"github.com/lysyi3m/content-pilot/app/database"
)

// runSingle generates one article for the requested topic
func (g *Generator) runSingle(ctx context.Context, req *Request) (*database.Article, error) {
	direction := req.Direction

	system := buildArticleSystemPrompt(direction.AntiDetectLevel)
	prompt := buildArticleUserPrompt(req.Topic, direction.Style, direction.WordCount,
		direction.AntiDetectLevel, referencesText(req.References, 3000))

	output, provider, err := g.complete(ctx, direction.Provider, system, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate article for topic %q: %w", req.Topic, err)
	}

	var payload draftPayload
	if err := ai.ParseJSON(output, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse article for topic %q: %w", req.Topic, err)
	}

	content := cleanDraftContent(payload.Content)
	if content == "" {
		return nil, fmt.Errorf("generated article for topic %q has no content", req.Topic)
	}

	article := &database.Article{
		Title:       cmp.Or(payload.Title, req.Topic),
		Content:     content,
		Summary:     payload.Summary,
		Tags:        payload.Tags,
		WordCount:   CountWords(content),
		Category:    direction.Name,
		Provider:    provider,
		DirectionID: direction.ID,
	}

	if err := g.storeDraft(article, database.ModeSingle); err != nil {
		return nil, err
	}

	slog.Info("Article generated",
		"mode", database.ModeSingle,
		"direction", direction.Name,
		"title", article.Title,
		"words", article.WordCount,
		"provider", provider)

	return article, nil
}
