package generator

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lysyi3m/content-pilot/app/ai"
	"github.com/lysyi3m/content-pilot/app/database"
)

const defaultSeriesSize = 3

// runAgent analyzes the reference material, plans a series and generates
// each planned article. A failed analysis or plan aborts the run; a failed
// article is skipped and counted so the rest of the series still lands.
func (g *Generator) runAgent(ctx context.Context, req *Request) (*Result, error) {
	direction := req.Direction

	if len(req.References) == 0 {
		return nil, fmt.Errorf("agent mode requires reference material for direction %q", direction.Name)
	}

	count := req.Count
	if count <= 0 {
		count = defaultSeriesSize
	}

	analysis, err := g.analyzeReferences(ctx, direction.Provider, req.References)
	if err != nil {
		return nil, err
	}

	plan, err := g.planSeries(ctx, direction.Provider, analysis, count)
	if err != nil {
		return nil, err
	}

	seriesID := uuid.New().String()
	style := cmp.Or(direction.Style, plan.RecommendedStyle)

	result := &Result{Planned: len(plan.Articles)}
	for i := range plan.Articles {
		item := &plan.Articles[i]

		article, err := g.generateSeriesArticle(ctx, direction, item, plan, analysis, style, i+1, len(plan.Articles))
		if err != nil {
			slog.Warn("Series article failed",
				"series", plan.SeriesTitle,
				"position", i+1,
				"title", item.Title,
				"error", err)
			result.Failed++
			continue
		}

		article.SeriesID = seriesID
		article.SeriesOrder = i + 1

		if err := g.storeDraft(article, database.ModeAgent); err != nil {
			slog.Error("Failed to store series article", "title", article.Title, "error", err)
			result.Failed++
			continue
		}

		result.Articles = append(result.Articles, *article)
	}

	if len(result.Articles) == 0 {
		return nil, fmt.Errorf("failed to generate any of %d planned series articles", result.Planned)
	}

	slog.Info("Series generated",
		"series", plan.SeriesTitle,
		"planned", result.Planned,
		"generated", len(result.Articles),
		"failed", result.Failed)

	return result, nil
}

func (g *Generator) analyzeReferences(ctx context.Context, preferred string, references []Reference) (*analysisPayload, error) {
	output, _, err := g.complete(ctx, preferred, analyzeSystemPrompt, buildAnalyzeUserPrompt(references))
	if err != nil {
		return nil, fmt.Errorf("failed to analyze reference material: %w", err)
	}

	var analysis analysisPayload
	if err := ai.ParseJSON(output, &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse reference analysis: %w", err)
	}

	return &analysis, nil
}

func (g *Generator) planSeries(ctx context.Context, preferred string, analysis *analysisPayload, count int) (*planPayload, error) {
	output, _, err := g.complete(ctx, preferred, planSystemPrompt, buildPlanUserPrompt(analysis, count))
	if err != nil {
		return nil, fmt.Errorf("failed to plan series: %w", err)
	}

	var plan planPayload
	if err := ai.ParseJSON(output, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse series plan: %w", err)
	}
	if len(plan.Articles) == 0 {
		return nil, fmt.Errorf("series plan contains no articles")
	}

	return &plan, nil
}

func (g *Generator) generateSeriesArticle(ctx context.Context, direction *database.ContentDirection,
	item *plannedItem, plan *planPayload, analysis *analysisPayload,
	style string, position, total int) (*database.Article, error) {

	system := buildArticleSystemPrompt(direction.AntiDetectLevel)
	prompt := buildSeriesArticleUserPrompt(item, plan, analysis, style, direction.WordCount, position, total)

	output, provider, err := g.complete(ctx, direction.Provider, system, prompt)
	if err != nil {
		return nil, err
	}

	var payload draftPayload
	if err := ai.ParseJSON(output, &payload); err != nil {
		return nil, err
	}

	content := cleanDraftContent(payload.Content)
	if content == "" {
		return nil, fmt.Errorf("series article %d has no content", position)
	}

	return &database.Article{
		Title:       cmp.Or(payload.Title, item.Title),
		Content:     content,
		Summary:     payload.Summary,
		Tags:        payload.Tags,
		WordCount:   CountWords(content),
		Category:    cmp.Or(direction.Name, plan.SeriesTitle),
		Provider:    provider,
		DirectionID: direction.ID,
	}, nil
}
