package generator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/lysyi3m/content-pilot/app/database"
)

const analysisJSON = `{
	"main_topic": "inland waterway logistics",
	"sub_topics": ["barge economics", "lock maintenance"],
	"writing_style": "data driven long reads",
	"target_audience": "logistics professionals",
	"keywords": ["barges", "locks", "freight"],
	"core_viewpoints": ["rivers are underused"],
	"content_gaps": ["crew shortage", "insurance pricing"]
}`

func planJSON(titles ...string) string {
	var items []string
	for i, title := range titles {
		items = append(items, fmt.Sprintf(`{
			"order": %d,
			"title": %q,
			"angle": "angle %d",
			"description": "outline",
			"key_points": ["point a", "point b"]
		}`, i+1, title, i+1))
	}
	return `{
		"series_title": "Rivers at Work",
		"description": "How inland shipping actually runs",
		"recommended_style": "storytelling",
		"articles": [` + strings.Join(items, ",") + `]
	}`
}

func seriesDraftJSON(title string) string {
	return `{
		"title": "` + title + `",
		"content": "## Opening\n\nBody of ` + title + `.",
		"summary": "Summary.",
		"tags": ["rivers", "freight"]
	}`
}

func TestRunAgentGeneratesSeries(t *testing.T) {
	client := &MockClient{name: "openai", queue: []completion{
		{output: analysisJSON},
		{output: planJSON("The Lockkeeper Shortage", "Insuring a Barge")},
		{output: seriesDraftJSON("The Lockkeeper Shortage")},
		{output: seriesDraftJSON("Insuring a Barge")},
	}}
	articles := &MockArticleRepository{}

	gen := newTestGenerator(&MockRegistry{primary: client}, articles, &MockStoryRepository{})

	result, err := gen.Run(context.Background(), &Request{
		Direction:  testDirection(database.ModeAgent),
		Count:      2,
		References: []Reference{{Title: "River report", Content: "Tonnage is up."}},
	})
	if err != nil {
		t.Fatalf("Expected agent run to succeed, got %v", err)
	}

	if result.Planned != 2 {
		t.Errorf("Expected 2 planned articles, got %d", result.Planned)
	}
	if result.Failed != 0 {
		t.Errorf("Expected no failures, got %d", result.Failed)
	}
	if len(articles.created) != 2 {
		t.Fatalf("Expected 2 stored articles, got %d", len(articles.created))
	}

	first, second := articles.created[0], articles.created[1]
	if first.SeriesID == "" {
		t.Error("Expected a series ID on the first article")
	}
	if first.SeriesID != second.SeriesID {
		t.Errorf("Expected one shared series ID, got %q and %q", first.SeriesID, second.SeriesID)
	}
	if first.SeriesOrder != 1 || second.SeriesOrder != 2 {
		t.Errorf("Expected series orders 1 and 2, got %d and %d", first.SeriesOrder, second.SeriesOrder)
	}
	if first.Status != database.ArticleStatusDraft {
		t.Errorf("Expected draft status, got %q", first.Status)
	}

	if len(client.calls) != 4 {
		t.Fatalf("Expected 4 completion calls, got %d", len(client.calls))
	}
	if !strings.Contains(client.calls[0].prompt, "River report") {
		t.Error("Expected the reference material in the analysis prompt")
	}
	if !strings.Contains(client.calls[1].prompt, "plan 2 new related articles") {
		t.Error("Expected the requested count in the plan prompt")
	}
	if !strings.Contains(client.calls[2].prompt, "part 1 of 2") {
		t.Error("Expected the series position in the article prompt")
	}
}

func TestRunAgentToleratesPartialFailure(t *testing.T) {
	client := &MockClient{name: "openai", queue: []completion{
		{output: analysisJSON},
		{output: planJSON("First", "Second", "Third")},
		{output: seriesDraftJSON("First")},
		{err: permanentError("openai")},
		{output: seriesDraftJSON("Third")},
	}}
	articles := &MockArticleRepository{}

	gen := newTestGenerator(&MockRegistry{primary: client}, articles, &MockStoryRepository{})

	result, err := gen.Run(context.Background(), &Request{
		Direction:  testDirection(database.ModeAgent),
		Count:      3,
		References: []Reference{{Title: "Ref", Content: "Material."}},
	})
	if err != nil {
		t.Fatalf("Expected a partial series to succeed, got %v", err)
	}

	if result.Planned != 3 {
		t.Errorf("Expected 3 planned articles, got %d", result.Planned)
	}
	if result.Failed != 1 {
		t.Errorf("Expected 1 failed article, got %d", result.Failed)
	}
	if len(result.Articles) != 2 {
		t.Fatalf("Expected 2 generated articles, got %d", len(result.Articles))
	}

	if articles.created[0].SeriesOrder != 1 || articles.created[1].SeriesOrder != 3 {
		t.Errorf("Expected surviving orders 1 and 3, got %d and %d",
			articles.created[0].SeriesOrder, articles.created[1].SeriesOrder)
	}
}

func TestRunAgentPlanFailureFailsRun(t *testing.T) {
	client := &MockClient{name: "openai", queue: []completion{
		{output: analysisJSON},
		{err: permanentError("openai")},
	}}
	articles := &MockArticleRepository{}

	gen := newTestGenerator(&MockRegistry{primary: client}, articles, &MockStoryRepository{})

	_, err := gen.Run(context.Background(), &Request{
		Direction:  testDirection(database.ModeAgent),
		References: []Reference{{Title: "Ref", Content: "Material."}},
	})
	if err == nil {
		t.Fatal("Expected a failed plan to fail the whole run")
	}
	if !strings.Contains(err.Error(), "plan") {
		t.Errorf("Expected a plan error, got %v", err)
	}
	if len(articles.created) != 0 {
		t.Errorf("Expected no stored articles, got %d", len(articles.created))
	}
}

func TestRunAgentEmptyPlanFailsRun(t *testing.T) {
	client := &MockClient{name: "openai", queue: []completion{
		{output: analysisJSON},
		{output: `{"series_title": "Empty", "articles": []}`},
	}}

	gen := newTestGenerator(&MockRegistry{primary: client}, &MockArticleRepository{}, &MockStoryRepository{})

	_, err := gen.Run(context.Background(), &Request{
		Direction:  testDirection(database.ModeAgent),
		References: []Reference{{Title: "Ref", Content: "Material."}},
	})
	if err == nil {
		t.Fatal("Expected an empty plan to fail the run")
	}
}

func TestRunAgentAllArticlesFailedFailsRun(t *testing.T) {
	client := &MockClient{name: "openai", queue: []completion{
		{output: analysisJSON},
		{output: planJSON("First", "Second")},
		{err: permanentError("openai")},
		{err: permanentError("openai")},
	}}

	gen := newTestGenerator(&MockRegistry{primary: client}, &MockArticleRepository{}, &MockStoryRepository{})

	_, err := gen.Run(context.Background(), &Request{
		Direction:  testDirection(database.ModeAgent),
		References: []Reference{{Title: "Ref", Content: "Material."}},
	})
	if err == nil {
		t.Fatal("Expected a fully failed series to fail the run")
	}
	if !strings.Contains(err.Error(), "2 planned") {
		t.Errorf("Expected the planned count in the error, got %v", err)
	}
}

func TestRunAgentRequiresReferences(t *testing.T) {
	gen := newTestGenerator(&MockRegistry{primary: &MockClient{name: "openai"}},
		&MockArticleRepository{}, &MockStoryRepository{})

	_, err := gen.Run(context.Background(), &Request{
		Direction: testDirection(database.ModeAgent),
	})
	if err == nil {
		t.Error("Expected agent mode without references to fail")
	}
}

func TestRunAgentUsesRecommendedStyle(t *testing.T) {
	client := &MockClient{name: "openai", queue: []completion{
		{output: analysisJSON},
		{output: planJSON("Only One")},
		{output: seriesDraftJSON("Only One")},
	}}

	gen := newTestGenerator(&MockRegistry{primary: client}, &MockArticleRepository{}, &MockStoryRepository{})

	direction := testDirection(database.ModeAgent)
	direction.Style = ""

	if _, err := gen.Run(context.Background(), &Request{
		Direction:  direction,
		Count:      1,
		References: []Reference{{Title: "Ref", Content: "Material."}},
	}); err != nil {
		t.Fatalf("Expected agent run to succeed, got %v", err)
	}

	articlePrompt := client.calls[2].prompt
	if !strings.Contains(articlePrompt, styleDescriptions["storytelling"]) {
		t.Error("Expected the plan's recommended style when the direction has none")
	}
}
