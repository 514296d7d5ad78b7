package generator

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/content-pilot/app/ai"
	"github.com/lysyi3m/content-pilot/app/database"
)

const (
	defaultChapterCount = 5
	defaultStoryWords   = 15000
	storyStageAttempts  = 3
	storySourceLimit    = 8000
	chapterSummaryEdge  = 150
	fullReviewLimit     = 12000
)

// storyRun carries the in-flight state of one story pipeline. Chapter
// texts live only in memory; the job row records the stage, cursor and
// parsed intermediates so an operator can see where an aborted run died.
type storyRun struct {
	g         *Generator
	jobID     string
	direction *database.ContentDirection
	provider  string

	elements *storyElements
	outline  *storyOutline

	chapterTexts []string
	summaries    []string
}

// runStory drives the five stage story pipeline: extract elements, plan
// the outline, draft each chapter, assemble and polish. Every stage
// transition is persisted on the job; any stage failure fails the whole
// job and produces no article.
func (g *Generator) runStory(ctx context.Context, req *Request) (*database.Article, error) {
	direction := req.Direction

	source := truncateRunes(storySource(req), storySourceLimit)
	if source == "" {
		return nil, fmt.Errorf("story mode requires source material for direction %q", direction.Name)
	}

	chapterCount := req.Count
	if chapterCount <= 0 {
		chapterCount = defaultChapterCount
	}

	jobID, err := g.storyRepo.CreateJob(&database.StoryJob{
		DirectionID:  direction.ID,
		SourceText:   source,
		Style:        direction.Style,
		ChapterCount: chapterCount,
	})
	if err != nil {
		return nil, err
	}

	run := &storyRun{g: g, jobID: jobID, direction: direction}

	article, err := run.execute(ctx, source, chapterCount)
	if err != nil {
		if markErr := g.storyRepo.MarkJobFailed(jobID, err.Error()); markErr != nil {
			slog.Error("Failed to mark story job failed", "job", jobID, "error", markErr)
		}
		return nil, err
	}

	if err := g.storeDraft(article, database.ModeStory); err != nil {
		if markErr := g.storyRepo.MarkJobFailed(jobID, err.Error()); markErr != nil {
			slog.Error("Failed to mark story job failed", "job", jobID, "error", markErr)
		}
		return nil, err
	}

	if err := g.storyRepo.MarkJobDone(jobID, article.ID); err != nil {
		slog.Error("Failed to mark story job done", "job", jobID, "error", err)
	}

	slog.Info("Story generated",
		"job", jobID,
		"title", article.Title,
		"chapters", len(run.chapterTexts),
		"words", article.WordCount)

	return article, nil
}

func (r *storyRun) execute(ctx context.Context, source string, chapterCount int) (*database.Article, error) {
	totalWords := cmp.Or(r.direction.WordCount, defaultStoryWords)

	if err := r.extract(ctx, source); err != nil {
		return nil, err
	}
	if err := r.plan(ctx, chapterCount, totalWords); err != nil {
		return nil, err
	}
	if err := r.writeChapters(ctx); err != nil {
		return nil, err
	}

	meta, err := r.assemble(ctx)
	if err != nil {
		return nil, err
	}

	content := r.polish(ctx, meta.FullStory)

	return &database.Article{
		Title:       cmp.Or(meta.Title, r.outline.Title, "Untitled story"),
		Content:     content,
		Summary:     cmp.Or(meta.Summary, r.outline.Summary),
		Tags:        meta.Tags,
		WordCount:   CountWords(content),
		Category:    cmp.Or(r.direction.Name, r.outline.Title),
		Provider:    r.provider,
		DirectionID: r.direction.ID,
	}, nil
}

func (r *storyRun) extract(ctx context.Context, source string) error {
	output, err := r.stageCompletion(ctx, database.StoryStageExtract,
		storyExtractSystemPrompt, buildStoryExtractPrompt(source))
	if err != nil {
		return err
	}

	var elements storyElements
	if err := ai.ParseJSON(output, &elements); err != nil {
		return fmt.Errorf("failed to parse story elements: %w", err)
	}
	r.elements = &elements

	r.persist(database.StoryStageOutline, 0)

	slog.Info("Story elements extracted",
		"job", r.jobID,
		"era", elements.Era,
		"characters", len(elements.Characters))

	return nil
}

func (r *storyRun) plan(ctx context.Context, chapterCount, totalWords int) error {
	output, err := r.stageCompletion(ctx, database.StoryStageOutline,
		storyOutlineSystemPrompt, buildStoryOutlinePrompt(r.elements, chapterCount, totalWords))
	if err != nil {
		return err
	}

	var outline storyOutline
	if err := ai.ParseJSON(output, &outline); err != nil {
		return fmt.Errorf("failed to parse story outline: %w", err)
	}
	if len(outline.Chapters) == 0 {
		return fmt.Errorf("story outline contains no chapters")
	}
	r.outline = &outline

	r.persist(database.StoryStageChapters, 0)

	slog.Info("Story outline planned",
		"job", r.jobID,
		"title", outline.Title,
		"chapters", len(outline.Chapters))

	return nil
}

func (r *storyRun) writeChapters(ctx context.Context) error {
	total := len(r.outline.Chapters)
	system := buildStoryChapterSystemPrompt(r.outline.Narrator)

	for i := range r.outline.Chapters {
		ch := &r.outline.Chapters[i]

		stage := fmt.Sprintf("chapter %d/%d", i+1, total)
		output, err := r.stageCompletion(ctx, stage, system,
			buildStoryChapterPrompt(ch, i+1, total, r.summaries))
		if err != nil {
			return err
		}

		content := stripFences(output)
		if content == "" {
			return fmt.Errorf("story chapter %d came back empty", i+1)
		}

		r.chapterTexts = append(r.chapterTexts, content)
		r.summaries = append(r.summaries, ch.Title+": "+truncateRunes(chapterSummary(content), 100))

		r.persist(database.StoryStageChapters, i+1)

		slog.Info("Story chapter drafted",
			"job", r.jobID,
			"chapter", i+1,
			"title", ch.Title,
			"words", CountWords(content))
	}

	r.persist(database.StoryStageAssemble, total)

	return nil
}

// assemble joins the chapter drafts. Short stories go through a full
// coherence review in one call; long ones get per-seam bridging sentences
// and a separate blurb call, since a full rewrite would not fit a
// completion reliably.
func (r *storyRun) assemble(ctx context.Context) (*storyMeta, error) {
	totalWords := 0
	for _, ch := range r.chapterTexts {
		totalWords += CountWords(ch)
	}

	var meta *storyMeta
	var err error
	if totalWords <= fullReviewLimit {
		meta, err = r.assembleFull(ctx)
	} else {
		meta, err = r.assembleLight(ctx)
	}
	if err != nil {
		return nil, err
	}

	r.persist(database.StoryStagePolish, len(r.chapterTexts))

	return meta, nil
}

func (r *storyRun) assembleFull(ctx context.Context) (*storyMeta, error) {
	output, err := r.stageCompletion(ctx, database.StoryStageAssemble,
		storyAssembleSystemPrompt, buildStoryAssemblePrompt(r.outline.Title, r.chapterTexts))
	if err != nil {
		return nil, err
	}

	var meta storyMeta
	if err := ai.ParseJSON(output, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse assembled story: %w", err)
	}
	if meta.FullStory == "" {
		meta.FullStory = r.concatChapters()
	}

	return &meta, nil
}

func (r *storyRun) assembleLight(ctx context.Context) (*storyMeta, error) {
	var b strings.Builder

	for i, ch := range r.outline.Chapters {
		content := r.chapterTexts[i]

		if i > 0 {
			bridge, _, err := r.g.complete(ctx, r.direction.Provider, storyTransitionSystemPrompt,
				buildStoryTransitionPrompt(tailRunes(r.chapterTexts[i-1], 300), truncateRunes(content, 300)))
			if err == nil {
				b.WriteString("\n\n" + strings.Trim(strings.TrimSpace(bridge), "\"'") + "\n")
			} else {
				slog.Warn("Story bridge failed, joining without one",
					"job", r.jobID, "chapter", i+1, "error", err)
				b.WriteString("\n")
			}
		}

		fmt.Fprintf(&b, "\n---\n\n## Chapter %d: %s\n\n%s", cmp.Or(ch.Number, i+1), ch.Title, content)
	}

	full := strings.TrimSpace(b.String())

	meta := &storyMeta{FullStory: full, Title: r.outline.Title}

	output, _, err := r.g.complete(ctx, r.direction.Provider, storyMetaSystemPrompt,
		buildStoryMetaPrompt(r.outline.Title, truncateRunes(full, 500)))
	if err != nil {
		slog.Warn("Story blurb failed, continuing without one", "job", r.jobID, "error", err)
		return meta, nil
	}

	var blurb struct {
		Summary string   `json:"summary"`
		Tags    []string `json:"tags"`
	}
	if err := ai.ParseJSON(output, &blurb); err == nil {
		meta.Summary = blurb.Summary
		meta.Tags = blurb.Tags
	}

	return meta, nil
}

// polish rewrites each chapter-sized part of the story to strip the
// machine flavor. A failed part keeps its original text; polish never
// fails the job.
func (r *storyRun) polish(ctx context.Context, full string) string {
	if len([]rune(full)) < 100 {
		return full
	}

	parts := splitStoryParts(full)
	polished := make([]string, 0, len(parts))

	for i, part := range parts {
		part = strings.TrimSpace(part)
		if len([]rune(part)) < 50 {
			polished = append(polished, part)
			continue
		}

		output, provider, err := r.g.complete(ctx, r.direction.Provider, storyPolishSystemPrompt,
			buildStoryPolishPrompt(part, i+1, len(parts)))
		if err != nil {
			slog.Warn("Story polish failed, keeping original part",
				"job", r.jobID, "part", i+1, "error", err)
			polished = append(polished, part)
			continue
		}

		r.provider = provider
		polished = append(polished, stripFences(output))
	}

	return strings.Join(polished, "\n\n---\n\n")
}

// stageCompletion runs one pipeline stage completion, retrying transient
// failures with a growing delay. A permanent failure or exhausted retries
// fail the stage.
func (r *storyRun) stageCompletion(ctx context.Context, stage, system, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= storyStageAttempts; attempt++ {
		output, provider, err := r.g.complete(ctx, r.direction.Provider, system, prompt)
		if err == nil {
			r.provider = provider
			return output, nil
		}

		lastErr = err
		if !ai.IsTransient(err) || attempt == storyStageAttempts {
			break
		}

		slog.Warn("Story stage attempt failed",
			"job", r.jobID,
			"stage", stage,
			"attempt", attempt,
			"error", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.g.stageDelay * time.Duration(attempt)):
		}
	}

	return "", fmt.Errorf("story stage %s failed: %w", stage, lastErr)
}

// persist records a stage transition on the job row. Persistence exists
// for observability; a write failure does not stop the pipeline.
func (r *storyRun) persist(stage string, cursor int) {
	var elementsJSON, outlineJSON, summariesJSON string
	if r.elements != nil {
		elementsJSON = marshalState(r.elements)
	}
	if r.outline != nil {
		outlineJSON = marshalState(r.outline)
	}
	if len(r.summaries) > 0 {
		summariesJSON = marshalState(r.summaries)
	}

	err := r.g.storyRepo.UpdateStage(r.jobID, stage, cursor, elementsJSON, outlineJSON, summariesJSON)
	if err != nil {
		slog.Error("Failed to persist story stage", "job", r.jobID, "stage", stage, "error", err)
	}
}

func (r *storyRun) concatChapters() string {
	parts := make([]string, 0, len(r.chapterTexts))
	for i, content := range r.chapterTexts {
		ch := r.outline.Chapters[i]
		parts = append(parts, fmt.Sprintf("## Chapter %d: %s\n\n%s", cmp.Or(ch.Number, i+1), ch.Title, content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func marshalState(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// chapterSummary condenses a chapter into its opening and closing runs,
// which is what the next chapter's prompt needs to stay continuous
func chapterSummary(content string) string {
	flat := strings.TrimSpace(strings.ReplaceAll(content, "\n", " "))
	runes := []rune(flat)
	if len(runes) <= 2*chapterSummaryEdge {
		return flat
	}
	return string(runes[:chapterSummaryEdge]) + " ... " + string(runes[len(runes)-chapterSummaryEdge:])
}

// splitStoryParts breaks an assembled story back into chapter-sized parts
// along the --- separators, falling back to ## headings
func splitStoryParts(text string) []string {
	parts := strings.Split(text, "\n---\n")
	if len(parts) > 1 {
		return parts
	}

	segments := strings.Split(text, "\n## ")
	if len(segments) <= 1 {
		return []string{text}
	}

	parts = parts[:0]
	if strings.TrimSpace(segments[0]) != "" {
		parts = append(parts, segments[0])
	}
	for _, segment := range segments[1:] {
		parts = append(parts, "## "+segment)
	}

	return parts
}

// storySource flattens a request's topic and references into the material
// block the extract stage analyzes
func storySource(req *Request) string {
	var b strings.Builder

	if req.Topic != "" {
		b.WriteString(req.Topic)
		b.WriteString("\n")
	}

	for _, ref := range req.References {
		if ref.Title == "" && ref.Content == "" {
			continue
		}
		b.WriteString("\n--- ")
		b.WriteString(ref.Title)
		b.WriteString(" ---\n")
		b.WriteString(truncateRunes(ref.Content, 2000))
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}
