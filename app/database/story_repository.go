package database

import (
	"database/sql"
	"fmt"
)

// storyRepository handles database operations for story generation jobs
type storyRepository struct {
	db *DB
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(db *DB) StoryRepository {
	return &storyRepository{db: db}
}

const storyJobColumns = `id, COALESCE(direction_id::text, ''), source_text, style,
	chapter_count, stage, chapter_cursor, elements_json, outline_json,
	summaries_json, COALESCE(article_id::text, ''), COALESCE(last_error, ''),
	created_at, updated_at`

func scanStoryJob(row rowScanner) (*StoryJob, error) {
	var j StoryJob
	err := row.Scan(
		&j.ID, &j.DirectionID, &j.SourceText, &j.Style,
		&j.ChapterCount, &j.Stage, &j.ChapterCursor, &j.ElementsJSON, &j.OutlineJSON,
		&j.SummariesJSON, &j.ArticleID, &j.LastError,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJob inserts a new story job in the extract stage
func (r *storyRepository) CreateJob(j *StoryJob) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO story_jobs (direction_id, source_text, style, chapter_count, stage)
		VALUES (NULLIF($1, '')::uuid, $2, $3, $4, 'extract')
		RETURNING id
	`, j.DirectionID, j.SourceText, j.Style, j.ChapterCount).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to create story job: %w", err)
	}

	return id, nil
}

// GetJob retrieves a story job by its ID
func (r *storyRepository) GetJob(id string) (*StoryJob, error) {
	j, err := scanStoryJob(r.db.QueryRow(
		`SELECT `+storyJobColumns+` FROM story_jobs WHERE id = $1`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story job: %w", err)
	}

	return j, nil
}

// UpdateStage persists a stage transition together with the intermediate
// pipeline state, so a restart mid-pipeline is detectable
func (r *storyRepository) UpdateStage(id, stage string, cursor int, elementsJSON, outlineJSON, summariesJSON string) error {
	_, err := r.db.Exec(`
		UPDATE story_jobs
		SET stage = $2, chapter_cursor = $3, elements_json = $4,
		    outline_json = $5, summaries_json = $6, updated_at = NOW()
		WHERE id = $1
	`, id, stage, cursor, elementsJSON, outlineJSON, summariesJSON)

	if err != nil {
		return fmt.Errorf("failed to update story job stage: %w", err)
	}

	return nil
}

// MarkJobDone records the produced article and closes the job
func (r *storyRepository) MarkJobDone(id, articleID string) error {
	_, err := r.db.Exec(`
		UPDATE story_jobs
		SET stage = 'done', article_id = $2::uuid, last_error = NULL, updated_at = NOW()
		WHERE id = $1
	`, id, articleID)

	if err != nil {
		return fmt.Errorf("failed to mark story job done: %w", err)
	}

	return nil
}

// MarkJobFailed records the failing stage and error message
func (r *storyRepository) MarkJobFailed(id, message string) error {
	_, err := r.db.Exec(`
		UPDATE story_jobs
		SET stage = 'failed', last_error = $2, updated_at = NOW()
		WHERE id = $1
	`, id, message)

	if err != nil {
		return fmt.Errorf("failed to mark story job failed: %w", err)
	}

	return nil
}

// FailInterruptedJobs marks jobs left mid-pipeline by a previous process as
// failed. Chapters are not independently meaningful, so progress is not
// resumed; the operator sees which stage died.
func (r *storyRepository) FailInterruptedJobs(message string) (int, error) {
	result, err := r.db.Exec(`
		UPDATE story_jobs
		SET last_error = $1 || ' (stage: ' || stage || ')', stage = 'failed',
		    updated_at = NOW()
		WHERE stage NOT IN ('done', 'failed')
	`, message)

	if err != nil {
		return 0, fmt.Errorf("failed to fail interrupted story jobs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count interrupted story jobs: %w", err)
	}

	return int(affected), nil
}
