package database

import (
	"database/sql"
	"fmt"
	"time"
)

// taskRepository handles database operations for publish tasks
type taskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, article_id, account_id, status, scheduled_at,
	retry_count, max_retries, COALESCE(last_error, ''), COALESCE(result_url, ''),
	COALESCE(screenshot_path, ''), created_at, started_at, finished_at`

func scanTask(row rowScanner) (*PublishTask, error) {
	var t PublishTask
	err := row.Scan(
		&t.ID, &t.ArticleID, &t.AccountID, &t.Status, &t.ScheduledAt,
		&t.RetryCount, &t.MaxRetries, &t.LastError, &t.ResultURL,
		&t.ScreenshotPath, &t.CreatedAt, &t.StartedAt, &t.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask inserts a new publish task and returns its ID
func (r *taskRepository) CreateTask(articleID, accountID string, scheduledAt *time.Time, maxRetries int) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO publish_tasks (article_id, account_id, scheduled_at, max_retries)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, articleID, accountID, scheduledAt, maxRetries).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to create publish task: %w", err)
	}

	return id, nil
}

// GetTask retrieves a task by its ID
func (r *taskRepository) GetTask(id string) (*PublishTask, error) {
	t, err := scanTask(r.db.QueryRow(
		`SELECT `+taskColumns+` FROM publish_tasks WHERE id = $1`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return t, nil
}

// GetTasks returns tasks filtered by status and/or account.
// Empty filter values match everything.
func (r *taskRepository) GetTasks(status, accountID string, limit, offset int) ([]PublishTask, error) {
	rows, err := r.db.Query(`
		SELECT `+taskColumns+`
		FROM publish_tasks
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR account_id = $2::uuid)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, status, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// GetDueTasks returns pending tasks whose schedule has elapsed, oldest first
func (r *taskRepository) GetDueTasks(now time.Time, limit int) ([]PublishTask, error) {
	rows, err := r.db.Query(`
		SELECT `+taskColumns+`
		FROM publish_tasks
		WHERE status = 'pending'
		  AND (scheduled_at IS NULL OR scheduled_at <= $1)
		ORDER BY COALESCE(scheduled_at, created_at)
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]PublishTask, error) {
	var tasks []PublishTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// MarkRunning transitions a pending task to running. Returns false if the
// task was no longer pending, so two workers can never claim the same task.
func (r *taskRepository) MarkRunning(id string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE publish_tasks
		SET status = 'running', started_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id)

	if err != nil {
		return false, fmt.Errorf("failed to mark task running: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check task claim result: %w", err)
	}

	return affected == 1, nil
}

// MarkSuccess transitions a running task to success
func (r *taskRepository) MarkSuccess(id, resultURL, screenshotPath string) error {
	_, err := r.db.Exec(`
		UPDATE publish_tasks
		SET status = 'success', result_url = NULLIF($2, ''),
		    screenshot_path = NULLIF($3, ''), last_error = NULL, finished_at = NOW()
		WHERE id = $1 AND status = 'running'
	`, id, resultURL, screenshotPath)

	if err != nil {
		return fmt.Errorf("failed to mark task success: %w", err)
	}

	return nil
}

// RequeueForRetry puts a running task back to pending with a new schedule
// and an incremented retry count
func (r *taskRepository) RequeueForRetry(id string, retryCount int, scheduledAt time.Time, lastError string) error {
	_, err := r.db.Exec(`
		UPDATE publish_tasks
		SET status = 'pending', retry_count = $2, scheduled_at = $3,
		    last_error = $4, started_at = NULL
		WHERE id = $1 AND status = 'running'
	`, id, retryCount, scheduledAt, lastError)

	if err != nil {
		return fmt.Errorf("failed to requeue task for retry: %w", err)
	}

	return nil
}

// MarkFailed transitions a running task to its terminal failed state
func (r *taskRepository) MarkFailed(id, lastError string) error {
	_, err := r.db.Exec(`
		UPDATE publish_tasks
		SET status = 'failed', last_error = $2, finished_at = NOW()
		WHERE id = $1 AND status = 'running'
	`, id, lastError)

	if err != nil {
		return fmt.Errorf("failed to mark task failed: %w", err)
	}

	return nil
}

// CancelTask cancels a pending task. Returns whether the cancel happened
// and the status observed when it did not: a running task is refused, a
// terminal task has nothing to cancel.
func (r *taskRepository) CancelTask(id string) (bool, string, error) {
	result, err := r.db.Exec(`
		UPDATE publish_tasks
		SET status = 'cancelled', finished_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id)

	if err != nil {
		return false, "", fmt.Errorf("failed to cancel task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, "", fmt.Errorf("failed to check cancel result: %w", err)
	}
	if affected == 1 {
		return true, TaskStatusCancelled, nil
	}

	var status string
	err = r.db.QueryRow(`SELECT status FROM publish_tasks WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("failed to read task status: %w", err)
	}

	return false, status, nil
}

// FailInterruptedTasks marks tasks left running by a previous process as
// failed. Called once at startup; the external action may or may not have
// completed, which is exactly what the error message records.
func (r *taskRepository) FailInterruptedTasks(message string) (int, error) {
	result, err := r.db.Exec(`
		UPDATE publish_tasks
		SET status = 'failed', last_error = $1, finished_at = NOW()
		WHERE status = 'running'
	`, message)

	if err != nil {
		return 0, fmt.Errorf("failed to fail interrupted tasks: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count interrupted tasks: %w", err)
	}

	return int(affected), nil
}

// GetPendingCount returns the number of pending tasks
func (r *taskRepository) GetPendingCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM publish_tasks WHERE status = 'pending'").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending task count: %w", err)
	}
	return count, nil
}

// GetTaskStats returns task counts grouped by status
func (r *taskRepository) GetTaskStats() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM publish_tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan task stats row: %w", err)
		}
		stats[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task stats rows: %w", err)
	}

	return stats, nil
}
