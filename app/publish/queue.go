package publish

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/lysyi3m/content-pilot/app/cfg"
	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/events"
)

// ErrTaskNotCancellable is returned when cancellation hits a task whose
// execution has already begun. The external action may be in flight, so
// the caller has to wait for the terminal result instead.
var ErrTaskNotCancellable = errors.New("task is already running and cannot be cancelled")

// Queue creates and cancels publish tasks. Execution is the Worker's job;
// the queue only shapes the schedule.
type Queue struct {
	taskRepo     database.TaskRepository
	articleRepo  database.ArticleRepository
	bus          *events.Bus
	maxRetries   int
	jitterWindow time.Duration
}

func NewQueue(taskRepo database.TaskRepository, articleRepo database.ArticleRepository, bus *events.Bus) *Queue {
	c := cfg.Get()

	return &Queue{
		taskRepo:     taskRepo,
		articleRepo:  articleRepo,
		bus:          bus,
		maxRetries:   c.MaxRetries,
		jitterWindow: time.Duration(c.BatchJitterWindow) * time.Minute,
	}
}

// CreateTask queues one publish of an article on an account. A nil
// scheduledAt makes the task due immediately. A drafted article moves to
// pending so its place in the pipeline is visible.
func (q *Queue) CreateTask(articleID, accountID string, scheduledAt *time.Time) (string, error) {
	article, err := q.articleRepo.GetArticle(articleID)
	if err != nil {
		return "", fmt.Errorf("failed to load article: %w", err)
	}
	if article == nil {
		return "", fmt.Errorf("article %s not found", articleID)
	}

	id, err := q.taskRepo.CreateTask(articleID, accountID, scheduledAt, q.maxRetries)
	if err != nil {
		return "", err
	}

	if article.Status == database.ArticleStatusDraft {
		if err := q.articleRepo.SetArticleStatus(articleID, database.ArticleStatusPending); err != nil {
			slog.Warn("Failed to move article to pending", "article_id", articleID, "error", err)
		}
	}

	q.bus.Emit(events.EventTaskCreated, id, database.TaskStatusPending,
		fmt.Sprintf("publish of %q queued", article.Title))

	return id, nil
}

// CreateBatch queues one task per article on a single account, spaced by
// intervalMinutes with per-task jitter. Task i is scheduled near
// now + i*interval; the jitter window is trimmed below half the interval
// so the sequence stays strictly increasing.
func (q *Queue) CreateBatch(articleIDs []string, accountID string, intervalMinutes int) ([]string, error) {
	if len(articleIDs) == 0 {
		return nil, fmt.Errorf("batch contains no articles")
	}
	if intervalMinutes < 1 {
		return nil, fmt.Errorf("batch interval must be at least one minute")
	}

	schedule := batchSchedule(time.Now(), len(articleIDs),
		time.Duration(intervalMinutes)*time.Minute, q.jitterWindow)

	taskIDs := make([]string, 0, len(articleIDs))
	for i, articleID := range articleIDs {
		at := schedule[i]

		id, err := q.CreateTask(articleID, accountID, &at)
		if err != nil {
			return taskIDs, fmt.Errorf("failed to queue article %s: %w", articleID, err)
		}
		taskIDs = append(taskIDs, id)
	}

	return taskIDs, nil
}

// Cancel cancels a pending task. Running tasks are refused with
// ErrTaskNotCancellable; terminal tasks have nothing left to cancel.
func (q *Queue) Cancel(taskID string) error {
	cancelled, status, err := q.taskRepo.CancelTask(taskID)
	if err != nil {
		return err
	}

	if cancelled {
		q.bus.Emit(events.EventTaskUpdate, taskID, database.TaskStatusCancelled, "cancelled by operator")
		return nil
	}

	switch status {
	case "":
		return fmt.Errorf("task %s not found", taskID)
	case database.TaskStatusRunning:
		return ErrTaskNotCancellable
	default:
		return fmt.Errorf("task is already %s", status)
	}
}

// Retry queues a fresh immediate task for a failed one. The failed task
// stays terminal; re-publishing is always a new record.
func (q *Queue) Retry(taskID string) (string, error) {
	task, err := q.taskRepo.GetTask(taskID)
	if err != nil {
		return "", fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return "", fmt.Errorf("task %s not found", taskID)
	}
	if task.Status != database.TaskStatusFailed {
		return "", fmt.Errorf("only failed tasks can be retried, task is %s", task.Status)
	}

	return q.CreateTask(task.ArticleID, task.AccountID, nil)
}

// batchSchedule spreads count slots from start with the given spacing and
// a symmetric random offset per slot. The offset never pushes a slot
// before start, and the window is clamped under half the interval, which
// keeps consecutive slots in order.
func batchSchedule(start time.Time, count int, interval, window time.Duration) []time.Time {
	if half := interval / 2; window >= half {
		window = half - time.Second
	}
	if window < 0 {
		window = 0
	}

	times := make([]time.Time, count)
	for i := range times {
		at := start.Add(time.Duration(i) * interval)

		if window > 0 {
			at = at.Add(time.Duration(rand.Int63n(int64(2*window)+1)) - window)
		}
		if at.Before(start) {
			at = start
		}

		times[i] = at
	}

	return times
}
