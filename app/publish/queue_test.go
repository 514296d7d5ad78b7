package publish

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/events"
)

func newTestQueue(taskRepo *MockTaskRepository, articleRepo *MockArticleRepository) *Queue {
	return &Queue{
		taskRepo:     taskRepo,
		articleRepo:  articleRepo,
		bus:          events.NewBus(0, 0),
		maxRetries:   3,
		jitterWindow: 5 * time.Minute,
	}
}

func TestCreateTaskMovesDraftToPending(t *testing.T) {
	taskRepo := NewMockTaskRepository()
	articleRepo := NewMockArticleRepository()

	article := testArticle("article-1")
	article.Status = database.ArticleStatusDraft
	articleRepo.add(article)

	queue := newTestQueue(taskRepo, articleRepo)
	created := queue.bus.Subscribe(events.EventTaskCreated)

	id, err := queue.CreateTask("article-1", "account-1", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	task := taskRepo.mustTask(t, id)
	if task.Status != database.TaskStatusPending {
		t.Errorf("Expected pending task, got %s", task.Status)
	}
	if task.MaxRetries != 3 {
		t.Errorf("Expected retry budget 3, got %d", task.MaxRetries)
	}
	if task.ScheduledAt != nil {
		t.Errorf("Expected immediate task, got schedule %v", task.ScheduledAt)
	}

	if got := articleRepo.status(t, "article-1"); got != database.ArticleStatusPending {
		t.Errorf("Expected article moved to pending, got %s", got)
	}

	if got := drainEvents(created); len(got) != 1 {
		t.Errorf("Expected one task_created event, got %d", len(got))
	}
}

func TestCreateTaskUnknownArticle(t *testing.T) {
	queue := newTestQueue(NewMockTaskRepository(), NewMockArticleRepository())

	_, err := queue.CreateTask("article-missing", "account-1", nil)
	if err == nil {
		t.Error("Expected error for unknown article")
	}
}

func TestCreateBatchSchedulesStrictlyIncreasing(t *testing.T) {
	taskRepo := NewMockTaskRepository()
	articleRepo := NewMockArticleRepository()

	var articleIDs []string
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("article-%d", i)
		articleRepo.add(testArticle(id))
		articleIDs = append(articleIDs, id)
	}

	queue := newTestQueue(taskRepo, articleRepo)
	before := time.Now()

	taskIDs, err := queue.CreateBatch(articleIDs, "account-1", 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(taskIDs) != 5 {
		t.Fatalf("Expected 5 tasks, got %d", len(taskIDs))
	}

	var prev time.Time
	for i, id := range taskIDs {
		task := taskRepo.mustTask(t, id)
		if task.ScheduledAt == nil {
			t.Fatalf("Expected task %d scheduled, got nil", i)
		}
		if task.ScheduledAt.Before(before) {
			t.Errorf("Expected task %d not before batch start, got %v", i, task.ScheduledAt)
		}
		if i > 0 && !task.ScheduledAt.After(prev) {
			t.Errorf("Expected task %d after task %d, got %v then %v",
				i, i-1, prev, task.ScheduledAt)
		}
		prev = *task.ScheduledAt
	}
}

func TestCreateBatchValidation(t *testing.T) {
	queue := newTestQueue(NewMockTaskRepository(), NewMockArticleRepository())

	if _, err := queue.CreateBatch(nil, "account-1", 10); err == nil {
		t.Error("Expected error for empty batch")
	}
	if _, err := queue.CreateBatch([]string{"article-1"}, "account-1", 0); err == nil {
		t.Error("Expected error for zero interval")
	}
}

func TestCreateBatchReturnsPartialIDs(t *testing.T) {
	taskRepo := NewMockTaskRepository()
	articleRepo := NewMockArticleRepository()
	articleRepo.add(testArticle("article-1"))

	queue := newTestQueue(taskRepo, articleRepo)

	taskIDs, err := queue.CreateBatch([]string{"article-1", "article-missing"}, "account-1", 10)
	if err == nil {
		t.Fatal("Expected error for missing article in batch")
	}
	if len(taskIDs) != 1 {
		t.Errorf("Expected the already queued task returned, got %d", len(taskIDs))
	}
}

func TestBatchScheduleJitterStaysBounded(t *testing.T) {
	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	interval := 10 * time.Minute
	window := 5 * time.Minute

	times := batchSchedule(start, 20, interval, window)

	for i, at := range times {
		target := start.Add(time.Duration(i) * interval)
		if diff := at.Sub(target); diff > window || diff < -window {
			t.Errorf("Slot %d drifted %s from its target", i, diff)
		}
		if at.Before(start) {
			t.Errorf("Slot %d scheduled before batch start", i)
		}
		if i > 0 && !at.After(times[i-1]) {
			t.Errorf("Slot %d not after slot %d", i, i-1)
		}
	}
}

func TestBatchScheduleZeroWindow(t *testing.T) {
	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	times := batchSchedule(start, 3, 30*time.Minute, 0)

	for i, at := range times {
		want := start.Add(time.Duration(i) * 30 * time.Minute)
		if !at.Equal(want) {
			t.Errorf("Expected slot %d at %v, got %v", i, want, at)
		}
	}
}

func TestCancelPendingTask(t *testing.T) {
	taskRepo := NewMockTaskRepository()
	articleRepo := NewMockArticleRepository()
	articleRepo.add(testArticle("article-1"))

	queue := newTestQueue(taskRepo, articleRepo)
	updates := queue.bus.Subscribe(events.EventTaskUpdate)

	id, _ := queue.CreateTask("article-1", "account-1", nil)
	if err := queue.Cancel(id); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := taskRepo.mustTask(t, id).Status; got != database.TaskStatusCancelled {
		t.Errorf("Expected cancelled, got %s", got)
	}
	if got := drainEvents(updates); len(got) != 1 || got[0].Status != database.TaskStatusCancelled {
		t.Errorf("Expected one cancelled event, got %v", got)
	}
}

func TestCancelRunningTaskRefused(t *testing.T) {
	taskRepo := NewMockTaskRepository()
	articleRepo := NewMockArticleRepository()
	articleRepo.add(testArticle("article-1"))

	queue := newTestQueue(taskRepo, articleRepo)
	id, _ := queue.CreateTask("article-1", "account-1", nil)
	taskRepo.MarkRunning(id)

	err := queue.Cancel(id)
	if !errors.Is(err, ErrTaskNotCancellable) {
		t.Fatalf("Expected ErrTaskNotCancellable, got %v", err)
	}

	if got := taskRepo.mustTask(t, id).Status; got != database.TaskStatusRunning {
		t.Errorf("Expected task left running, got %s", got)
	}
}

func TestCancelFinishedTask(t *testing.T) {
	taskRepo := NewMockTaskRepository()
	articleRepo := NewMockArticleRepository()
	articleRepo.add(testArticle("article-1"))

	queue := newTestQueue(taskRepo, articleRepo)
	id, _ := queue.CreateTask("article-1", "account-1", nil)
	taskRepo.MarkRunning(id)
	taskRepo.MarkSuccess(id, "https://platform.example/p/1", "")

	if err := queue.Cancel(id); err == nil {
		t.Error("Expected error cancelling a finished task")
	}
}

func TestCancelUnknownTask(t *testing.T) {
	queue := newTestQueue(NewMockTaskRepository(), NewMockArticleRepository())

	if err := queue.Cancel("task-missing"); err == nil {
		t.Error("Expected error for unknown task")
	}
}

func TestRetryFailedTask(t *testing.T) {
	taskRepo := NewMockTaskRepository()
	articleRepo := NewMockArticleRepository()
	articleRepo.add(testArticle("article-1"))

	queue := newTestQueue(taskRepo, articleRepo)
	id, _ := queue.CreateTask("article-1", "account-1", nil)
	taskRepo.MarkRunning(id)
	taskRepo.MarkFailed(id, "browser session lost")

	retryID, err := queue.Retry(id)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if retryID == id {
		t.Error("Expected a fresh task, got the failed one back")
	}

	retried := taskRepo.mustTask(t, retryID)
	if retried.Status != database.TaskStatusPending {
		t.Errorf("Expected new task pending, got %s", retried.Status)
	}
	if retried.ArticleID != "article-1" || retried.AccountID != "account-1" {
		t.Errorf("Expected article and account carried over, got %s on %s",
			retried.ArticleID, retried.AccountID)
	}
	if retried.ScheduledAt != nil {
		t.Errorf("Expected retry due immediately, got %v", retried.ScheduledAt)
	}

	// The failed task stays terminal.
	if got := taskRepo.mustTask(t, id).Status; got != database.TaskStatusFailed {
		t.Errorf("Expected original task untouched, got %s", got)
	}
}

func TestRetryRequiresFailedTask(t *testing.T) {
	taskRepo := NewMockTaskRepository()
	articleRepo := NewMockArticleRepository()
	articleRepo.add(testArticle("article-1"))

	queue := newTestQueue(taskRepo, articleRepo)
	id, _ := queue.CreateTask("article-1", "account-1", nil)

	if _, err := queue.Retry(id); err == nil {
		t.Error("Expected error retrying a pending task")
	}
}

func TestNewQueueUsesConfiguredRetryBudget(t *testing.T) {
	setupTestConfig()

	taskRepo := NewMockTaskRepository()
	articleRepo := NewMockArticleRepository()
	articleRepo.add(testArticle("article-1"))

	queue := NewQueue(taskRepo, articleRepo, events.NewBus(0, 0))
	id, err := queue.CreateTask("article-1", "account-1", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := taskRepo.mustTask(t, id).MaxRetries; got != 3 {
		t.Errorf("Expected default retry budget 3, got %d", got)
	}
}
