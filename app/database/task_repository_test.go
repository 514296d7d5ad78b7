package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var taskTestColumns = []string{
	"id", "article_id", "account_id", "status", "scheduled_at",
	"retry_count", "max_retries", "last_error", "result_url",
	"screenshot_path", "created_at", "started_at", "finished_at",
}

func addTaskRow(rows *sqlmock.Rows, id, status string) *sqlmock.Rows {
	at := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "article-1", "account-1", status, at, 0, 3, "", "", "", at, nil, nil)
}

func TestCreateTaskImmediate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectQuery("INSERT INTO publish_tasks").
		WithArgs("article-1", "account-1", nil, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("task-new"))

	id, err := repo.CreateTask("article-1", "account-1", nil, 3)
	if err != nil {
		t.Fatalf("CreateTask returned error: %v", err)
	}
	if id != "task-new" {
		t.Errorf("Expected id 'task-new', got %q", id)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectQuery("FROM publish_tasks WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	task, err := repo.GetTask("missing")
	if err != nil {
		t.Fatalf("Expected no error for missing task, got %v", err)
	}
	if task != nil {
		t.Errorf("Expected nil task, got %+v", task)
	}
}

func TestGetDueTasks(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(taskTestColumns)
	addTaskRow(rows, "task-1", TaskStatusPending)
	addTaskRow(rows, "task-2", TaskStatusPending)

	mock.ExpectQuery("FROM publish_tasks WHERE status = 'pending'").
		WithArgs(now, 10).
		WillReturnRows(rows)

	tasks, err := repo.GetDueTasks(now, 10)
	if err != nil {
		t.Fatalf("GetDueTasks returned error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "task-1" {
		t.Errorf("Expected oldest task first, got %s", tasks[0].ID)
	}
}

func TestGetTasksStatusFilter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectQuery("FROM publish_tasks").
		WithArgs("failed", "", 20, 0).
		WillReturnRows(addTaskRow(sqlmock.NewRows(taskTestColumns), "task-1", TaskStatusFailed))

	tasks, err := repo.GetTasks("failed", "", 20, 0)
	if err != nil {
		t.Fatalf("GetTasks returned error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Status != TaskStatusFailed {
		t.Errorf("Expected one failed task, got %+v", tasks)
	}
}

func TestMarkRunningClaimsOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("SET status = 'running'").
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET status = 'running'").
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.MarkRunning("task-1")
	if err != nil {
		t.Fatalf("MarkRunning returned error: %v", err)
	}
	if !claimed {
		t.Error("Expected first claim to succeed")
	}

	claimed, err = repo.MarkRunning("task-1")
	if err != nil {
		t.Fatalf("MarkRunning returned error: %v", err)
	}
	if claimed {
		t.Error("Expected second claim to be refused")
	}
}

func TestCancelPendingTask(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("SET status = 'cancelled'").
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	cancelled, status, err := repo.CancelTask("task-1")
	if err != nil {
		t.Fatalf("CancelTask returned error: %v", err)
	}
	if !cancelled {
		t.Error("Expected pending task to cancel")
	}
	if status != TaskStatusCancelled {
		t.Errorf("Expected status 'cancelled', got %q", status)
	}
}

func TestCancelRunningTaskRefused(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("SET status = 'cancelled'").
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM publish_tasks").
		WithArgs("task-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(TaskStatusRunning))

	cancelled, status, err := repo.CancelTask("task-1")
	if err != nil {
		t.Fatalf("CancelTask returned error: %v", err)
	}
	if cancelled {
		t.Error("Expected running task to refuse cancellation")
	}
	if status != TaskStatusRunning {
		t.Errorf("Expected observed status 'running', got %q", status)
	}
}

func TestCancelMissingTask(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("SET status = 'cancelled'").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM publish_tasks").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	cancelled, status, err := repo.CancelTask("missing")
	if err != nil {
		t.Fatalf("CancelTask returned error: %v", err)
	}
	if cancelled || status != "" {
		t.Errorf("Expected no cancel and empty status, got %v, %q", cancelled, status)
	}
}

func TestRequeueForRetry(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	retryAt := time.Date(2025, 6, 15, 12, 5, 0, 0, time.UTC)

	mock.ExpectExec("SET status = 'pending'").
		WithArgs("task-1", 2, retryAt, "publish request failed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RequeueForRetry("task-1", 2, retryAt, "publish request failed"); err != nil {
		t.Fatalf("RequeueForRetry returned error: %v", err)
	}
}

func TestFailInterruptedTasks(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("WHERE status = 'running'").
		WithArgs("interrupted by restart").
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.FailInterruptedTasks("interrupted by restart")
	if err != nil {
		t.Fatalf("FailInterruptedTasks returned error: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 interrupted tasks, got %d", count)
	}
}

func TestGetTaskStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectQuery("SELECT status, COUNT.+ FROM publish_tasks GROUP BY status").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow(TaskStatusPending, 4).
			AddRow(TaskStatusSuccess, 10))

	stats, err := repo.GetTaskStats()
	if err != nil {
		t.Fatalf("GetTaskStats returned error: %v", err)
	}
	if stats[TaskStatusPending] != 4 || stats[TaskStatusSuccess] != 10 {
		t.Errorf("Unexpected stats: %v", stats)
	}
}
