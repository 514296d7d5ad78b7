package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/publish"
)

func (h *Handler) ListTasks(c *gin.Context) {
	status := c.Query("status")
	accountID := c.Query("account_id")
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	tasks, err := h.taskRepo.GetTasks(status, accountID, limit, offset)
	if err != nil {
		slog.Error("Database error", "operation", "list_tasks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks"})
		return
	}

	list := make([]map[string]interface{}, 0, len(tasks))
	for i := range tasks {
		list = append(list, taskJSON(&tasks[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(list),
		"tasks": list,
	})
}

func (h *Handler) GetTask(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, taskJSON(task))
}

func (h *Handler) CreateTask(c *gin.Context) {
	var req taskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if !h.requireAccount(c, req.AccountID) {
		return
	}

	var scheduledAt *time.Time
	if req.ScheduledAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scheduled_at, expected RFC 3339 timestamp"})
			return
		}
		scheduledAt = &parsed
	}

	id, err := h.queue.CreateTask(req.ArticleID, req.AccountID, scheduledAt)
	if err != nil {
		slog.Error("Task creation failed", "article_id", req.ArticleID, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to create task", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Task created", "task_id": id})
}

func (h *Handler) CreateTaskBatch(c *gin.Context) {
	var req taskBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if !h.requireAccount(c, req.AccountID) {
		return
	}

	interval := req.IntervalMinutes
	if interval <= 0 {
		interval = 30
	}

	taskIDs, err := h.queue.CreateBatch(req.ArticleIDs, req.AccountID, interval)
	if err != nil {
		slog.Error("Batch creation failed", "account_id", req.AccountID,
			"queued", len(taskIDs), "requested", len(req.ArticleIDs), "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Failed to queue batch",
			"message":  err.Error(),
			"task_ids": taskIDs,
		})
		return
	}

	slog.Info("Publish batch queued", "account_id", req.AccountID,
		"tasks", len(taskIDs), "interval_minutes", interval)

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Batch queued",
		"count":    len(taskIDs),
		"task_ids": taskIDs,
	})
}

func (h *Handler) CancelTask(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	if err := h.queue.Cancel(task.ID); err != nil {
		if errors.Is(err, publish.ErrTaskNotCancellable) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task cancelled", "id": task.ID})
}

func (h *Handler) RetryTask(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	id, err := h.queue.Retry(task.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Retry queued", "task_id": id})
}

func (h *Handler) loadTask(c *gin.Context) (*database.PublishTask, bool) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task ID is required"})
		return nil, false
	}

	task, err := h.taskRepo.GetTask(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_task", "task_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load task"})
		return nil, false
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return nil, false
	}

	return task, true
}

// requireAccount rejects task creation against unknown accounts up front;
// otherwise the failure would only surface when the worker picks the task
// up and exhausts its retries.
func (h *Handler) requireAccount(c *gin.Context, accountID string) bool {
	account, err := h.accountRepo.GetAccount(accountID)
	if err != nil {
		slog.Error("Database error", "operation", "get_account", "account_id", accountID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return false
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return false
	}
	return true
}

func taskJSON(t *database.PublishTask) map[string]interface{} {
	return map[string]interface{}{
		"id":              t.ID,
		"article_id":      t.ArticleID,
		"account_id":      t.AccountID,
		"status":          t.Status,
		"scheduled_at":    timeString(t.ScheduledAt),
		"retry_count":     t.RetryCount,
		"max_retries":     t.MaxRetries,
		"last_error":      t.LastError,
		"result_url":      t.ResultURL,
		"screenshot_path": t.ScreenshotPath,
		"created_at":      t.CreatedAt.Format(time.RFC3339),
		"started_at":      timeString(t.StartedAt),
		"finished_at":     timeString(t.FinishedAt),
	}
}
