package publish

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/lysyi3m/content-pilot/app/cfg"
	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/events"
	"github.com/lysyi3m/content-pilot/app/monitoring"
)

const (
	scanBatchLimit = 50
	retrySmearMax  = 30 * time.Second
)

// Worker drains due publish tasks through the external publisher. One
// scan loop feeds a buffered queue consumed by a small pool; the
// per-account lock plus the quota gate keep every account inside its
// rate policy no matter how many workers run.
type Worker struct {
	taskRepo    database.TaskRepository
	articleRepo database.ArticleRepository
	accountRepo database.AccountRepository
	quota       *Quota
	publisher   Publisher
	bus         *events.Bus

	scanInterval   time.Duration
	workerCount    int
	publishTimeout time.Duration
	backoffBase    time.Duration
	backoffCap     time.Duration

	accountLocks sync.Map
	taskQueue    chan database.PublishTask
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func NewWorker(taskRepo database.TaskRepository, articleRepo database.ArticleRepository,
	accountRepo database.AccountRepository, quota *Quota, publisher Publisher, bus *events.Bus) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Worker{
		taskRepo:       taskRepo,
		articleRepo:    articleRepo,
		accountRepo:    accountRepo,
		quota:          quota,
		publisher:      publisher,
		bus:            bus,
		scanInterval:   time.Duration(c.PublishScanInterval) * time.Second,
		workerCount:    c.WorkerCount,
		publishTimeout: time.Duration(c.PublishTimeout) * time.Second,
		backoffBase:    time.Duration(c.RetryBackoffBase) * time.Second,
		backoffCap:     time.Duration(c.RetryBackoffCap) * time.Second,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan database.PublishTask, 100),
	}
}

func (w *Worker) Start() {
	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.runWorker(i)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.scanInterval)
		defer ticker.Stop()

		w.scan()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.scan()
			}
		}
	}()

	slog.Info("Publish worker started",
		"workers", w.workerCount,
		"scan_interval", w.scanInterval.String())
}

func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
	close(w.taskQueue)
}

func (w *Worker) runWorker(id int) {
	defer w.wg.Done()

	for {
		select {
		case task, ok := <-w.taskQueue:
			if !ok {
				return
			}
			w.executeTask(id, task)
		case <-w.ctx.Done():
			return
		}
	}
}

// scan selects due pending tasks and feeds the pool. A full queue is not
// an error; leftovers are picked up by the next scan.
func (w *Worker) scan() {
	if depth, err := w.taskRepo.GetPendingCount(); err == nil {
		monitoring.SetPublishQueueDepth(depth)
	}

	tasks, err := w.taskRepo.GetDueTasks(time.Now(), scanBatchLimit)
	if err != nil {
		slog.Error("Failed to scan for due tasks", "error", err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	slog.Debug("Due publish tasks found", "count", len(tasks))

	for _, task := range tasks {
		select {
		case w.taskQueue <- task:
		case <-w.ctx.Done():
			return
		default:
			slog.Debug("Task queue full, remaining tasks wait for the next scan")
			return
		}
	}
}

// executeTask runs one task end to end. Quota rejections and a busy
// account leave the task pending untouched; only a claimed task ever
// changes state.
func (w *Worker) executeTask(workerID int, task database.PublishTask) {
	lock := w.accountLock(task.AccountID)
	if !lock.TryLock() {
		slog.Debug("Account busy, task stays pending",
			"worker_id", workerID, "task_id", task.ID, "account_id", task.AccountID)
		return
	}
	defer lock.Unlock()

	allowed, reason, err := w.quota.CanPublish(task.AccountID, time.Now())
	if err != nil {
		slog.Error("Quota check failed", "task_id", task.ID, "account_id", task.AccountID, "error", err)
		return
	}
	if !allowed {
		slog.Debug("Publish held back",
			"task_id", task.ID, "account_id", task.AccountID, "reason", reason)
		return
	}

	claimed, err := w.taskRepo.MarkRunning(task.ID)
	if err != nil {
		slog.Error("Failed to claim task", "task_id", task.ID, "error", err)
		return
	}
	if !claimed {
		slog.Debug("Task no longer pending, skipping", "task_id", task.ID)
		return
	}

	w.bus.Emit(events.EventTaskUpdate, task.ID, database.TaskStatusRunning, "")

	article, err := w.articleRepo.GetArticle(task.ArticleID)
	if err != nil {
		w.handleFailure(&task, fmt.Sprintf("failed to load article: %v", err))
		return
	}
	if article == nil {
		w.failTask(&task, "article no longer exists")
		return
	}

	account, err := w.accountRepo.GetAccount(task.AccountID)
	if err != nil {
		w.handleFailure(&task, fmt.Sprintf("failed to load account: %v", err))
		return
	}
	if account == nil {
		w.failTask(&task, "account no longer exists")
		return
	}

	slog.Debug("Publishing article",
		"worker_id", workerID, "task_id", task.ID, "article_id", article.ID, "account", account.Name)

	ctx, cancel := context.WithTimeout(w.ctx, w.publishTimeout)
	result, err := w.publisher.Publish(ctx, article, account)
	cancel()

	if err != nil {
		w.handleFailure(&task, fmt.Sprintf("publish failed: %v", err))
		return
	}
	if !result.Success {
		message := result.ErrorMessage
		if message == "" {
			message = "publisher reported failure"
		}
		w.handleFailure(&task, message)
		return
	}

	w.completeTask(&task, result)
}

func (w *Worker) completeTask(task *database.PublishTask, result *Result) {
	now := time.Now()

	if err := w.taskRepo.MarkSuccess(task.ID, result.ExternalURL, result.ScreenshotPath); err != nil {
		slog.Error("Failed to mark task success", "task_id", task.ID, "error", err)
	}
	if err := w.quota.RecordPublish(task.AccountID, now); err != nil {
		slog.Error("Failed to record publish on account", "account_id", task.AccountID, "error", err)
	}
	if err := w.articleRepo.MarkArticlePublished(task.ArticleID, result.ExternalURL, now); err != nil {
		slog.Error("Failed to mark article published", "article_id", task.ArticleID, "error", err)
	}

	monitoring.RecordPublishAttempt("success")
	w.bus.Emit(events.EventTaskUpdate, task.ID, database.TaskStatusSuccess, result.ExternalURL)

	slog.Info("Article published",
		"task_id", task.ID,
		"article_id", task.ArticleID,
		"account_id", task.AccountID,
		"url", result.ExternalURL)
}

// handleFailure requeues with backoff while attempts are left, otherwise
// finalizes. The retry budget is the total attempt count: a task with
// max_retries = 3 is terminal after its third failed attempt.
func (w *Worker) handleFailure(task *database.PublishTask, message string) {
	monitoring.RecordPublishAttempt("failure")

	if task.RetryCount+1 < task.MaxRetries {
		retryCount := task.RetryCount + 1
		delay := w.backoff(retryCount)
		scheduledAt := time.Now().Add(delay)

		if err := w.taskRepo.RequeueForRetry(task.ID, retryCount, scheduledAt, message); err != nil {
			slog.Error("Failed to requeue task", "task_id", task.ID, "error", err)
			return
		}

		w.bus.Emit(events.EventTaskUpdate, task.ID, database.TaskStatusPending,
			fmt.Sprintf("retry %d/%d in %s", retryCount, task.MaxRetries, delay.Round(time.Second)))
		slog.Warn("Publish failed, retry scheduled",
			"task_id", task.ID,
			"retry_count", retryCount,
			"max_retries", task.MaxRetries,
			"delay", delay.Round(time.Second).String(),
			"error", message)
		return
	}

	w.failTask(task, message)
}

func (w *Worker) failTask(task *database.PublishTask, message string) {
	if err := w.taskRepo.MarkFailed(task.ID, message); err != nil {
		slog.Error("Failed to mark task failed", "task_id", task.ID, "error", err)
	}
	if err := w.articleRepo.SetArticleStatus(task.ArticleID, database.ArticleStatusFailed); err != nil {
		slog.Error("Failed to mark article failed", "article_id", task.ArticleID, "error", err)
	}

	w.bus.Emit(events.EventTaskUpdate, task.ID, database.TaskStatusFailed, message)
	w.bus.Notify("publish", "Publish task failed",
		fmt.Sprintf("task %s: %s", task.ID, message), database.NotificationError)

	slog.Error("Publish task failed permanently",
		"task_id", task.ID,
		"article_id", task.ArticleID,
		"error", message)
}

// backoff returns the delay before retry n: the base doubled per retry,
// capped, plus a small random smear so recovering tasks do not hit the
// publisher in lockstep.
func (w *Worker) backoff(retryCount int) time.Duration {
	delay := w.backoffBase << uint(retryCount-1)
	if delay <= 0 || delay > w.backoffCap {
		delay = w.backoffCap
	}

	return delay + time.Duration(rand.Int63n(int64(retrySmearMax)))
}

func (w *Worker) accountLock(accountID string) *sync.Mutex {
	lock, _ := w.accountLocks.LoadOrStore(accountID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
