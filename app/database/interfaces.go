package database

import (
	"time"
)

type DirectionRepository interface {
	GetDirection(id string) (*ContentDirection, error)
	GetDirectionByConfigFile(configFile string) (*ContentDirection, error)
	GetAllDirections() ([]ContentDirection, error)
	GetActiveDirections() ([]ContentDirection, error)
	GetDirectionCount() (int, error)
	GetActiveDirectionCount() (int, error)

	CreateDirection(d *ContentDirection) (string, error)
	UpdateDirection(d *ContentDirection) error
	UpsertSeedDirection(configFile string, d *ContentDirection) (string, bool, error)
	DeleteDirection(id string) error
	SetDirectionActive(id string, active bool) error

	IncrementGenerated(id string, now time.Time) error
	ResetDailyCount(id string, resetAt time.Time) error
	SetDirectionError(id string, message string) error
}

type TopicRepository interface {
	CheckDuplicate(directionID, contentHash string) (bool, *string, error)
	RecordTopic(directionID, topic, contentHash string) (string, bool, error)
	LinkArticle(topicID, articleID string) error
	GetTopicsByDirection(directionID string, limit int) ([]GeneratedTopic, error)
	GetTopicCount(directionID string) (int, error)
}

type ArticleRepository interface {
	CreateArticle(a *Article) (string, error)
	GetArticle(id string) (*Article, error)
	GetArticles(status, directionID string, limit, offset int) ([]Article, error)
	GetArticlesBySeries(seriesID string) ([]Article, error)
	GetArticleStats() (map[string]int, error)

	UpdateArticleDraft(id, title, content, summary string, tags []string, wordCount int) error
	SetArticleStatus(id, status string) error
	MarkArticlePublished(id, url string, publishedAt time.Time) error
	DeleteArticle(id string) error
}

type TaskRepository interface {
	CreateTask(articleID, accountID string, scheduledAt *time.Time, maxRetries int) (string, error)
	GetTask(id string) (*PublishTask, error)
	GetTasks(status, accountID string, limit, offset int) ([]PublishTask, error)
	GetDueTasks(now time.Time, limit int) ([]PublishTask, error)
	GetPendingCount() (int, error)
	GetTaskStats() (map[string]int, error)

	MarkRunning(id string) (bool, error)
	MarkSuccess(id, resultURL, screenshotPath string) error
	RequeueForRetry(id string, retryCount int, scheduledAt time.Time, lastError string) error
	MarkFailed(id, lastError string) error
	CancelTask(id string) (bool, string, error)
	FailInterruptedTasks(message string) (int, error)
}

type AccountRepository interface {
	GetAccount(id string) (*Account, error)
	GetAllAccounts() ([]Account, error)
	PickAccountForPublish() (*Account, error)

	CreateAccount(a *Account) (string, error)
	UpdateAccount(a *Account) error

	RecordPublish(id string, publishedAt time.Time) error
	ResetDailyCount(id string, resetAt time.Time) error
}

type NotificationRepository interface {
	CreateNotification(ntype, title, body, level string) error
	GetNotifications(unreadOnly bool, limit int) ([]Notification, error)
	MarkNotificationRead(id string) error
	MarkAllNotificationsRead() error
}

type StoryRepository interface {
	CreateJob(j *StoryJob) (string, error)
	GetJob(id string) (*StoryJob, error)
	UpdateStage(id, stage string, cursor int, elementsJSON, outlineJSON, summariesJSON string) error
	MarkJobDone(id, articleID string) error
	MarkJobFailed(id, message string) error
	FailInterruptedJobs(message string) (int, error)
}
