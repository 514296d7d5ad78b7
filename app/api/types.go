package api

import (
	"context"
	"time"

	"github.com/lysyi3m/content-pilot/app/ai"
	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/events"
	"github.com/lysyi3m/content-pilot/app/generator"
	"github.com/lysyi3m/content-pilot/app/pilot"
	"github.com/lysyi3m/content-pilot/app/publish"
)

type PilotInterface interface {
	Trigger(directionID string) error
}

var _ PilotInterface = (*pilot.Pilot)(nil)

type QueueInterface interface {
	CreateTask(articleID, accountID string, scheduledAt *time.Time) (string, error)
	CreateBatch(articleIDs []string, accountID string, intervalMinutes int) ([]string, error)
	Cancel(taskID string) error
	Retry(taskID string) (string, error)
}

var _ QueueInterface = (*publish.Queue)(nil)

type GeneratorInterface interface {
	Run(ctx context.Context, req *generator.Request) (*generator.Result, error)
}

var _ GeneratorInterface = (*generator.Generator)(nil)

type RegistryInterface interface {
	Providers() []ai.ProviderInfo
	Count() int
	CheckHealth(ctx context.Context) map[string]error
}

var _ RegistryInterface = (*ai.Registry)(nil)

type Handler struct {
	directionRepo    database.DirectionRepository
	topicRepo        database.TopicRepository
	articleRepo      database.ArticleRepository
	taskRepo         database.TaskRepository
	accountRepo      database.AccountRepository
	notificationRepo database.NotificationRepository
	generator        GeneratorInterface
	pilot            PilotInterface
	queue            QueueInterface
	registry         RegistryInterface
	bus              *events.Bus
}

// directionRequest carries a direction create or update. Pointer fields
// distinguish "not provided" from a zero value so updates can be partial.
type directionRequest struct {
	Name               *string `json:"name"`
	Keywords           *string `json:"keywords"`
	Description        *string `json:"description"`
	Mode               *string `json:"mode"`
	Style              *string `json:"style"`
	WordCount          *int    `json:"word_count"`
	Provider           *string `json:"provider"`
	DailyCount         *int    `json:"daily_count"`
	AccountID          *string `json:"account_id"`
	AutoPublish        *bool   `json:"auto_publish"`
	PublishInterval    *int    `json:"publish_interval"`
	AntiDetectLevel    *int    `json:"anti_detect_level"`
	StartHour          *int    `json:"start_hour"`
	EndHour            *int    `json:"end_hour"`
	ActiveDays         []int64 `json:"active_days"`
	StartDate          *string `json:"start_date"`
	EndDate            *string `json:"end_date"`
	InspirationFeedURL *string `json:"inspiration_feed_url"`
	Enabled            *bool   `json:"enabled"`
}

type generateRequest struct {
	DirectionID string             `json:"direction_id" binding:"required"`
	Topic       string             `json:"topic"`
	Mode        string             `json:"mode"`
	Count       int                `json:"count"`
	References  []referencePayload `json:"references"`
}

// referencePayload lets operators pass source material directly instead
// of relying on the direction's inspiration feed.
type referencePayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type articleUpdateRequest struct {
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	Summary *string  `json:"summary"`
	Tags    []string `json:"tags"`
}

type taskCreateRequest struct {
	ArticleID   string `json:"article_id" binding:"required"`
	AccountID   string `json:"account_id" binding:"required"`
	ScheduledAt string `json:"scheduled_at"`
}

type taskBatchRequest struct {
	ArticleIDs      []string `json:"article_ids" binding:"required"`
	AccountID       string   `json:"account_id" binding:"required"`
	IntervalMinutes int      `json:"interval_minutes"`
}

type accountRequest struct {
	Name        *string `json:"name"`
	ProfileName *string `json:"profile_name"`
	DailyLimit  *int    `json:"daily_limit"`
	Enabled     *bool   `json:"enabled"`
}
