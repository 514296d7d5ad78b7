package database

import (
	"time"
)

// Generation modes for a content direction
const (
	ModeSingle = "single"
	ModeAgent  = "agent"
	ModeStory  = "story"
)

// Article statuses
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPending   = "pending"
	ArticleStatusPublished = "published"
	ArticleStatusFailed    = "failed"
)

// Publish task statuses
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusSuccess   = "success"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
)

// Story job stages
const (
	StoryStageExtract  = "extract"
	StoryStageOutline  = "outline"
	StoryStageChapters = "chapters"
	StoryStageAssemble = "assemble"
	StoryStagePolish   = "polish"
	StoryStageDone     = "done"
	StoryStageFailed   = "failed"
)

// Notification levels
const (
	NotificationInfo    = "info"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

// ContentDirection represents a standing content policy: what to write
// about, how, how often, and where to publish it.
type ContentDirection struct {
	ID                 string
	Name               string
	Keywords           string
	Description        string
	Mode               string // single, agent, story
	Style              string
	WordCount          int
	Provider           string // empty = auto-pick
	DailyCount         int
	IsActive           bool
	AccountID          string // empty = auto-pick
	AutoPublish        bool
	PublishInterval    int // minutes between queued tasks of one batch
	AntiDetectLevel    int // 0..3
	StartHour          *int
	EndHour            *int
	ActiveDays         []int64 // 0=Monday .. 6=Sunday; empty = every day
	StartDate          *time.Time
	EndDate            *time.Time
	InspirationFeedURL string
	GeneratedToday     int
	GeneratedTotal     int
	LastGeneratedAt    *time.Time
	CountResetAt       *time.Time
	LastError          string
	ConfigFile         string // set when managed by a seed file
	ConfigHash         string // content hash of the seed file at last sync
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// GeneratedTopic is one entry of the per-direction dedup ledger. Entries
// are inserted before generation is attempted and never removed.
type GeneratedTopic struct {
	ID          string
	DirectionID string
	Topic       string
	ContentHash string
	ArticleID   string // empty until generation completes
	CreatedAt   time.Time
}

// Article represents a generated or hand-authored content unit.
type Article struct {
	ID           string
	Title        string
	Content      string
	Summary      string
	Tags         []string
	WordCount    int
	Category     string
	Provider     string // empty = manual entry
	DirectionID  string
	Status       string
	SeriesID     string
	SeriesOrder  int
	PublishedURL string
	PublishedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublishTask is one scheduled or attempted publish action against a
// specific account.
type PublishTask struct {
	ID             string
	ArticleID      string
	AccountID      string
	Status         string
	ScheduledAt    *time.Time // nil = immediate
	RetryCount     int
	MaxRetries     int
	LastError      string
	ResultURL      string
	ScreenshotPath string
	CreatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
}

// Account is the ownership boundary for rate limiting and the external
// publisher capability.
type Account struct {
	ID                string
	Name              string
	ProfileName       string
	IsActive          bool
	DailyLimit        int
	PublishCountToday int
	PublishCountTotal int
	LastPublishAt     *time.Time
	CountResetAt      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Notification is an operator-visible event record written by the
// notification subscriber.
type Notification struct {
	ID        string
	Type      string
	Title     string
	Body      string
	Level     string
	Read      bool
	CreatedAt time.Time
}

// IsNewDay reports whether now falls on a later local calendar day than
// last. It drives the daily counter rolls keyed by the CountResetAt
// columns on directions and accounts; a nil last always rolls.
func IsNewDay(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}

	ly, lm, ld := last.Local().Date()
	ny, nm, nd := now.Local().Date()

	if ny != ly {
		return ny > ly
	}
	if nm != lm {
		return nm > lm
	}
	return nd > ld
}

// StoryJob tracks a multi-stage story generation run. The stage field is
// persisted on every transition so a restart mid-pipeline is detectable.
type StoryJob struct {
	ID            string
	DirectionID   string
	SourceText    string
	Style         string
	ChapterCount  int
	Stage         string
	ChapterCursor int
	ElementsJSON  string
	OutlineJSON   string
	SummariesJSON string
	ArticleID     string
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
