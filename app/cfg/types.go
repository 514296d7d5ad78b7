package cfg

// ProviderCfg holds the credentials and endpoint for one AI backend.
// A provider with an empty APIKey is treated as unconfigured.
type ProviderCfg struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// HTTP API configuration
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Pilot configuration
	DirectionsDir   string
	PilotInterval   int // minutes between direction scheduler ticks
	TopicAlternates int // alternates derived before giving up a cycle

	// Publish configuration
	PublishScanInterval int // seconds between pending-task scans
	WorkerCount         int
	MinPublishInterval  int // seconds between publishes on one account
	DefaultDailyLimit   int
	MaxRetries          int
	RetryBackoffBase    int // seconds, doubled per retry
	RetryBackoffCap     int // seconds
	BatchJitterWindow   int // minutes, symmetric window per batch task

	// Publisher driver
	PublisherMode  string // "http" or "dryrun"
	PublisherURL   string
	PublishTimeout int // seconds

	// Generation
	GenerationTimeout int // seconds per provider call
	Providers         map[string]ProviderCfg

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
