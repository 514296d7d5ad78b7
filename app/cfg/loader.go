package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"pilot_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"pilot_password" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"content_pilot" description:"Database name"`

	// HTTP API configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Pilot configuration
	DirectionsDir   string `long:"directions-dir" env:"DIRECTIONS_DIR" description:"Directory containing direction seed files (optional)"`
	PilotInterval   int    `long:"pilot-interval" env:"PILOT_INTERVAL" default:"30" description:"Direction scheduler tick interval in minutes"`
	TopicAlternates int    `long:"topic-alternates" env:"TOPIC_ALTERNATES" default:"3" description:"Alternate topics derived per cycle before giving up on duplicates"`

	// Publish configuration
	PublishScanInterval int `long:"publish-scan-interval" env:"PUBLISH_SCAN_INTERVAL" default:"120" description:"Pending publish task scan interval in seconds"`
	WorkerCount         int `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for publish execution"`
	MinPublishInterval  int `long:"min-publish-interval" env:"MIN_PUBLISH_INTERVAL" default:"300" description:"Minimum seconds between publishes on one account"`
	DefaultDailyLimit   int `long:"daily-publish-limit" env:"DAILY_PUBLISH_LIMIT" default:"5" description:"Default per-account daily publish limit"`
	MaxRetries          int `long:"max-retry-count" env:"MAX_RETRY_COUNT" default:"3" description:"Maximum publish retries before a task is failed"`
	RetryBackoffBase    int `long:"retry-backoff-base" env:"RETRY_BACKOFF_BASE" default:"60" description:"Base retry backoff in seconds, doubled per attempt"`
	RetryBackoffCap     int `long:"retry-backoff-cap" env:"RETRY_BACKOFF_CAP" default:"1800" description:"Retry backoff cap in seconds"`
	BatchJitterWindow   int `long:"batch-jitter" env:"BATCH_JITTER" default:"5" description:"Batch schedule jitter window in minutes (symmetric)"`

	// Publisher driver
	PublisherMode  string `long:"publisher-mode" env:"PUBLISHER_MODE" default:"dryrun" choice:"dryrun" choice:"http" description:"Publisher driver mode"`
	PublisherURL   string `long:"publisher-url" env:"PUBLISHER_URL" description:"Base URL of the browser automation driver (http mode)"`
	PublishTimeout int    `long:"publish-timeout" env:"PUBLISH_TIMEOUT" default:"180" description:"Timeout for one publish attempt in seconds"`

	// Generation
	GenerationTimeout int `long:"generation-timeout" env:"GENERATION_TIMEOUT" default:"120" description:"Timeout for one AI provider call in seconds"`

	// AI provider credentials. A provider without an API key is skipped.
	OpenAIAPIKey    string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	OpenAIBaseURL   string `long:"openai-base-url" env:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" description:"OpenAI base URL"`
	OpenAIModel     string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-5" description:"OpenAI model"`
	DeepSeekAPIKey  string `long:"deepseek-api-key" env:"DEEPSEEK_API_KEY" description:"DeepSeek API key"`
	DeepSeekBaseURL string `long:"deepseek-base-url" env:"DEEPSEEK_BASE_URL" default:"https://api.deepseek.com/v1" description:"DeepSeek base URL"`
	DeepSeekModel   string `long:"deepseek-model" env:"DEEPSEEK_MODEL" default:"deepseek-chat" description:"DeepSeek model"`
	ClaudeAPIKey    string `long:"claude-api-key" env:"CLAUDE_API_KEY" description:"Anthropic API key"`
	ClaudeBaseURL   string `long:"claude-base-url" env:"CLAUDE_BASE_URL" default:"https://api.anthropic.com" description:"Anthropic base URL"`
	ClaudeModel     string `long:"claude-model" env:"CLAUDE_MODEL" default:"claude-sonnet-4-5" description:"Anthropic model"`
	QwenAPIKey      string `long:"qwen-api-key" env:"QWEN_API_KEY" description:"Qwen API key"`
	QwenBaseURL     string `long:"qwen-base-url" env:"QWEN_BASE_URL" default:"https://dashscope.aliyuncs.com/compatible-mode/v1" description:"Qwen base URL"`
	QwenModel       string `long:"qwen-model" env:"QWEN_MODEL" default:"qwen3-max" description:"Qwen model"`
	ZhipuAPIKey     string `long:"zhipu-api-key" env:"ZHIPU_API_KEY" description:"Zhipu API key"`
	ZhipuBaseURL    string `long:"zhipu-base-url" env:"ZHIPU_BASE_URL" default:"https://open.bigmodel.cn/api/paas/v4" description:"Zhipu base URL"`
	ZhipuModel      string `long:"zhipu-model" env:"ZHIPU_MODEL" default:"glm-4.6" description:"Zhipu model"`
	MoonshotAPIKey  string `long:"moonshot-api-key" env:"MOONSHOT_API_KEY" description:"Moonshot API key"`
	MoonshotBaseURL string `long:"moonshot-base-url" env:"MOONSHOT_BASE_URL" default:"https://api.moonshot.cn/v1" description:"Moonshot base URL"`
	MoonshotModel   string `long:"moonshot-model" env:"MOONSHOT_MODEL" default:"kimi-k2-0905-preview" description:"Moonshot model"`
	DoubaoAPIKey    string `long:"doubao-api-key" env:"DOUBAO_API_KEY" description:"Doubao API key"`
	DoubaoBaseURL   string `long:"doubao-base-url" env:"DOUBAO_BASE_URL" default:"https://ark.cn-beijing.volces.com/api/v3" description:"Doubao base URL"`
	DoubaoModel     string `long:"doubao-model" env:"DOUBAO_MODEL" default:"doubao-seed-1-6-250615" description:"Doubao model"`
	GeminiAPIKey    string `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key"`
	GeminiBaseURL   string `long:"gemini-base-url" env:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta/openai" description:"Gemini base URL"`
	GeminiModel     string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.5-flash" description:"Gemini model"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Content Pilot/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for schedules and daily resets (e.g., UTC, Asia/Shanghai)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:              raw.DBHost,
		DBPort:              raw.DBPort,
		DBUser:              raw.DBUser,
		DBPassword:          raw.DBPassword,
		DBName:              raw.DBName,
		Port:                raw.Port,
		BaseUrl:             raw.BaseUrl,
		APIAccessKey:        raw.APIAccessKey,
		DirectionsDir:       raw.DirectionsDir,
		PilotInterval:       raw.PilotInterval,
		TopicAlternates:     raw.TopicAlternates,
		PublishScanInterval: raw.PublishScanInterval,
		WorkerCount:         raw.WorkerCount,
		MinPublishInterval:  raw.MinPublishInterval,
		DefaultDailyLimit:   raw.DefaultDailyLimit,
		MaxRetries:          raw.MaxRetries,
		RetryBackoffBase:    raw.RetryBackoffBase,
		RetryBackoffCap:     raw.RetryBackoffCap,
		BatchJitterWindow:   raw.BatchJitterWindow,
		PublisherMode:       raw.PublisherMode,
		PublisherURL:        raw.PublisherURL,
		PublishTimeout:      raw.PublishTimeout,
		GenerationTimeout:   raw.GenerationTimeout,
		Providers:           buildProviders(&raw),
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func buildProviders(raw *rawCfg) map[string]ProviderCfg {
	return map[string]ProviderCfg{
		"openai":   {APIKey: raw.OpenAIAPIKey, BaseURL: raw.OpenAIBaseURL, Model: raw.OpenAIModel},
		"deepseek": {APIKey: raw.DeepSeekAPIKey, BaseURL: raw.DeepSeekBaseURL, Model: raw.DeepSeekModel},
		"claude":   {APIKey: raw.ClaudeAPIKey, BaseURL: raw.ClaudeBaseURL, Model: raw.ClaudeModel},
		"qwen":     {APIKey: raw.QwenAPIKey, BaseURL: raw.QwenBaseURL, Model: raw.QwenModel},
		"zhipu":    {APIKey: raw.ZhipuAPIKey, BaseURL: raw.ZhipuBaseURL, Model: raw.ZhipuModel},
		"moonshot": {APIKey: raw.MoonshotAPIKey, BaseURL: raw.MoonshotBaseURL, Model: raw.MoonshotModel},
		"doubao":   {APIKey: raw.DoubaoAPIKey, BaseURL: raw.DoubaoBaseURL, Model: raw.DoubaoModel},
		"gemini":   {APIKey: raw.GeminiAPIKey, BaseURL: raw.GeminiBaseURL, Model: raw.GeminiModel},
	}
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
