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
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/insights.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for source processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Duplicate linking tuning
	DuplicateThreshold   float64 `long:"duplicate-threshold" env:"DUPLICATE_THRESHOLD" default:"0.7" description:"Combined similarity score required to link posts into a duplicate group"`
	TitleWeight          float64 `long:"title-weight" env:"TITLE_WEIGHT" default:"0.5" description:"Title similarity weight for duplicate linking"`
	BodyWeight           float64 `long:"body-weight" env:"BODY_WEIGHT" default:"0.3" description:"Body similarity weight for duplicate linking"`
	TimeWeight           float64 `long:"time-weight" env:"TIME_WEIGHT" default:"0.2" description:"Time proximity weight for duplicate linking"`
	DuplicateWindowHours int     `long:"duplicate-window-hours" env:"DUPLICATE_WINDOW_HOURS" default:"48" description:"Recency window in hours for duplicate candidates"`

	// Topic analysis tuning
	LookbackDays  int   `long:"lookback-days" env:"LOOKBACK_DAYS" default:"7" description:"Lookback window in days for topic analysis"`
	TopicCount    int   `long:"topic-count" env:"TOPIC_COUNT" default:"5" description:"Number of topics to cluster"`
	WordsPerTopic int   `long:"words-per-topic" env:"WORDS_PER_TOPIC" default:"10" description:"Number of keywords per topic"`
	ClusterSeed   int64 `long:"cluster-seed" env:"CLUSTER_SEED" default:"42" description:"Random seed for deterministic clustering"`

	// Topic selection tuning
	ExcludeDays    int  `long:"exclude-days" env:"EXCLUDE_DAYS" default:"30" description:"Days during which a used topic cannot be reselected"`
	MinPosts       int  `long:"min-posts" env:"MIN_POSTS" default:"3" description:"Minimum posts a topic needs to be selectable"`
	PreferTrending bool `long:"prefer-trending" env:"PREFER_TRENDING" description:"Prefer trending topics when selecting"`

	// Content generation
	LLMEndpoint     string `long:"llm-endpoint" env:"LLM_ENDPOINT" default:"https://api.openai.com/v1" description:"OpenAI-compatible API base URL"`
	LLMAPIKey       string `long:"llm-api-key" env:"LLM_API_KEY" description:"API key for the content generator"`
	LLMModel        string `long:"llm-model" env:"LLM_MODEL" default:"gpt-4o-mini" description:"Model used for content generation"`
	ContentFormat   string `long:"content-format" env:"CONTENT_FORMAT" default:"long_post" description:"Generated content format (long_post, reel, thread)"`
	ContentTone     string `long:"content-tone" env:"CONTENT_TONE" default:"professional" description:"Generated content tone"`
	ContentLanguage string `long:"content-language" env:"CONTENT_LANGUAGE" default:"en" description:"Generated content language"`

	// Publishing
	TelegramToken   string `long:"telegram-token" env:"TELEGRAM_TOKEN" description:"Telegram bot token (publishing disabled when empty)"`
	TelegramChannel string `long:"telegram-channel" env:"TELEGRAM_CHANNEL" description:"Telegram channel (@name or chat id)"`
	RenderEndpoint  string `long:"render-endpoint" env:"RENDER_ENDPOINT" description:"Render service URL for share card images (rendering disabled when empty)"`
	EnablePublish   bool   `long:"enable-publish" env:"ENABLE_PUBLISH" description:"Enable publishing generated content"`
	PublishRetries  int    `long:"publish-retries" env:"PUBLISH_RETRIES" default:"3" description:"Retry attempts for rate-limited publish calls"`

	// Pipeline scheduling
	PipelineInterval int `long:"pipeline-interval" env:"PIPELINE_INTERVAL" default:"0" description:"Interval in seconds between scheduled pipeline runs (0 disables)"`

	// Retention
	PostRetentionDays      int `long:"post-retention-days" env:"POST_RETENTION_DAYS" default:"60" description:"Delete posts older than this many days"`
	UsedTopicRetentionDays int `long:"used-topic-retention-days" env:"USED_TOPIC_RETENTION_DAYS" default:"90" description:"Delete used topic records older than this many days"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"NewsInsightParser/2.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
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
		DBPath:                 raw.DBPath,
		SourcesDir:             raw.SourcesDir,
		Port:                   raw.Port,
		WorkerCount:            raw.WorkerCount,
		SchedulerInterval:      raw.SchedulerInterval,
		APIAccessKey:           raw.APIAccessKey,
		DuplicateThreshold:     raw.DuplicateThreshold,
		TitleWeight:            raw.TitleWeight,
		BodyWeight:             raw.BodyWeight,
		TimeWeight:             raw.TimeWeight,
		DuplicateWindowHours:   raw.DuplicateWindowHours,
		LookbackDays:           raw.LookbackDays,
		TopicCount:             raw.TopicCount,
		WordsPerTopic:          raw.WordsPerTopic,
		ClusterSeed:            raw.ClusterSeed,
		ExcludeDays:            raw.ExcludeDays,
		MinPosts:               raw.MinPosts,
		PreferTrending:         raw.PreferTrending,
		LLMEndpoint:            raw.LLMEndpoint,
		LLMAPIKey:              raw.LLMAPIKey,
		LLMModel:               raw.LLMModel,
		ContentFormat:          raw.ContentFormat,
		ContentTone:            raw.ContentTone,
		ContentLanguage:        raw.ContentLanguage,
		TelegramToken:          raw.TelegramToken,
		TelegramChannel:        raw.TelegramChannel,
		RenderEndpoint:         raw.RenderEndpoint,
		EnablePublish:          raw.EnablePublish,
		PublishRetries:         raw.PublishRetries,
		PipelineInterval:       raw.PipelineInterval,
		PostRetentionDays:      raw.PostRetentionDays,
		UsedTopicRetentionDays: raw.UsedTopicRetentionDays,
		UserAgent:              raw.UserAgent,
		Timezone:               raw.Timezone,
		Debug:                  raw.Debug,
		Version:                GetVersion(),
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

// Set installs a configuration directly, bypassing flag parsing. Intended
// for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
