package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "NEWSRELAY_CONFIG"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	redisURLEnv       = "REDIS_URL"
	logLevelEnv       = "LOG_LEVEL"
	httpAddrEnv       = "HTTP_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Lease         LeaseConfig        `yaml:"lease"`
	HTTP          HTTPConfig         `yaml:"http"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Dedup         DedupConfig        `yaml:"dedup"`
	Notifications NotificationConfig `yaml:"notifications"`
	ML            MLConfig           `yaml:"ml"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Sources       []SourceConfig     `yaml:"sources" validate:"dive"`
	Aggregator    AggregatorConfig   `yaml:"aggregator"`
	Sites         []SiteConfig       `yaml:"sites" validate:"dive"`
	Feeds         []FeedConfig       `yaml:"feeds" validate:"dive"`
}

// LoggingConfig selects verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// DatabaseConfig describes the SQL store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=postgres sqlite"`
	DSN    string `yaml:"dsn" validate:"required"`
}

// SchedulerConfig defines when and how invocations are paced.
type SchedulerConfig struct {
	CronExpression        string         `yaml:"cronExpression"`
	Timezone              string         `yaml:"timezone"`
	StartTime             string         `yaml:"startTime" validate:"omitempty,datetime=15:04"`
	UpdateIntervalMinutes int            `yaml:"updateIntervalMinutes" validate:"gte=0"`
	MaxPostsPerDay        int            `yaml:"maxPostsPerDay" validate:"gte=0"`
	LockTTL               time.Duration  `yaml:"lockTtl"`
	RunBudget             time.Duration  `yaml:"runBudget"`
	location              *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LeaseConfig picks the lock implementation guarding invocations.
type LeaseConfig struct {
	Backend  string `yaml:"backend" validate:"omitempty,oneof=store redis"`
	RedisURL string `yaml:"redisUrl" validate:"required_if=Backend redis"`
	Key      string `yaml:"key"`
}

// HTTPConfig configures the trigger API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// FetchConfig bounds outbound requests.
type FetchConfig struct {
	UserAgent        string        `yaml:"userAgent"`
	SourceTimeout    time.Duration `yaml:"sourceTimeout"`
	ArticleTimeout   time.Duration `yaml:"articleTimeout"`
	MinContentLength int           `yaml:"minContentLength" validate:"gte=0"`
}

// DedupConfig tunes the near-duplicate layer.
type DedupConfig struct {
	SemanticWindow    time.Duration `yaml:"semanticWindow"`
	SemanticThreshold float64       `yaml:"semanticThreshold" validate:"gte=0,lte=1"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId" validate:"omitempty,numeric"`
}

// MLConfig describes the category inference service.
type MLConfig struct {
	InferenceURL string `yaml:"inferenceUrl" validate:"omitempty,url"`
	APIKey       string `yaml:"apiKey"`
}

// ChatGPTConfig defines how to contact the summary model.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint" validate:"omitempty,url"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
	Concurrency  int    `yaml:"concurrency" validate:"gte=0"`
}

// SourceConfig is one link of the priority-ordered source chain.
type SourceConfig struct {
	ID       string `yaml:"id" validate:"required"`
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind" validate:"required,oneof=aggregator_search direct_site subscribed_feed"`
	Priority int    `yaml:"priority"`
	Enabled  bool   `yaml:"enabled"`
}

// AggregatorConfig drives the search-results adapter.
type AggregatorConfig struct {
	SearchURL       string   `yaml:"searchUrl" validate:"omitempty,url"`
	Query           string   `yaml:"query"`
	Selectors       []string `yaml:"selectors"`
	MaxResults      int      `yaml:"maxResults" validate:"gte=0"`
	MinPathSegments int      `yaml:"minPathSegments" validate:"gte=0"`
}

// SiteConfig describes a single site scraped through its listing page.
type SiteConfig struct {
	Name         string `yaml:"name" validate:"required"`
	ListingURL   string `yaml:"listingUrl" validate:"required,url"`
	LinkSelector string `yaml:"linkSelector"`
}

// FeedConfig seeds a subscribed feed into the store.
type FeedConfig struct {
	ID              string `yaml:"id" validate:"required"`
	Name            string `yaml:"name"`
	URL             string `yaml:"url" validate:"required,url"`
	Enabled         bool   `yaml:"enabled"`
	CooldownMinutes int    `yaml:"cooldownMinutes" validate:"gte=0"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate checks struct constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := map[string]struct{}{}
	for _, src := range c.Sources {
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("invalid config: duplicate source id %s", src.ID)
		}
		seen[src.ID] = struct{}{}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(redisURLEnv); v != "" {
		c.Lease.RedisURL = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	base.Scheduler = mergeScheduler(base.Scheduler, override.Scheduler)

	if override.Lease.Backend != "" {
		base.Lease.Backend = override.Lease.Backend
	}
	if override.Lease.RedisURL != "" {
		base.Lease.RedisURL = override.Lease.RedisURL
	}
	if override.Lease.Key != "" {
		base.Lease.Key = override.Lease.Key
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}
	if override.Fetch.SourceTimeout > 0 {
		base.Fetch.SourceTimeout = override.Fetch.SourceTimeout
	}
	if override.Fetch.ArticleTimeout > 0 {
		base.Fetch.ArticleTimeout = override.Fetch.ArticleTimeout
	}
	if override.Fetch.MinContentLength > 0 {
		base.Fetch.MinContentLength = override.Fetch.MinContentLength
	}

	if override.Dedup.SemanticWindow > 0 {
		base.Dedup.SemanticWindow = override.Dedup.SemanticWindow
	}
	if override.Dedup.SemanticThreshold > 0 {
		base.Dedup.SemanticThreshold = override.Dedup.SemanticThreshold
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.ML.InferenceURL != "" {
		base.ML.InferenceURL = override.ML.InferenceURL
	}
	if override.ML.APIKey != "" {
		base.ML.APIKey = override.ML.APIKey
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}
	if override.ChatGPT.Concurrency > 0 {
		base.ChatGPT.Concurrency = override.ChatGPT.Concurrency
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	if override.Aggregator.SearchURL != "" {
		base.Aggregator.SearchURL = override.Aggregator.SearchURL
	}
	if override.Aggregator.Query != "" {
		base.Aggregator.Query = override.Aggregator.Query
	}
	if len(override.Aggregator.Selectors) > 0 {
		base.Aggregator.Selectors = override.Aggregator.Selectors
	}
	if override.Aggregator.MaxResults > 0 {
		base.Aggregator.MaxResults = override.Aggregator.MaxResults
	}
	if override.Aggregator.MinPathSegments > 0 {
		base.Aggregator.MinPathSegments = override.Aggregator.MinPathSegments
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}
	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func mergeScheduler(base, override SchedulerConfig) SchedulerConfig {
	if override.CronExpression != "" {
		base.CronExpression = override.CronExpression
	}
	if override.Timezone != "" {
		base.Timezone = override.Timezone
	}
	if override.StartTime != "" {
		base.StartTime = override.StartTime
	}
	if override.UpdateIntervalMinutes > 0 {
		base.UpdateIntervalMinutes = override.UpdateIntervalMinutes
	}
	if override.MaxPostsPerDay > 0 {
		base.MaxPostsPerDay = override.MaxPostsPerDay
	}
	if override.LockTTL > 0 {
		base.LockTTL = override.LockTTL
	}
	if override.RunBudget > 0 {
		base.RunBudget = override.RunBudget
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:newsrelay.db?_pragma=busy_timeout(5000)"},
		Scheduler: SchedulerConfig{
			CronExpression:        "*/5 * * * *",
			Timezone:              defaultTimezone,
			StartTime:             "06:00",
			UpdateIntervalMinutes: 30,
			LockTTL:               10 * time.Minute,
			RunBudget:             45 * time.Second,
			location:              tz,
		},
		Lease: LeaseConfig{Backend: "store", Key: "newsrelay:gate"},
		HTTP:  HTTPConfig{Addr: ":8080"},
		Fetch: FetchConfig{
			UserAgent:        "Mozilla/5.0 (compatible; NewsRelay/1.0)",
			SourceTimeout:    10 * time.Second,
			ArticleTimeout:   15 * time.Second,
			MinContentLength: 200,
		},
		Dedup: DedupConfig{SemanticWindow: 24 * time.Hour, SemanticThreshold: 0.92},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You summarize news articles in three neutral sentences.",
			Concurrency:  2,
		},
		Sources: []SourceConfig{
			{ID: "aggregator", Name: "News search", Kind: "aggregator_search", Priority: 1, Enabled: true},
			{ID: "sites", Name: "Known sites", Kind: "direct_site", Priority: 2, Enabled: true},
			{ID: "feeds", Name: "Subscribed feeds", Kind: "subscribed_feed", Priority: 3, Enabled: true},
		},
		Aggregator: AggregatorConfig{
			SearchURL: "https://www.bing.com/news/search?q=%s",
			Query:     "world news",
			Selectors: []string{
				"a.title[href]",
				"div.news-card a[href]",
				"article h3 a[href]",
				"h3 a[href]",
			},
			MaxResults:      5,
			MinPathSegments: 2,
		},
		Sites: []SiteConfig{
			{Name: "bbc", ListingURL: "https://www.bbc.com/news", LinkSelector: "a[href*='/news/articles/']"},
		},
		Feeds: []FeedConfig{
			{ID: "reuters-world", Name: "Reuters World", URL: "https://feeds.reuters.com/Reuters/worldNews", Enabled: true, CooldownMinutes: 60},
		},
	}
}
