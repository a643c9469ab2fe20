package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Africa/Nairobi"

	configPathEnv      = "REX_SCRAPER_CONFIG"
	databaseDSNEnv     = "DATABASE_DSN"
	firecrawlAPIKeyEnv = "FIRECRAWL_API_KEY"
	firecrawlEndpntEnv = "FIRECRAWL_ENDPOINT"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	serverAddrEnv      = "REX_SCRAPER_ADDR"
)

// Validation errors returned by Validate; all of them are fatal before any
// component starts.
var (
	ErrMissingDSN        = errors.New("database.dsn is required")
	ErrPlaceholderDSN    = errors.New("database.dsn still holds a placeholder value")
	ErrMissingAPIKey     = errors.New("firecrawl.apiKey is required")
	ErrPlaceholderAPIKey = errors.New("firecrawl.apiKey still holds a placeholder value")
	ErrInvalidInterval   = errors.New("scheduler.scrapeIntervalHours must be at least 1")
	ErrInvalidURLCap     = errors.New("scraping.maxUrlsPerJob must be at least 1")
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Firecrawl     FirecrawlConfig    `yaml:"firecrawl"`
	Scraping      ScrapingConfig     `yaml:"scraping"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Server        ServerConfig       `yaml:"server"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// FirecrawlConfig defines how to contact the extraction service.
type FirecrawlConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// ScrapingConfig bounds a single orchestrator run.
type ScrapingConfig struct {
	// MaxURLsPerJob caps the candidate set after filtering known URLs.
	// The legacy execution paths disagreed on this value (50 client-side,
	// 20 edge-side); it is a single knob here.
	MaxURLsPerJob int `yaml:"maxUrlsPerJob"`
	SearchLimit   int `yaml:"searchLimit"`
	CrawlLimit    int `yaml:"crawlLimit"`
}

// SchedulerConfig defines recurring trigger cadence. All triggers fire in
// the configured timezone regardless of server locale.
type SchedulerConfig struct {
	Timezone            string         `yaml:"timezone"`
	ScrapeIntervalHours int            `yaml:"scrapeIntervalHours"`
	location            *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ServerConfig describes the admin HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
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

// Validate is the single fail-fast gate executed before any component
// starts. Placeholder credentials are rejected the same way missing ones
// are, so a copied sample config never half-boots the scraper.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Database.DSN) == "":
		return ErrMissingDSN
	case isPlaceholder(c.Database.DSN):
		return ErrPlaceholderDSN
	}

	switch {
	case strings.TrimSpace(c.Firecrawl.APIKey) == "":
		return ErrMissingAPIKey
	case isPlaceholder(c.Firecrawl.APIKey):
		return ErrPlaceholderAPIKey
	}

	if c.Scheduler.ScrapeIntervalHours < 1 {
		return ErrInvalidInterval
	}
	if c.Scraping.MaxURLsPerJob < 1 {
		return ErrInvalidURLCap
	}

	return nil
}

func isPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	return strings.Contains(v, "your-") || strings.Contains(v, "changeme")
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(firecrawlAPIKeyEnv); v != "" {
		c.Firecrawl.APIKey = v
	}

	if v := os.Getenv(firecrawlEndpntEnv); v != "" {
		c.Firecrawl.Endpoint = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
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
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Firecrawl.Endpoint != "" {
		base.Firecrawl.Endpoint = override.Firecrawl.Endpoint
	}
	if override.Firecrawl.APIKey != "" {
		base.Firecrawl.APIKey = override.Firecrawl.APIKey
	}

	if override.Scraping.MaxURLsPerJob != 0 {
		base.Scraping.MaxURLsPerJob = override.Scraping.MaxURLsPerJob
	}
	if override.Scraping.SearchLimit != 0 {
		base.Scraping.SearchLimit = override.Scraping.SearchLimit
	}
	if override.Scraping.CrawlLimit != 0 {
		base.Scraping.CrawlLimit = override.Scraping.CrawlLimit
	}

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.ScrapeIntervalHours != 0 {
		base.Scheduler.ScrapeIntervalHours = override.Scheduler.ScrapeIntervalHours
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Firecrawl: FirecrawlConfig{Endpoint: "https://api.firecrawl.dev"},
		Scraping: ScrapingConfig{
			MaxURLsPerJob: 50,
			SearchLimit:   10,
			CrawlLimit:    100,
		},
		Scheduler: SchedulerConfig{
			Timezone:            defaultTimezone,
			ScrapeIntervalHours: 6,
			location:            tz,
		},
		Server:  ServerConfig{Addr: ":8090"},
		Logging: LoggingConfig{Level: "info"},
	}
}
