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
	configPathEnv    = "MENTION_SCANNER_CONFIG"
	feedsEnv         = "RSS_FEEDS"
	keywordsEnv      = "KEYWORDS"
	urgentEnv        = "ALERT_KEYWORDS_URGENT"
	storageEngineEnv = "STORAGE_ENGINE"
	databaseDSNEnv   = "DATABASE_DSN"
	serverAddrEnv    = "SERVER_ADDR"
	resendAPIKeyEnv  = "RESEND_API_KEY"
	emailFromEnv     = "ALERT_EMAIL_FROM"
	emailToEnv       = "ALERT_EMAIL_TO"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
	scanIntervalEnv  = "SCAN_INTERVAL"
	logLevelEnv      = "LOG_LEVEL"
)

// Storage engine names accepted by StorageConfig.Engine.
const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
)

// Errors reported by Validate when a collection pass cannot run.
var (
	ErrMissingFeeds    = errors.New("missing RSS_FEEDS")
	ErrMissingKeywords = errors.New("missing KEYWORDS")
)

// Config holds high-level settings required across the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Storage       StorageConfig      `yaml:"storage"`
	Feeds         []string           `yaml:"feeds"`
	Keywords      []string           `yaml:"keywords"`
	Urgent        []string           `yaml:"urgent"`
	Mentions      MentionsConfig     `yaml:"mentions"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig selects the mention store backend.
type StorageConfig struct {
	Engine string `yaml:"engine"`
	DSN    string `yaml:"dsn"`
}

// MentionsConfig bounds the recency index and the read path.
type MentionsConfig struct {
	// Max is the recency index capacity; the lowest-scored excess rows
	// are evicted on insert.
	Max int `yaml:"max"`
	// DefaultLimit applies when the read endpoint gets no limit parameter.
	DefaultLimit int `yaml:"defaultLimit"`
}

// NotificationConfig encapsulates outbound alert channels.
type NotificationConfig struct {
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// EmailConfig wires a Resend-compatible email API.
type EmailConfig struct {
	Endpoint string   `yaml:"endpoint"`
	APIKey   string   `yaml:"apiKey"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// TelegramConfig wires all data required to send chat messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines the optional in-process collection interval.
// An empty interval disables scheduled runs; collection then happens only
// through the HTTP trigger.
type SchedulerConfig struct {
	// Interval is a Go duration string, e.g. "15m".
	Interval string `yaml:"interval"`
}

// Duration resolves the interval string; empty or invalid values disable
// the scheduler.
func (s SchedulerConfig) Duration() time.Duration {
	if s.Interval == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d < 0 {
		return 0
	}
	return d
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
	cfg.normalize()

	return cfg
}

// Validate reports whether a collection pass may run with this configuration.
func (c Config) Validate() error {
	if len(c.Feeds) == 0 {
		return ErrMissingFeeds
	}
	if len(c.Keywords) == 0 {
		return ErrMissingKeywords
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(feedsEnv); v != "" {
		c.Feeds = SplitList(v)
	}
	if v := os.Getenv(keywordsEnv); v != "" {
		c.Keywords = SplitList(v)
	}
	if v := os.Getenv(urgentEnv); v != "" {
		c.Urgent = SplitList(v)
	}
	if v := os.Getenv(storageEngineEnv); v != "" {
		c.Storage.Engine = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(resendAPIKeyEnv); v != "" {
		c.Notifications.Email.APIKey = v
	}
	if v := os.Getenv(emailFromEnv); v != "" {
		c.Notifications.Email.From = v
	}
	if v := os.Getenv(emailToEnv); v != "" {
		c.Notifications.Email.To = SplitList(v)
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(scanIntervalEnv); v != "" {
		c.Scheduler.Interval = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

// normalize lower-cases keyword lists once so matching never re-folds them.
func (c *Config) normalize() {
	c.Keywords = lowerAll(c.Keywords)
	c.Urgent = lowerAll(c.Urgent)
	if c.Mentions.Max <= 0 {
		c.Mentions.Max = defaultConfig().Mentions.Max
	}
	if c.Mentions.DefaultLimit <= 0 {
		c.Mentions.DefaultLimit = defaultConfig().Mentions.DefaultLimit
	}
	if c.Scheduler.Interval != "" {
		if _, err := time.ParseDuration(c.Scheduler.Interval); err != nil {
			log.Printf("config: invalid scan interval %q: %v (scheduler disabled)", c.Scheduler.Interval, err)
			c.Scheduler.Interval = ""
		}
	}
}

// SplitList parses a comma-separated value into trimmed, non-empty items.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func lowerAll(items []string) []string {
	lowered := make([]string, 0, len(items))
	for _, item := range items {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(item)))
	}
	return lowered
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if override.Storage.Engine != "" {
		base.Storage.Engine = override.Storage.Engine
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}
	if len(override.Keywords) > 0 {
		base.Keywords = override.Keywords
	}
	if len(override.Urgent) > 0 {
		base.Urgent = override.Urgent
	}

	if override.Mentions.Max > 0 {
		base.Mentions.Max = override.Mentions.Max
	}
	if override.Mentions.DefaultLimit > 0 {
		base.Mentions.DefaultLimit = override.Mentions.DefaultLimit
	}

	if override.Notifications.Email.Endpoint != "" {
		base.Notifications.Email.Endpoint = override.Notifications.Email.Endpoint
	}
	if override.Notifications.Email.APIKey != "" {
		base.Notifications.Email.APIKey = override.Notifications.Email.APIKey
	}
	if override.Notifications.Email.From != "" {
		base.Notifications.Email.From = override.Notifications.Email.From
	}
	if len(override.Notifications.Email.To) > 0 {
		base.Notifications.Email.To = override.Notifications.Email.To
	}
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Scheduler.Interval != "" {
		base.Scheduler.Interval = override.Scheduler.Interval
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{Engine: EngineSQLite, DSN: "mentions.db"},
		Mentions: MentionsConfig{
			Max:          5000,
			DefaultLimit: 200,
		},
		Notifications: NotificationConfig{
			Email: EmailConfig{Endpoint: "https://api.resend.com/emails"},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
