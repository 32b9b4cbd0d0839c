// Package config defines the top-level configuration for oraclebot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/quarterpin/oraclebot/internal/notify"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ORACLEBOT_* environment
// variables.
type Config struct {
	OddsAPI  OddsAPIConfig  `toml:"odds_api"`
	Gemini   GeminiConfig   `toml:"gemini"`
	Apify    ApifyConfig    `toml:"apify"`
	SportsDB SportsDBConfig `toml:"sportsdb"`
	Scan     ScanConfig     `toml:"scan"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Telegram TelegramConfig `toml:"telegram"`
	Worker   WorkerConfig   `toml:"worker"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Vault    VaultConfig    `toml:"vault"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// OddsAPIConfig holds The Odds API endpoint and request parameters. The API
// key may instead live encrypted in the settings store; a non-empty value
// here takes precedence.
type OddsAPIConfig struct {
	BaseURL           string `toml:"base_url"`
	ApiKey            string `toml:"api_key"`
	Regions           string `toml:"regions"`
	Markets           string `toml:"markets"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// GeminiConfig holds the Gemini generateContent endpoint and model choice.
type GeminiConfig struct {
	BaseURL string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// ApifyConfig holds the Apify actor used for social-sentiment scraping.
type ApifyConfig struct {
	BaseURL    string `toml:"base_url"`
	ApiKey     string `toml:"api_key"`
	ActorID    string `toml:"actor_id"`
	TweetCount int    `toml:"tweet_count"`
}

// SportsDBConfig holds TheSportsDB results API parameters.
type SportsDBConfig struct {
	BaseURL string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
}

// ScanConfig holds the arbitrage scan loop parameters.
type ScanConfig struct {
	// Sports is the list of provider sport keys to scan, e.g. "soccer_epl".
	Sports []string `toml:"sports"`
	// Interval is the delay between scan cycles.
	Interval duration `toml:"interval"`
	// SportsCacheTTL / OddsCacheTTL bound how stale cached provider
	// responses may be.
	SportsCacheTTL duration `toml:"sports_cache_ttl"`
	OddsCacheTTL   duration `toml:"odds_cache_ttl"`
	// SnapshotOdds archives every raw odds response to object storage.
	SnapshotOdds bool `toml:"snapshot_odds"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// TelegramConfig holds the bot credentials and interaction limits.
type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
	// AdminChatIDs bootstrap the admins table on first run.
	AdminChatIDs []int64 `toml:"admin_chat_ids"`
	// HistoryPageSize caps how many history rows one message shows.
	HistoryPageSize int `toml:"history_page_size"`
	// MaxEventsPerSport caps the events listed in the match menu.
	MaxEventsPerSport int `toml:"max_events_per_sport"`
}

// WorkerConfig holds the background worker parameters.
type WorkerConfig struct {
	// PollInterval is the delay between analysis-queue polls.
	PollInterval duration `toml:"poll_interval"`
	// JobDelay is the pause between consecutive jobs within one run, to
	// avoid hammering upstream APIs.
	JobDelay duration `toml:"job_delay"`
	// ResultsCron schedules the prediction settlement pass.
	ResultsCron string `toml:"results_cron"`
	// ArchiveCron schedules the cold-storage archive pass.
	ArchiveCron string `toml:"archive_cron"`
	// ArchiveRetentionDays is how long settled rows stay in Postgres.
	ArchiveRetentionDays int `toml:"archive_retention_days"`
	// SettleGrace is how long after commence time a result is first checked.
	SettleGrace duration `toml:"settle_grace"`
	// ScoresDaysFrom is passed to the provider's scores endpoint.
	ScoresDaysFrom int `toml:"scores_days_from"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds operator notification channel credentials. These are
// separate from the user-facing bot: the notifier pushes operator alerts to
// a fixed chat/webhook.
type NotifyConfig struct {
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	// MinProfitMargin suppresses arb_detected alerts below this percentage.
	MinProfitMargin float64 `toml:"min_profit_margin"`
}

// VaultConfig holds the passphrase protecting API keys stored in the
// settings table.
type VaultConfig struct {
	Passphrase string `toml:"passphrase"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		OddsAPI: OddsAPIConfig{
			BaseURL:           "https://api.the-odds-api.com/v4",
			Regions:           "us,uk,eu",
			Markets:           "h2h",
			RequestsPerMinute: 30,
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-pro",
		},
		Apify: ApifyConfig{
			BaseURL:    "https://api.apify.com/v2",
			ActorID:    "microworlds~twitter-scraper",
			TweetCount: 50,
		},
		SportsDB: SportsDBConfig{
			BaseURL: "https://www.thesportsdb.com/api/v1/json",
		},
		Scan: ScanConfig{
			Sports:         []string{"upcoming"},
			Interval:       duration{10 * time.Minute},
			SportsCacheTTL: duration{24 * time.Hour},
			OddsCacheTTL:   duration{10 * time.Minute},
			SnapshotOdds:   false,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "oraclebot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Telegram: TelegramConfig{
			HistoryPageSize:   10,
			MaxEventsPerSport: 8,
		},
		Worker: WorkerConfig{
			PollInterval:         duration{30 * time.Second},
			JobDelay:             duration{2 * time.Second},
			ResultsCron:          "*/30 * * * *",
			ArchiveCron:          "0 3 1 * *",
			ArchiveRetentionDays: 90,
			SettleGrace:          duration{3 * time.Hour},
			ScoresDaysFrom:       3,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events:          []string{notify.EventArbDetected, notify.EventPredictionReady, notify.EventError},
			MinProfitMargin: 0.5,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"bot":    true,
	"scan":   true,
	"worker": true,
	"server": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: bot, scan, worker, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Odds API
	if c.OddsAPI.BaseURL == "" {
		errs = append(errs, "odds_api: base_url must not be empty")
	}
	if c.OddsAPI.RequestsPerMinute < 1 {
		errs = append(errs, "odds_api: requests_per_minute must be >= 1")
	}

	// Scan
	if len(c.Scan.Sports) == 0 {
		errs = append(errs, "scan: at least one sport key must be configured")
	}
	if c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be positive")
	}

	// The bot front-end needs a token.
	mode := strings.ToLower(c.Mode)
	if (mode == "bot" || mode == "full") && c.Telegram.BotToken == "" {
		errs = append(errs, "telegram: bot_token is required for mode "+c.Mode)
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 is only required when odds snapshots or archiving are in play.
	if c.Scan.SnapshotOdds || mode == "worker" || mode == "full" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Worker
	if c.Worker.PollInterval.Duration <= 0 {
		errs = append(errs, "worker: poll_interval must be positive")
	}
	if c.Worker.ArchiveRetentionDays < 1 {
		errs = append(errs, "worker: archive_retention_days must be >= 1")
	}
	if c.Worker.ScoresDaysFrom < 1 || c.Worker.ScoresDaysFrom > 3 {
		errs = append(errs, fmt.Sprintf("worker: scores_days_from must be 1-3, got %d", c.Worker.ScoresDaysFrom))
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify
	if c.Notify.MinProfitMargin < 0 {
		errs = append(errs, "notify: min_profit_margin must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
