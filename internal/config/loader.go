package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ORACLEBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ORACLEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Odds API ──
	setStr(&cfg.OddsAPI.BaseURL, "ORACLEBOT_ODDS_API_BASE_URL")
	setStr(&cfg.OddsAPI.ApiKey, "ORACLEBOT_ODDS_API_KEY")
	setStr(&cfg.OddsAPI.Regions, "ORACLEBOT_ODDS_API_REGIONS")
	setStr(&cfg.OddsAPI.Markets, "ORACLEBOT_ODDS_API_MARKETS")
	setInt(&cfg.OddsAPI.RequestsPerMinute, "ORACLEBOT_ODDS_API_REQUESTS_PER_MINUTE")

	// ── Gemini ──
	setStr(&cfg.Gemini.BaseURL, "ORACLEBOT_GEMINI_BASE_URL")
	setStr(&cfg.Gemini.ApiKey, "ORACLEBOT_GEMINI_API_KEY")
	setStr(&cfg.Gemini.Model, "ORACLEBOT_GEMINI_MODEL")

	// ── Apify ──
	setStr(&cfg.Apify.BaseURL, "ORACLEBOT_APIFY_BASE_URL")
	setStr(&cfg.Apify.ApiKey, "ORACLEBOT_APIFY_API_KEY")
	setStr(&cfg.Apify.ActorID, "ORACLEBOT_APIFY_ACTOR_ID")
	setInt(&cfg.Apify.TweetCount, "ORACLEBOT_APIFY_TWEET_COUNT")

	// ── SportsDB ──
	setStr(&cfg.SportsDB.BaseURL, "ORACLEBOT_SPORTSDB_BASE_URL")
	setStr(&cfg.SportsDB.ApiKey, "ORACLEBOT_SPORTSDB_API_KEY")

	// ── Scan ──
	setStringSlice(&cfg.Scan.Sports, "ORACLEBOT_SCAN_SPORTS")
	setDuration(&cfg.Scan.Interval, "ORACLEBOT_SCAN_INTERVAL")
	setDuration(&cfg.Scan.SportsCacheTTL, "ORACLEBOT_SCAN_SPORTS_CACHE_TTL")
	setDuration(&cfg.Scan.OddsCacheTTL, "ORACLEBOT_SCAN_ODDS_CACHE_TTL")
	setBool(&cfg.Scan.SnapshotOdds, "ORACLEBOT_SCAN_SNAPSHOT_ODDS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ORACLEBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "ORACLEBOT_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "ORACLEBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ORACLEBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ORACLEBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ORACLEBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ORACLEBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ORACLEBOT_POSTGRES_SSLMODE")
	setStr(&cfg.Postgres.SSLMode, "ORACLEBOT_POSTGRES_SSL_MODE") // compatibility alias
	setInt(&cfg.Postgres.PoolMaxConns, "ORACLEBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ORACLEBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ORACLEBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ORACLEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ORACLEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ORACLEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ORACLEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ORACLEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ORACLEBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ORACLEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ORACLEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "ORACLEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ORACLEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ORACLEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ORACLEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ORACLEBOT_S3_FORCE_PATH_STYLE")

	// ── Telegram ──
	setStr(&cfg.Telegram.BotToken, "ORACLEBOT_TELEGRAM_BOT_TOKEN")
	setInt(&cfg.Telegram.HistoryPageSize, "ORACLEBOT_TELEGRAM_HISTORY_PAGE_SIZE")
	setInt(&cfg.Telegram.MaxEventsPerSport, "ORACLEBOT_TELEGRAM_MAX_EVENTS_PER_SPORT")
	setInt64Slice(&cfg.Telegram.AdminChatIDs, "ORACLEBOT_TELEGRAM_ADMIN_CHAT_IDS")

	// ── Worker ──
	setDuration(&cfg.Worker.PollInterval, "ORACLEBOT_WORKER_POLL_INTERVAL")
	setDuration(&cfg.Worker.JobDelay, "ORACLEBOT_WORKER_JOB_DELAY")
	setStr(&cfg.Worker.ResultsCron, "ORACLEBOT_WORKER_RESULTS_CRON")
	setStr(&cfg.Worker.ArchiveCron, "ORACLEBOT_WORKER_ARCHIVE_CRON")
	setInt(&cfg.Worker.ArchiveRetentionDays, "ORACLEBOT_WORKER_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Worker.SettleGrace, "ORACLEBOT_WORKER_SETTLE_GRACE")
	setInt(&cfg.Worker.ScoresDaysFrom, "ORACLEBOT_WORKER_SCORES_DAYS_FROM")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ORACLEBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ORACLEBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ORACLEBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ORACLEBOT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramChatID, "ORACLEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ORACLEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ORACLEBOT_NOTIFY_EVENTS")
	setFloat64(&cfg.Notify.MinProfitMargin, "ORACLEBOT_NOTIFY_MIN_PROFIT_MARGIN")

	// ── Vault ──
	setStr(&cfg.Vault.Passphrase, "ORACLEBOT_VAULT_PASSPHRASE")

	// ── Top-level ──
	setStr(&cfg.Mode, "ORACLEBOT_MODE")
	setStr(&cfg.LogLevel, "ORACLEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

func setInt64Slice(dst *[]int64, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]int64, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if n, err := strconv.ParseInt(p, 10, 64); err == nil {
				cleaned = append(cleaned, n)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
