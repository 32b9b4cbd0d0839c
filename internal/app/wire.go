package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	s3blob "github.com/quarterpin/oraclebot/internal/blob/s3"
	"github.com/quarterpin/oraclebot/internal/cache/redis"
	"github.com/quarterpin/oraclebot/internal/config"
	"github.com/quarterpin/oraclebot/internal/crypto"
	"github.com/quarterpin/oraclebot/internal/domain"
	"github.com/quarterpin/oraclebot/internal/notify"
	"github.com/quarterpin/oraclebot/internal/platform/apify"
	"github.com/quarterpin/oraclebot/internal/platform/oddsapi"
	"github.com/quarterpin/oraclebot/internal/platform/sportsdb"
	"github.com/quarterpin/oraclebot/internal/platform/wikipedia"
	"github.com/quarterpin/oraclebot/internal/predict"
	"github.com/quarterpin/oraclebot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	SettingsStore    domain.SettingsStore
	AdminStore       domain.AdminStore
	JobStore         domain.JobStore
	HistoryStore     domain.HistoryStore
	OpportunityStore domain.OpportunityStore

	// Caches
	OddsCache   domain.OddsCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver
	Snapshots  *s3blob.Snapshots

	// Secrets
	Vault *crypto.Vault

	// Platform clients
	OddsClient *oddsapi.Client
	SportsDB   *sportsdb.Client
	Wikipedia  *wikipedia.Client
	Apify      *apify.Client
	Predictor  *predict.Client

	// Notifications
	Notifier *notify.Notifier
}

// needsS3 returns true for configurations that require object storage:
// raw odds snapshots, or the archive pass in worker/full mode.
func needsS3(cfg *config.Config) bool {
	if cfg.Scan.SnapshotOdds {
		return true
	}
	switch cfg.Mode {
	case "worker", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.SettingsStore = postgres.NewSettingsStore(pool)
	deps.AdminStore = postgres.NewAdminStore(pool)
	deps.JobStore = postgres.NewJobStore(pool)
	deps.HistoryStore = postgres.NewHistoryStore(pool)
	deps.OpportunityStore = postgres.NewOpportunityStore(pool)

	// Seed the admins table from config so a fresh deployment has at least
	// one admin who can run /setapikey.
	for _, chatID := range cfg.Telegram.AdminChatIDs {
		if err := deps.AdminStore.Add(ctx, chatID); err != nil {
			logger.Warn("wire: seeding admin failed",
				slog.Int64("chat_id", chatID),
				slog.String("error", err.Error()),
			)
		}
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.OddsCache = redis.NewOddsCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Snapshots = s3blob.NewSnapshots(deps.BlobWriter).WithReader(deps.BlobReader)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.OpportunityStore, deps.HistoryStore)
	}

	// --- Secrets vault ---
	if cfg.Vault.Passphrase != "" {
		vault, err := crypto.NewVault(cfg.Vault.Passphrase)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: vault: %w", err)
		}
		deps.Vault = vault
	}

	// --- Platform clients ---
	// Provider keys resolve from the settings store first (rotatable at
	// runtime via /setapikey) and fall back to the config file.
	deps.OddsClient = oddsapi.NewClient(
		cfg.OddsAPI.BaseURL,
		cfg.OddsAPI.Regions,
		cfg.OddsAPI.Markets,
		settingsKeyFunc(deps.SettingsStore, deps.Vault, domain.SettingOddsAPIKey, cfg.OddsAPI.ApiKey),
	).
		WithCache(deps.OddsCache, cfg.Scan.SportsCacheTTL.Duration, cfg.Scan.OddsCacheTTL.Duration).
		WithRateLimiter(deps.RateLimiter, cfg.OddsAPI.RequestsPerMinute)

	deps.SportsDB = sportsdb.NewClient(cfg.SportsDB.BaseURL, cfg.SportsDB.ApiKey)
	deps.Wikipedia = wikipedia.NewClient("")
	deps.Apify = apify.NewClient(cfg.Apify.BaseURL, cfg.Apify.ApiKey, cfg.Apify.ActorID)
	deps.Predictor = predict.NewClient(
		cfg.Gemini.BaseURL,
		cfg.Gemini.Model,
		predict.KeyFunc(settingsKeyFunc(deps.SettingsStore, deps.Vault, domain.SettingGeminiKey, cfg.Gemini.ApiKey)),
	)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Telegram.BotToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Telegram.BotToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// settingsKeyFunc resolves a provider API key. The settings store wins so
// keys rotated at runtime take effect without a restart; encrypted values
// are opened with the vault. When no setting exists, the config value is
// used. An empty result reports ErrNotConfigured.
func settingsKeyFunc(settings domain.SettingsStore, vault *crypto.Vault, settingKey, fallback string) oddsapi.KeyFunc {
	return func(ctx context.Context) (string, error) {
		setting, err := settings.Get(ctx, settingKey)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if fallback == "" {
				return "", fmt.Errorf("%s: %w", settingKey, domain.ErrNotConfigured)
			}
			return fallback, nil
		case err != nil:
			return "", fmt.Errorf("wire: resolve %s: %w", settingKey, err)
		}

		value := setting.Value
		if setting.Encrypted {
			if vault == nil {
				return "", fmt.Errorf("wire: %s is encrypted but no vault passphrase is configured", settingKey)
			}
			value, err = vault.Open(setting.Value)
			if err != nil {
				return "", fmt.Errorf("wire: decrypt %s: %w", settingKey, err)
			}
		}
		if value == "" {
			return "", fmt.Errorf("%s: %w", settingKey, domain.ErrNotConfigured)
		}
		return value, nil
	}
}
