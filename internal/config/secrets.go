package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Provider credentials
	out.OddsAPI = cfg.OddsAPI
	redact(&out.OddsAPI.ApiKey)

	out.Gemini = cfg.Gemini
	redact(&out.Gemini.ApiKey)

	out.Apify = cfg.Apify
	redact(&out.Apify.ApiKey)

	out.SportsDB = cfg.SportsDB
	redact(&out.SportsDB.ApiKey)

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Telegram
	out.Telegram = cfg.Telegram
	redact(&out.Telegram.BotToken)

	// Server
	out.Server = cfg.Server
	redact(&out.Server.APIKey)

	// Notify
	out.Notify = cfg.Notify
	redact(&out.Notify.DiscordWebhookURL)

	// Vault
	out.Vault = cfg.Vault
	redact(&out.Vault.Passphrase)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Scan.Sports != nil {
		out.Scan.Sports = make([]string, len(cfg.Scan.Sports))
		copy(out.Scan.Sports, cfg.Scan.Sports)
	}
	if cfg.Telegram.AdminChatIDs != nil {
		out.Telegram.AdminChatIDs = make([]int64, len(cfg.Telegram.AdminChatIDs))
		copy(out.Telegram.AdminChatIDs, cfg.Telegram.AdminChatIDs)
	}
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
