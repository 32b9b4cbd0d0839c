package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// Well-known settings keys for provider API keys managed at runtime.
const (
	SettingOddsAPIKey  = "odds_api_key"
	SettingGeminiKey   = "gemini_api_key"
	SettingApifyKey    = "apify_api_key"
	SettingSportsDBKey = "sportsdb_api_key"
)

// Setting is a single configuration row. Values flagged as encrypted are
// stored as key-vault ciphertext and must be decrypted before use.
type Setting struct {
	Key       string
	Value     string
	Encrypted bool
	UpdatedAt time.Time
}

// SettingsStore persists runtime configuration such as provider API keys.
type SettingsStore interface {
	Get(ctx context.Context, key string) (Setting, error)
	Set(ctx context.Context, s Setting) error
	List(ctx context.Context) ([]Setting, error)
	Delete(ctx context.Context, key string) error
}

// AdminStore persists the set of chat IDs with admin privileges.
type AdminStore interface {
	IsAdmin(ctx context.Context, chatID int64) (bool, error)
	Add(ctx context.Context, chatID int64) error
	Remove(ctx context.Context, chatID int64) error
}

// JobStore persists the analysis job queue.
type JobStore interface {
	Enqueue(ctx context.Context, job AnalysisJob) error
	ListPending(ctx context.Context, limit int) ([]AnalysisJob, error)
	UpdateStatus(ctx context.Context, id string, status JobStatus, errMsg string) error
	GetByID(ctx context.Context, id string) (AnalysisJob, error)
}

// HistoryStore persists prediction history for settlement and user recall.
type HistoryStore interface {
	Insert(ctx context.Context, rec PredictionRecord) error
	ListByChat(ctx context.Context, chatID int64, opts ListOpts) ([]PredictionRecord, error)
	ListPending(ctx context.Context) ([]PredictionRecord, error)
	Settle(ctx context.Context, id string, status PredictionStatus) error
	ListSettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]PredictionRecord, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// OpportunityStore persists detected arbitrage opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, opp Opportunity) error
	InsertBatch(ctx context.Context, opps []Opportunity) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]Opportunity, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}
