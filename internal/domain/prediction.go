package domain

import "time"

// Prediction is the structured output of the AI prediction model.
type Prediction struct {
	PredictedWinner string  `json:"predicted_winner"`
	ConfidenceScore float64 `json:"confidence_score"`
	RiskLevel       string  `json:"risk_level"`
	Reasoning       string  `json:"reasoning"`
}

// PredictionStatus tracks whether a stored prediction has been settled
// against the real result.
type PredictionStatus string

const (
	PredictionPending   PredictionStatus = "Pending"
	PredictionCorrect   PredictionStatus = "Correct"
	PredictionIncorrect PredictionStatus = "Incorrect"
)

// PredictionRecord is a persisted prediction for one user and one event.
type PredictionRecord struct {
	ID              string
	ChatID          int64
	EventID         string
	SportKey        string
	HomeTeam        string
	AwayTeam        string
	CommenceTime    time.Time
	PredictedWinner string
	ConfidenceScore float64
	RiskLevel       string
	Reasoning       string
	Status          PredictionStatus
	CreatedAt       time.Time
	SettledAt       *time.Time
}

// JobStatus is the lifecycle state of an analysis job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// AnalysisJob is a queued request to run the full prediction pipeline for
// one event on behalf of one chat.
type AnalysisJob struct {
	ID        string
	EventID   string
	SportKey  string
	ChatID    int64
	Status    JobStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SentimentReport summarises social-media sentiment gathered for a fixture.
type SentimentReport struct {
	PositiveRatio float64 `json:"positive_ratio"`
	NegativeRatio float64 `json:"negative_ratio"`
	NeutralRatio  float64 `json:"neutral_ratio"`
	SampleSize    int     `json:"sample_size"`
	Summary       string  `json:"summary"`
}
