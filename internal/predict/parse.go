package predict

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// ParsePrediction extracts a Prediction from a model reply. Models often wrap
// JSON in markdown code fences or pad it with prose, so the parser strips
// fences and falls back to the outermost brace pair before decoding.
func ParsePrediction(text string) (domain.Prediction, error) {
	raw := extractJSON(text)
	if raw == "" {
		return domain.Prediction{}, fmt.Errorf("parse prediction: no JSON object in response")
	}

	var pred domain.Prediction
	if err := json.Unmarshal([]byte(raw), &pred); err != nil {
		return domain.Prediction{}, fmt.Errorf("parse prediction: %w", err)
	}

	if err := validate(pred); err != nil {
		return domain.Prediction{}, fmt.Errorf("parse prediction: %w", err)
	}

	return pred, nil
}

// extractJSON strips markdown code fences and returns the outermost
// {...} region of text, or "" when none exists.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip ```json ... ``` or ``` ... ``` fences.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// validate enforces the required keys and value ranges of the prediction
// contract.
func validate(p domain.Prediction) error {
	if strings.TrimSpace(p.PredictedWinner) == "" {
		return fmt.Errorf("missing predicted_winner")
	}
	if p.ConfidenceScore < 0 || p.ConfidenceScore > 100 {
		return fmt.Errorf("confidence_score %.1f out of range 0-100", p.ConfidenceScore)
	}
	switch strings.ToLower(p.RiskLevel) {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("unknown risk_level %q", p.RiskLevel)
	}
	if strings.TrimSpace(p.Reasoning) == "" {
		return fmt.Errorf("missing reasoning")
	}
	return nil
}
