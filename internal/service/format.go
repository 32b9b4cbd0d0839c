package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// FormatPrediction renders a completed prediction as a Telegram message.
// Plain text, no markup: team names from the provider routinely contain
// characters that break Telegram markdown parsing.
func FormatPrediction(event domain.Event, pred domain.Prediction, report *domain.SentimentReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🔮 Prediction: %s\n\n", event.Match())
	fmt.Fprintf(&b, "Winner: %s\n", pred.PredictedWinner)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", pred.ConfidenceScore)
	fmt.Fprintf(&b, "Risk: %s\n", pred.RiskLevel)
	if !event.CommenceTime.IsZero() {
		fmt.Fprintf(&b, "Kickoff: %s\n", event.CommenceTime.UTC().Format("Mon, 02 Jan 15:04 MST"))
	}

	if report != nil && report.SampleSize > 0 {
		fmt.Fprintf(&b, "\nFan sentiment: %.0f%% positive, %.0f%% negative (%d posts)\n",
			report.PositiveRatio*100, report.NegativeRatio*100, report.SampleSize)
	}

	fmt.Fprintf(&b, "\n%s", pred.Reasoning)
	return b.String()
}

// FormatSettlement renders the message sent to a chat when one of its
// predictions settles.
func FormatSettlement(rec domain.PredictionRecord, winner string) string {
	icon := "✅"
	verdict := "was correct"
	if rec.Status == domain.PredictionIncorrect {
		icon = "❌"
		verdict = "was incorrect"
	}
	result := winner + " won"
	if strings.EqualFold(winner, "Draw") {
		result = "the match was a draw"
	}
	return fmt.Sprintf("%s %s vs %s has finished.\nResult: %s.\nYour prediction (%s) %s.",
		icon, rec.HomeTeam, rec.AwayTeam, result, rec.PredictedWinner, verdict)
}

// FormatOpportunity renders an opportunity for chat or API consumption.
func FormatOpportunity(opp domain.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 %s (%.2f%% margin)\n", opp.Match, opp.DisplayMargin())
	fmt.Fprintf(&b, "Kickoff: %s\n", opp.CommenceTime.UTC().Format(time.RFC1123))
	for name, q := range opp.BestOdds {
		fmt.Fprintf(&b, "  %s @ %.2f (%s)\n", name, q.Price, q.Bookmaker)
	}
	return b.String()
}
