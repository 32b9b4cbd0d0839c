package predict

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// PromptInput carries everything the analysis pipeline gathered about one
// fixture. Empty sections are omitted from the prompt.
type PromptInput struct {
	HomeTeam     string
	AwayTeam     string
	SportKey     string
	CommenceTime time.Time

	// Odds holds the best available decimal price per outcome.
	Odds domain.BestOdds

	// HomeProfile / AwayProfile are short team descriptions (league, stadium,
	// recent background).
	HomeProfile string
	AwayProfile string

	// HomeForm / AwayForm are recent-results summaries, e.g.
	// "W 2-1 vs X, L 0-3 vs Y".
	HomeForm string
	AwayForm string

	// Sentiment is the social-media read on the fixture.
	Sentiment *domain.SentimentReport
}

// BuildPrompt renders the analysis prompt. The trailing instruction pins the
// model to a strict JSON object so ParsePrediction can decode the reply.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a sports betting analyst. Analyze the upcoming match and predict the winner.\n\n")
	fmt.Fprintf(&b, "Match: %s vs %s\n", in.HomeTeam, in.AwayTeam)
	if in.SportKey != "" {
		fmt.Fprintf(&b, "Sport: %s\n", in.SportKey)
	}
	if !in.CommenceTime.IsZero() {
		fmt.Fprintf(&b, "Kickoff: %s\n", in.CommenceTime.UTC().Format(time.RFC1123))
	}

	if len(in.Odds) > 0 {
		b.WriteString("\nBest available odds (decimal):\n")
		for _, name := range sortedOutcomes(in.Odds) {
			q := in.Odds[name]
			fmt.Fprintf(&b, "- %s: %.2f (%s)\n", name, q.Price, q.Bookmaker)
		}
	}

	writeSection(&b, fmt.Sprintf("About %s", in.HomeTeam), in.HomeProfile)
	writeSection(&b, fmt.Sprintf("About %s", in.AwayTeam), in.AwayProfile)
	writeSection(&b, fmt.Sprintf("%s recent form", in.HomeTeam), in.HomeForm)
	writeSection(&b, fmt.Sprintf("%s recent form", in.AwayTeam), in.AwayForm)

	if in.Sentiment != nil && in.Sentiment.SampleSize > 0 {
		b.WriteString("\nSocial sentiment:\n")
		fmt.Fprintf(&b, "%s (positive %.0f%%, negative %.0f%%, neutral %.0f%%)\n",
			in.Sentiment.Summary,
			in.Sentiment.PositiveRatio*100,
			in.Sentiment.NegativeRatio*100,
			in.Sentiment.NeutralRatio*100)
	}

	b.WriteString("\nRespond with ONLY a JSON object, no prose, using exactly these keys:\n")
	b.WriteString(`{"predicted_winner": "<team name or Draw>", "confidence_score": <0-100>, "risk_level": "<Low|Medium|High>", "reasoning": "<2-3 sentences>"}`)
	b.WriteString("\n")

	return b.String()
}

func writeSection(b *strings.Builder, title, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	fmt.Fprintf(b, "\n%s:\n%s\n", title, body)
}

// sortedOutcomes returns the outcome names in a stable order so prompts are
// reproducible.
func sortedOutcomes(odds domain.BestOdds) []string {
	names := make([]string, 0, len(odds))
	for name := range odds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
