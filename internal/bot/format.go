package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quarterpin/oraclebot/internal/arbitrage"
	"github.com/quarterpin/oraclebot/internal/domain"
)

func formatBestOdds(event domain.Event) string {
	best := arbitrage.BestOdds(event)
	if len(best) == 0 {
		return "No usable odds for " + event.Match() + " yet."
	}

	names := make([]string, 0, len(best))
	for name := range best {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("📊 Best odds for " + event.Match() + "\n")
	for _, name := range names {
		q := best[name]
		fmt.Fprintf(&sb, "%s: %.2f (%s)\n", name, q.Price, q.Bookmaker)
	}
	fmt.Fprintf(&sb, "From %d bookmakers.", len(event.Bookmakers))
	return sb.String()
}

// formatArbitrage renders a detected opportunity together with the stake
// split that locks in the margin: each outcome gets the share of the total
// stake proportional to the reciprocal of its best price.
func formatArbitrage(opp domain.Opportunity) string {
	names := make([]string, 0, len(opp.BestOdds))
	for name := range opp.BestOdds {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 Arbitrage on %s\nGuaranteed margin: %.2f%%\n\nStake split:\n", opp.Match, opp.ProfitMargin)
	for _, name := range names {
		q := opp.BestOdds[name]
		share := (1 / q.Price) / opp.ArbValue * 100
		fmt.Fprintf(&sb, "%.1f%% on %s @ %.2f (%s)\n", share, name, q.Price, q.Bookmaker)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatHistory(records []domain.PredictionRecord, offset int) string {
	if len(records) == 0 {
		return "No more predictions."
	}

	var sb strings.Builder
	sb.WriteString("📜 Your predictions\n\n")
	for i, rec := range records {
		fmt.Fprintf(&sb, "%d. %s %s vs %s\n   %s (%.0f%%), %s\n",
			offset+i+1,
			statusIcon(rec.Status),
			rec.HomeTeam,
			rec.AwayTeam,
			rec.PredictedWinner,
			rec.ConfidenceScore,
			rec.CreatedAt.UTC().Format("2006-01-02"),
		)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func statusIcon(status domain.PredictionStatus) string {
	switch status {
	case domain.PredictionCorrect:
		return "✅"
	case domain.PredictionIncorrect:
		return "❌"
	default:
		return "⏳"
	}
}

func formatScanResult(opps []domain.Opportunity) string {
	if len(opps) == 0 {
		return "Scan complete. No arbitrage opportunities right now."
	}

	// Highest margin first.
	sorted := make([]domain.Opportunity, len(opps))
	copy(sorted, opps)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ProfitMargin > sorted[j].ProfitMargin
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Scan complete. %d opportunities:\n", len(sorted))
	const maxListed = 10
	for i, opp := range sorted {
		if i == maxListed {
			fmt.Fprintf(&sb, "... and %d more", len(sorted)-maxListed)
			break
		}
		fmt.Fprintf(&sb, "%.2f%% %s (%s)\n", opp.ProfitMargin, opp.Match, opp.SportKey)
	}
	return strings.TrimRight(sb.String(), "\n")
}
