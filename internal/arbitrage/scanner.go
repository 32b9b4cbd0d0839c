// Package arbitrage implements the cross-bookmaker arbitrage scanner. Given
// events carrying per-bookmaker head-to-head odds, it computes the best
// available price per outcome and emits an opportunity whenever the sum of
// reciprocal best prices falls strictly below 1.
package arbitrage

import (
	"sort"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// Stats carries per-scan diagnostics for caller logging. Skipped events are
// not failures: absence of usable data is the expected silent outcome.
type Stats struct {
	// Events is the number of events examined.
	Events int
	// SkippedInvalid counts events missing an ID or a team name.
	SkippedInvalid int
	// SkippedBookmakers counts events with fewer than two h2h submissions.
	SkippedBookmakers int
	// SkippedOutcomes counts events with fewer than two distinct outcomes
	// after malformed quotes were dropped.
	SkippedOutcomes int
	// MalformedQuotes counts quotes excluded for a non-positive price or an
	// empty outcome name.
	MalformedQuotes int
	// NoArbitrage counts events whose reciprocal sum was >= 1.
	NoArbitrage int
}

// Scan evaluates each event's head-to-head odds and returns every detected
// arbitrage opportunity, sorted by descending profit margin. Ties retain the
// order in which their events were scanned.
//
// Scan is pure: it performs no I/O, never mutates its input, and holds no
// state between calls. Events without enough data simply produce no
// opportunity; an empty result is not an error. The returned opportunities
// carry no ID or detection timestamp; callers stamp those when publishing.
func Scan(events []domain.Event) []domain.Opportunity {
	opps, _ := ScanWithStats(events)
	return opps
}

// ScanWithStats is Scan plus diagnostic counters, so callers can log how
// much of the input was unusable without the scanner doing any logging
// itself.
func ScanWithStats(events []domain.Event) ([]domain.Opportunity, Stats) {
	stats := Stats{Events: len(events)}

	var opps []domain.Opportunity
	for _, ev := range events {
		if ev.ID == "" || ev.HomeTeam == "" || ev.AwayTeam == "" {
			stats.SkippedInvalid++
			continue
		}

		best, contributors, malformed := bestOdds(ev.Bookmakers)
		stats.MalformedQuotes += malformed

		// An arbitrage needs at least two bookmakers to hedge across.
		if contributors < 2 {
			stats.SkippedBookmakers++
			continue
		}
		// And at least two mutually exclusive outcomes.
		if len(best) < 2 {
			stats.SkippedOutcomes++
			continue
		}

		var arbValue float64
		for _, q := range best {
			arbValue += 1 / q.Price
		}

		if arbValue <= 0 || arbValue >= 1 {
			stats.NoArbitrage++
			continue
		}

		opps = append(opps, domain.Opportunity{
			EventID:      ev.ID,
			Match:        ev.Match(),
			SportKey:     ev.SportKey,
			CommenceTime: ev.CommenceTime,
			BestOdds:     best,
			ArbValue:     arbValue,
			ProfitMargin: (1 - arbValue) * 100,
		})
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ProfitMargin > opps[j].ProfitMargin
	})

	return opps, stats
}

// BestOdds returns the best h2h price per outcome for a single event. It is
// used outside the scan loop when a caller needs the best quotes without the
// arbitrage decision, e.g. to show prices in an analysis report.
func BestOdds(event domain.Event) domain.BestOdds {
	best, _, _ := bestOdds(event.Bookmakers)
	return best
}

// bestOdds folds every well-formed h2h quote into a best-price-per-outcome
// map. Only a strictly greater price displaces an entry, so on equal prices
// the first-seen bookmaker wins and input order decides the tie-break.
// It returns the map, the number of bookmakers that submitted an h2h market,
// and the number of malformed quotes dropped.
func bestOdds(bookmakers []domain.Bookmaker) (domain.BestOdds, int, int) {
	best := make(domain.BestOdds)
	contributors := 0
	malformed := 0

	for _, bk := range bookmakers {
		market, ok := bk.H2H()
		if !ok {
			continue
		}
		contributors++

		title := bk.Title
		if title == "" {
			title = bk.Key
		}

		for _, out := range market.Outcomes {
			if out.Name == "" || out.Price <= 0 {
				malformed++
				continue
			}
			if cur, seen := best[out.Name]; !seen || out.Price > cur.Price {
				best[out.Name] = domain.BestQuote{Price: out.Price, Bookmaker: title}
			}
		}
	}

	return best, contributors, malformed
}
