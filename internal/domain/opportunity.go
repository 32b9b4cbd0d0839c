package domain

import (
	"math"
	"time"
)

// BestQuote is the best price observed for one outcome and the bookmaker
// offering it.
type BestQuote struct {
	Price     float64 `json:"price"`
	Bookmaker string  `json:"bookmaker"`
}

// BestOdds maps an outcome name to the best quote seen across bookmakers.
type BestOdds map[string]BestQuote

// Opportunity is a detected cross-bookmaker arbitrage for a single event.
// ArbValue is the sum of reciprocal best prices; values strictly between 0
// and 1 guarantee a profit when stakes are sized proportionally to each
// outcome's reciprocal price.
type Opportunity struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	Match        string    `json:"match"`
	SportKey     string    `json:"sport_key"`
	CommenceTime time.Time `json:"commence_time"`
	BestOdds     BestOdds  `json:"best_odds"`
	ArbValue     float64   `json:"arb_value"`
	ProfitMargin float64   `json:"profit_margin"`
	DetectedAt   time.Time `json:"detected_at"`
}

// DisplayMargin returns the profit margin rounded to two decimal places for
// presentation. The full-precision ProfitMargin field is kept for sorting.
func (o Opportunity) DisplayMargin() float64 {
	return math.Round(o.ProfitMargin*100) / 100
}
