// Package domain defines the core types and interfaces shared across the
// oraclebot application: odds data from the provider, computed arbitrage
// opportunities, AI predictions, and the store/cache/blob contracts.
package domain

import "time"

// MarketKeyH2H identifies the head-to-head (moneyline) market, the only
// market type the arbitrage scanner evaluates.
const MarketKeyH2H = "h2h"

// Outcome is one bookmaker's stated price for one outcome of a market.
// Prices are decimal odds; a price <= 1.0 carries no payout and a price
// <= 0 is malformed data from the provider.
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Market is one bookmaker's market for an event, e.g. the h2h moneyline.
type Market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Bookmaker is a single bookmaker's submission for an event.
type Bookmaker struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Markets []Market `json:"markets"`
}

// H2H returns the bookmaker's head-to-head market, or false when the
// bookmaker did not submit one.
func (b Bookmaker) H2H() (Market, bool) {
	for _, m := range b.Markets {
		if m.Key == MarketKeyH2H {
			return m, true
		}
	}
	return Market{}, false
}

// Event is a single sporting fixture together with the per-bookmaker odds
// submissions fetched from the odds provider.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Match returns the human-readable fixture name, "Home vs Away".
func (e Event) Match() string {
	return e.HomeTeam + " vs " + e.AwayTeam
}

// Sport is an entry from the provider's sports catalogue.
type Sport struct {
	Key    string `json:"key"`
	Group  string `json:"group"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// ScoreLine is one participant's score in a settled event.
type ScoreLine struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

// ScoreEvent is a (possibly completed) event with final scores, as returned
// by the provider's scores endpoint.
type ScoreEvent struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime time.Time   `json:"commence_time"`
	Completed    bool        `json:"completed"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Scores       []ScoreLine `json:"scores"`
}
