package arbitrage_test

import (
	"reflect"
	"testing"

	"github.com/quarterpin/oraclebot/internal/arbitrage"
	"github.com/quarterpin/oraclebot/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

func h2hBook(title string, outcomes ...domain.Outcome) domain.Bookmaker {
	return domain.Bookmaker{
		Title: title,
		Markets: []domain.Market{
			{Key: domain.MarketKeyH2H, Outcomes: outcomes},
		},
	}
}

func twoWayEvent(id string, books ...domain.Bookmaker) domain.Event {
	return domain.Event{
		ID:         id,
		SportKey:   "soccer_epl",
		HomeTeam:   "Team A",
		AwayTeam:   "Team B",
		Bookmakers: books,
	}
}

func TestScan(t *testing.T) {
	Convey("Given events with per-bookmaker head-to-head odds", t, func() {

		Convey("When only one bookmaker contributed", func() {
			ev := twoWayEvent("ev1",
				h2hBook("BookieX",
					domain.Outcome{Name: "Team A", Price: 100.0},
					domain.Outcome{Name: "Team B", Price: 100.0},
				),
			)

			Convey("Then no opportunity is produced no matter how good the prices are", func() {
				opps, stats := arbitrage.ScanWithStats([]domain.Event{ev})
				So(opps, ShouldBeEmpty)
				So(stats.SkippedBookmakers, ShouldEqual, 1)
			})
		})

		Convey("When two bookmakers quote the same outcome", func() {
			ev := twoWayEvent("ev1",
				h2hBook("BookieX",
					domain.Outcome{Name: "A", Price: 2.0},
					domain.Outcome{Name: "B", Price: 2.3},
				),
				h2hBook("BookieY",
					domain.Outcome{Name: "A", Price: 2.5},
					domain.Outcome{Name: "B", Price: 1.9},
				),
			)
			opps := arbitrage.Scan([]domain.Event{ev})

			Convey("Then the higher price and its bookmaker win", func() {
				So(len(opps), ShouldEqual, 1)
				So(opps[0].BestOdds["A"].Price, ShouldEqual, 2.5)
				So(opps[0].BestOdds["A"].Bookmaker, ShouldEqual, "BookieY")
				So(opps[0].BestOdds["B"].Price, ShouldEqual, 2.3)
				So(opps[0].BestOdds["B"].Bookmaker, ShouldEqual, "BookieX")
			})
		})

		Convey("When two bookmakers tie on price", func() {
			ev := twoWayEvent("ev1",
				h2hBook("First",
					domain.Outcome{Name: "A", Price: 2.2},
					domain.Outcome{Name: "B", Price: 2.2},
				),
				h2hBook("Second",
					domain.Outcome{Name: "A", Price: 2.2},
					domain.Outcome{Name: "B", Price: 2.2},
				),
			)
			opps := arbitrage.Scan([]domain.Event{ev})

			Convey("Then the first-seen bookmaker is retained", func() {
				So(len(opps), ShouldEqual, 1)
				So(opps[0].BestOdds["A"].Bookmaker, ShouldEqual, "First")
				So(opps[0].BestOdds["B"].Bookmaker, ShouldEqual, "First")
			})
		})

		Convey("When best prices are 2.15 and 2.2", func() {
			ev := twoWayEvent("ev1",
				h2hBook("BookieX",
					domain.Outcome{Name: "Team A", Price: 2.15},
					domain.Outcome{Name: "Team B", Price: 1.8},
				),
				h2hBook("BookieY",
					domain.Outcome{Name: "Team A", Price: 1.9},
					domain.Outcome{Name: "Team B", Price: 2.2},
				),
			)
			opps := arbitrage.Scan([]domain.Event{ev})

			Convey("Then exactly one opportunity is found with the expected margin", func() {
				So(len(opps), ShouldEqual, 1)
				wantArb := 1/2.15 + 1/2.2
				So(opps[0].ArbValue, ShouldAlmostEqual, wantArb, 1e-12)
				So(opps[0].ProfitMargin, ShouldAlmostEqual, (1-wantArb)*100, 1e-9)
				So(opps[0].DisplayMargin(), ShouldEqual, 8.03)
				So(opps[0].Match, ShouldEqual, "Team A vs Team B")
			})
		})

		Convey("When best prices are 1.5 and 1.5", func() {
			ev := twoWayEvent("ev1",
				h2hBook("BookieX",
					domain.Outcome{Name: "Team A", Price: 1.5},
					domain.Outcome{Name: "Team B", Price: 1.4},
				),
				h2hBook("BookieY",
					domain.Outcome{Name: "Team A", Price: 1.45},
					domain.Outcome{Name: "Team B", Price: 1.5},
				),
			)

			Convey("Then the reciprocal sum exceeds 1 and no opportunity is found", func() {
				opps, stats := arbitrage.ScanWithStats([]domain.Event{ev})
				So(opps, ShouldBeEmpty)
				So(stats.NoArbitrage, ShouldEqual, 1)
			})
		})

		Convey("When a single best price increases and the others stay fixed", func() {
			base := twoWayEvent("ev1",
				h2hBook("BookieX", domain.Outcome{Name: "A", Price: 2.15}),
				h2hBook("BookieY", domain.Outcome{Name: "B", Price: 2.2}),
			)
			bumped := twoWayEvent("ev1",
				h2hBook("BookieX", domain.Outcome{Name: "A", Price: 2.4}),
				h2hBook("BookieY", domain.Outcome{Name: "B", Price: 2.2}),
			)

			Convey("Then the profit margin never decreases", func() {
				before := arbitrage.Scan([]domain.Event{base})
				after := arbitrage.Scan([]domain.Event{bumped})
				So(len(before), ShouldEqual, 1)
				So(len(after), ShouldEqual, 1)
				So(after[0].ProfitMargin, ShouldBeGreaterThanOrEqualTo, before[0].ProfitMargin)
			})
		})

		Convey("When two qualifying events have different margins", func() {
			small := twoWayEvent("small",
				h2hBook("BookieX", domain.Outcome{Name: "A", Price: 2.2}),
				h2hBook("BookieY", domain.Outcome{Name: "B", Price: 2.0}),
			)
			big := twoWayEvent("big",
				h2hBook("BookieX", domain.Outcome{Name: "A", Price: 2.5}),
				h2hBook("BookieY", domain.Outcome{Name: "B", Price: 2.5}),
			)
			opps := arbitrage.Scan([]domain.Event{small, big})

			Convey("Then the larger margin is ranked first", func() {
				So(len(opps), ShouldEqual, 2)
				So(opps[0].EventID, ShouldEqual, "big")
				So(opps[1].EventID, ShouldEqual, "small")
				So(opps[0].ProfitMargin, ShouldBeGreaterThan, opps[1].ProfitMargin)
			})
		})

		Convey("When events tie on margin", func() {
			mk := func(id string) domain.Event {
				return twoWayEvent(id,
					h2hBook("BookieX", domain.Outcome{Name: "A", Price: 2.5}),
					h2hBook("BookieY", domain.Outcome{Name: "B", Price: 2.5}),
				)
			}
			opps := arbitrage.Scan([]domain.Event{mk("first"), mk("second")})

			Convey("Then scan order is preserved", func() {
				So(len(opps), ShouldEqual, 2)
				So(opps[0].EventID, ShouldEqual, "first")
				So(opps[1].EventID, ShouldEqual, "second")
			})
		})

		Convey("When a quote carries a zero or negative price", func() {
			ev := twoWayEvent("ev1",
				h2hBook("BookieX",
					domain.Outcome{Name: "A", Price: 0},
					domain.Outcome{Name: "B", Price: -2.5},
				),
				h2hBook("BookieY",
					domain.Outcome{Name: "B", Price: 3.0},
				),
			)

			Convey("Then the scan survives and the outcome is treated as absent", func() {
				opps, stats := arbitrage.ScanWithStats([]domain.Event{ev})
				So(opps, ShouldBeEmpty)
				So(stats.MalformedQuotes, ShouldEqual, 2)
				// Only outcome B survives, which disqualifies the event.
				So(stats.SkippedOutcomes, ShouldEqual, 1)
			})
		})

		Convey("When an event is missing identifying fields", func() {
			ev := domain.Event{
				Bookmakers: []domain.Bookmaker{
					h2hBook("BookieX", domain.Outcome{Name: "A", Price: 2.5}),
					h2hBook("BookieY", domain.Outcome{Name: "B", Price: 2.5}),
				},
			}
			good := twoWayEvent("good",
				h2hBook("BookieX", domain.Outcome{Name: "A", Price: 2.5}),
				h2hBook("BookieY", domain.Outcome{Name: "B", Price: 2.5}),
			)

			Convey("Then only that event is skipped, not the whole scan", func() {
				opps, stats := arbitrage.ScanWithStats([]domain.Event{ev, good})
				So(len(opps), ShouldEqual, 1)
				So(opps[0].EventID, ShouldEqual, "good")
				So(stats.SkippedInvalid, ShouldEqual, 1)
			})
		})

		Convey("When non-h2h markets are present", func() {
			spreads := domain.Bookmaker{
				Title: "SpreadsOnly",
				Markets: []domain.Market{
					{Key: "spreads", Outcomes: []domain.Outcome{
						{Name: "A", Price: 9.0},
						{Name: "B", Price: 9.0},
					}},
				},
			}
			ev := twoWayEvent("ev1",
				spreads,
				h2hBook("BookieX", domain.Outcome{Name: "A", Price: 2.0}),
				h2hBook("BookieY", domain.Outcome{Name: "B", Price: 2.0}),
			)
			opps := arbitrage.Scan([]domain.Event{ev})

			Convey("Then they are ignored entirely", func() {
				So(len(opps), ShouldBeZeroValue)
			})
		})

		Convey("When a three-way market qualifies", func() {
			ev := twoWayEvent("ev1",
				h2hBook("BookieX",
					domain.Outcome{Name: "Home", Price: 4.0},
					domain.Outcome{Name: "Draw", Price: 3.0},
					domain.Outcome{Name: "Away", Price: 3.5},
				),
				h2hBook("BookieY",
					domain.Outcome{Name: "Home", Price: 4.2},
					domain.Outcome{Name: "Draw", Price: 4.0},
					domain.Outcome{Name: "Away", Price: 4.1},
				),
			)
			opps := arbitrage.Scan([]domain.Event{ev})

			Convey("Then the outcome-count-agnostic rule still applies", func() {
				So(len(opps), ShouldEqual, 1)
				wantArb := 1/4.2 + 1/4.0 + 1/4.1
				So(opps[0].ArbValue, ShouldAlmostEqual, wantArb, 1e-12)
				So(len(opps[0].BestOdds), ShouldEqual, 3)
			})
		})

		Convey("When the same input is scanned twice", func() {
			events := []domain.Event{
				twoWayEvent("ev1",
					h2hBook("BookieX", domain.Outcome{Name: "A", Price: 2.15}),
					h2hBook("BookieY", domain.Outcome{Name: "B", Price: 2.2}),
				),
			}

			Convey("Then the outputs are identical", func() {
				first := arbitrage.Scan(events)
				second := arbitrage.Scan(events)
				So(reflect.DeepEqual(first, second), ShouldBeTrue)
			})
		})

		Convey("When the input is empty or nil", func() {
			Convey("Then the result is empty without error", func() {
				So(arbitrage.Scan(nil), ShouldBeEmpty)
				So(arbitrage.Scan([]domain.Event{}), ShouldBeEmpty)
			})
		})
	})
}
