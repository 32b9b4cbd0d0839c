package bot

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/quarterpin/oraclebot/internal/domain"
)

func TestDecodeCallback(t *testing.T) {
	Convey("Given inline-button callback payloads", t, func() {
		Convey("Sport, event and history payloads round-trip", func() {
			cb, err := decodeCallback(encodeSport(cbSport, "soccer_epl"))
			So(err, ShouldBeNil)
			So(cb.Action, ShouldEqual, cbSport)
			So(cb.SportKey, ShouldEqual, "soccer_epl")

			cb, err = decodeCallback(encodeEvent(cbAnalyze, "soccer_epl", "abc123"))
			So(err, ShouldBeNil)
			So(cb.Action, ShouldEqual, cbAnalyze)
			So(cb.SportKey, ShouldEqual, "soccer_epl")
			So(cb.EventID, ShouldEqual, "abc123")

			cb, err = decodeCallback(encodeHistory(20))
			So(err, ShouldBeNil)
			So(cb.Action, ShouldEqual, cbHistory)
			So(cb.Offset, ShouldEqual, 20)
		})

		Convey("Event payloads stay inside Telegram's 64-byte limit", func() {
			data := encodeEvent(cbAnalyze, "americanfootball_ncaaf", "0123456789abcdef0123456789abcdef")
			So(len(data), ShouldBeLessThanOrEqualTo, 64)
		})

		Convey("Malformed payloads are rejected", func() {
			for _, data := range []string{
				"",
				"bogus",
				"sport|",
				"ev|soccer_epl",
				"ai|soccer_epl|",
				"hist|minus",
				"hist|-1",
			} {
				_, err := decodeCallback(data)
				So(err, ShouldNotBeNil)
			}
		})
	})
}

func TestFormatArbitrage(t *testing.T) {
	Convey("Given a two-outcome opportunity", t, func() {
		opp := domain.Opportunity{
			Match:    "Arsenal vs Leeds United",
			ArbValue: 1/2.2 + 1/2.4,
			BestOdds: domain.BestOdds{
				"Arsenal":      {Price: 2.2, Bookmaker: "betfair"},
				"Leeds United": {Price: 2.4, Bookmaker: "pinnacle"},
			},
		}
		opp.ProfitMargin = (1 - opp.ArbValue) * 100

		Convey("When it is rendered", func() {
			text := formatArbitrage(opp)

			Convey("Then it names the match, the margin and both books", func() {
				So(text, ShouldContainSubstring, "Arsenal vs Leeds United")
				So(text, ShouldContainSubstring, "betfair")
				So(text, ShouldContainSubstring, "pinnacle")
				So(text, ShouldContainSubstring, "@ 2.20")
				So(text, ShouldContainSubstring, "@ 2.40")
			})

			Convey("Then the stake shares favour the shorter price", func() {
				// 1/2.2 / arb = 52.2%, 1/2.4 / arb = 47.8%
				So(text, ShouldContainSubstring, "52.2% on Arsenal")
				So(text, ShouldContainSubstring, "47.8% on Leeds United")
			})
		})
	})
}

func TestFormatHistory(t *testing.T) {
	Convey("Given prediction records in every status", t, func() {
		created := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
		records := []domain.PredictionRecord{
			{HomeTeam: "Arsenal", AwayTeam: "Leeds United", PredictedWinner: "Arsenal", ConfidenceScore: 70, Status: domain.PredictionCorrect, CreatedAt: created},
			{HomeTeam: "Spurs", AwayTeam: "Chelsea", PredictedWinner: "Chelsea", ConfidenceScore: 55, Status: domain.PredictionIncorrect, CreatedAt: created},
			{HomeTeam: "Everton", AwayTeam: "Fulham", PredictedWinner: "Fulham", ConfidenceScore: 60, Status: domain.PredictionPending, CreatedAt: created},
		}

		Convey("When the page is rendered from offset 10", func() {
			text := formatHistory(records, 10)

			Convey("Then rows are numbered from the offset with status icons", func() {
				So(text, ShouldContainSubstring, "11. ✅ Arsenal vs Leeds United")
				So(text, ShouldContainSubstring, "12. ❌ Spurs vs Chelsea")
				So(text, ShouldContainSubstring, "13. ⏳ Everton vs Fulham")
				So(text, ShouldContainSubstring, "Arsenal (70%)")
				So(text, ShouldContainSubstring, "2026-03-14")
			})
		})

		Convey("When the page is empty", func() {
			So(formatHistory(nil, 0), ShouldEqual, "No more predictions.")
		})
	})
}

func TestFormatScanResult(t *testing.T) {
	Convey("Given scan results", t, func() {
		Convey("An empty scan reports no opportunities", func() {
			So(formatScanResult(nil), ShouldContainSubstring, "No arbitrage")
		})

		Convey("Opportunities are listed highest margin first", func() {
			text := formatScanResult([]domain.Opportunity{
				{Match: "A vs B", SportKey: "soccer_epl", ProfitMargin: 1.5},
				{Match: "C vs D", SportKey: "soccer_epl", ProfitMargin: 4.2},
			})
			So(text, ShouldContainSubstring, "2 opportunities")
			first := text[:len(text)/2]
			So(first, ShouldContainSubstring, "C vs D")
		})
	})
}
