package predict

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/quarterpin/oraclebot/internal/domain"
)

func TestParsePrediction(t *testing.T) {
	Convey("Given model replies in various shapes", t, func() {
		want := domain.Prediction{
			PredictedWinner: "Arsenal",
			ConfidenceScore: 72,
			RiskLevel:       "Medium",
			Reasoning:       "Stronger recent form and home advantage.",
		}
		clean := `{"predicted_winner":"Arsenal","confidence_score":72,"risk_level":"Medium","reasoning":"Stronger recent form and home advantage."}`

		Convey("a bare JSON object parses", func() {
			got, err := ParsePrediction(clean)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("a json code fence parses", func() {
			got, err := ParsePrediction("```json\n" + clean + "\n```")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("a plain code fence parses", func() {
			got, err := ParsePrediction("```\n" + clean + "\n```")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("surrounding prose is tolerated", func() {
			got, err := ParsePrediction("Here is my analysis:\n" + clean + "\nGood luck!")
			So(err, ShouldBeNil)
			So(got.PredictedWinner, ShouldEqual, "Arsenal")
		})

		Convey("a reply without JSON fails", func() {
			_, err := ParsePrediction("I cannot make a prediction for this match.")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "no JSON object")
		})

		Convey("missing required keys fail validation", func() {
			_, err := ParsePrediction(`{"predicted_winner":"Arsenal","confidence_score":72,"risk_level":"Medium"}`)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "reasoning")
		})

		Convey("an out-of-range confidence fails validation", func() {
			_, err := ParsePrediction(`{"predicted_winner":"Arsenal","confidence_score":120,"risk_level":"Low","reasoning":"x"}`)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "out of range")
		})

		Convey("an unknown risk level fails validation", func() {
			_, err := ParsePrediction(`{"predicted_winner":"Arsenal","confidence_score":50,"risk_level":"Extreme","reasoning":"x"}`)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "risk_level")
		})
	})
}

func TestBuildPrompt(t *testing.T) {
	Convey("Given gathered fixture context", t, func() {
		in := PromptInput{
			HomeTeam:     "Arsenal",
			AwayTeam:     "Chelsea",
			SportKey:     "soccer_epl",
			CommenceTime: time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC),
			Odds: domain.BestOdds{
				"Arsenal": {Price: 2.1, Bookmaker: "Bookie X"},
				"Chelsea": {Price: 3.4, Bookmaker: "Bookie Y"},
			},
			HomeForm: "W 2-1, W 3-0",
			Sentiment: &domain.SentimentReport{
				PositiveRatio: 0.6, NegativeRatio: 0.2, NeutralRatio: 0.2,
				SampleSize: 50, Summary: "mostly positive sentiment across 50 posts",
			},
		}

		prompt := BuildPrompt(in)

		Convey("every supplied section appears", func() {
			So(prompt, ShouldContainSubstring, "Arsenal vs Chelsea")
			So(prompt, ShouldContainSubstring, "soccer_epl")
			So(prompt, ShouldContainSubstring, "Arsenal: 2.10 (Bookie X)")
			So(prompt, ShouldContainSubstring, "Arsenal recent form")
			So(prompt, ShouldContainSubstring, "mostly positive")
		})

		Convey("the JSON contract is spelled out", func() {
			So(prompt, ShouldContainSubstring, `"predicted_winner"`)
			So(prompt, ShouldContainSubstring, `"confidence_score"`)
			So(prompt, ShouldContainSubstring, `"risk_level"`)
			So(prompt, ShouldContainSubstring, `"reasoning"`)
		})

		Convey("empty sections are omitted", func() {
			So(prompt, ShouldNotContainSubstring, "About Chelsea")
			So(prompt, ShouldNotContainSubstring, "Chelsea recent form")
		})

		Convey("odds render in stable sorted order", func() {
			a := BuildPrompt(in)
			b := BuildPrompt(in)
			So(a, ShouldEqual, b)
		})
	})
}
