package sentiment

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAnalyze(t *testing.T) {
	Convey("Given a batch of social posts", t, func() {
		Convey("positive posts dominate the report", func() {
			posts := []string{
				"They look unstoppable this season, great form",
				"Confident they win this one",
				"What a brilliant squad",
			}
			r := Analyze(posts)
			So(r.SampleSize, ShouldEqual, 3)
			So(r.PositiveRatio, ShouldEqual, 1.0)
			So(r.NegativeRatio, ShouldEqual, 0.0)
			So(r.Summary, ShouldContainSubstring, "mostly positive")
		})

		Convey("negative posts dominate the report", func() {
			posts := []string{
				"Two starters injured, this is a crisis",
				"They keep losing, terrible defending",
			}
			r := Analyze(posts)
			So(r.NegativeRatio, ShouldEqual, 1.0)
			So(r.Summary, ShouldContainSubstring, "mostly negative")
		})

		Convey("a post with balanced hits is neutral", func() {
			// win, great, form vs injury, doubt, poor: three hits each.
			r := Analyze([]string{"a win would be great but the injury doubt and poor form worry me"})
			So(r.NeutralRatio, ShouldEqual, 1.0)

			r = Analyze([]string{"big match tonight at the stadium"})
			So(r.NeutralRatio, ShouldEqual, 1.0)
		})

		Convey("ratios always sum to one", func() {
			posts := []string{
				"great form", "injury doubt", "kickoff at eight",
				"they win everything", "struggling badly",
			}
			r := Analyze(posts)
			So(r.PositiveRatio+r.NegativeRatio+r.NeutralRatio, ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("an empty batch yields a zeroed report", func() {
			r := Analyze(nil)
			So(r.SampleSize, ShouldEqual, 0)
			So(r.PositiveRatio, ShouldEqual, 0.0)
			So(r.Summary, ShouldContainSubstring, "no social posts")
		})

		Convey("matching is case-insensitive", func() {
			r := Analyze([]string{"GREAT WIN, UNBEATEN RUN CONTINUES"})
			So(r.PositiveRatio, ShouldEqual, 1.0)
		})
	})
}
