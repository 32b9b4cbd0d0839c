package oddsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/quarterpin/oraclebot/internal/domain"
)

func TestListSports(t *testing.T) {
	Convey("Given a sports catalogue endpoint", t, func(cv C) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cv.So(r.URL.Path, ShouldEqual, "/sports")
			cv.So(r.URL.Query().Get("apiKey"), ShouldEqual, "test-key")
			w.Header().Set("x-requests-remaining", "489")
			w.Header().Set("x-requests-used", "11")
			w.Write([]byte(`[
				{"key":"soccer_epl","group":"Soccer","title":"EPL","active":true},
				{"key":"soccer_retired","group":"Soccer","title":"Old Cup","active":false}
			]`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "us,uk", "h2h", StaticKey("test-key"))

		Convey("only active sports come back", func() {
			sports, err := c.ListSports(context.Background())
			So(err, ShouldBeNil)
			So(sports, ShouldHaveLength, 1)
			So(sports[0].Key, ShouldEqual, "soccer_epl")

			Convey("and the quota headers are tracked", func() {
				remaining, used := c.Quota()
				So(remaining, ShouldEqual, 489)
				So(used, ShouldEqual, 11)
			})
		})
	})
}

func TestGetOdds(t *testing.T) {
	Convey("Given an odds endpoint for one sport", t, func(cv C) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cv.So(r.URL.Path, ShouldEqual, "/sports/soccer_epl/odds")
			q := r.URL.Query()
			cv.So(q.Get("regions"), ShouldEqual, "us,uk")
			cv.So(q.Get("markets"), ShouldEqual, "h2h")
			cv.So(q.Get("oddsFormat"), ShouldEqual, "decimal")
			w.Write([]byte(`[{
				"id":"ev1","sport_key":"soccer_epl","sport_title":"EPL",
				"commence_time":"2026-08-30T15:00:00Z",
				"home_team":"Arsenal","away_team":"Chelsea",
				"bookmakers":[{
					"key":"bookie_x","title":"Bookie X",
					"markets":[{"key":"h2h","outcomes":[
						{"name":"Arsenal","price":2.1},
						{"name":"Chelsea","price":3.4},
						{"name":"Draw","price":3.2}
					]}]
				}]
			}]`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "us,uk", "h2h", StaticKey("test-key"))

		Convey("the wire payload maps to domain events", func() {
			events, err := c.GetOdds(context.Background(), "soccer_epl")
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 1)
			So(events[0].Match(), ShouldEqual, "Arsenal vs Chelsea")
			So(events[0].Bookmakers, ShouldHaveLength, 1)

			m, ok := events[0].Bookmakers[0].H2H()
			So(ok, ShouldBeTrue)
			So(m.Outcomes, ShouldHaveLength, 3)
			So(m.Outcomes[0].Price, ShouldEqual, 2.1)
		})
	})
}

func TestGetScores(t *testing.T) {
	Convey("Given a scores endpoint", t, func(cv C) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cv.So(r.URL.Path, ShouldEqual, "/sports/soccer_epl/scores")
			cv.So(r.URL.Query().Get("daysFrom"), ShouldEqual, "3")
			w.Write([]byte(`[{
				"id":"ev1","sport_key":"soccer_epl","completed":true,
				"commence_time":"2026-08-25T15:00:00Z",
				"home_team":"Arsenal","away_team":"Chelsea",
				"scores":[{"name":"Arsenal","score":"2"},{"name":"Chelsea","score":"1"}]
			}]`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "us", "h2h", StaticKey("test-key"))

		Convey("completed games map with their score lines", func() {
			scores, err := c.GetScores(context.Background(), "soccer_epl", 3)
			So(err, ShouldBeNil)
			So(scores, ShouldHaveLength, 1)
			So(scores[0].Completed, ShouldBeTrue)
			So(scores[0].Scores, ShouldHaveLength, 2)
			So(scores[0].Scores[0].Score, ShouldEqual, "2")
		})
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("Given an upstream that rejects the request", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"invalid key","error_code":"INVALID_KEY"}`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "us", "h2h", StaticKey("bad-key"))

		Convey("a 401 maps to ErrUnauthorized", func() {
			_, err := c.ListSports(context.Background())
			So(err, ShouldNotBeNil)
			So(err, ShouldWrap, domain.ErrUnauthorized)
		})
	})

	Convey("Given a missing api key", t, func() {
		c := NewClient("http://unused", "us", "h2h", StaticKey(""))

		Convey("requests fail with ErrNotConfigured before any HTTP call", func() {
			_, err := c.ListSports(context.Background())
			So(err, ShouldWrap, domain.ErrNotConfigured)
		})
	})
}
