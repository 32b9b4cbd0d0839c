package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/quarterpin/oraclebot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeOppLister struct {
	opps []domain.Opportunity
	err  error
}

func (f *fakeOppLister) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.opps) > limit {
		return f.opps[:limit], nil
	}
	return f.opps, nil
}

type fakePredLister struct {
	byChat map[int64][]domain.PredictionRecord
}

func (f *fakePredLister) ListByChat(ctx context.Context, chatID int64, opts domain.ListOpts) ([]domain.PredictionRecord, error) {
	return f.byChat[chatID], nil
}

type fakeJobGetter struct {
	jobs map[string]domain.AnalysisJob
}

func (f *fakeJobGetter) GetByID(ctx context.Context, id string) (domain.AnalysisJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return domain.AnalysisJob{}, domain.ErrNotFound
	}
	return job, nil
}

func TestOpportunityHandler(t *testing.T) {
	Convey("Given stored opportunities", t, func() {
		lister := &fakeOppLister{opps: []domain.Opportunity{
			{ID: "opp-1", Match: "Arsenal vs Leeds United", ProfitMargin: 2.5},
			{ID: "opp-2", Match: "Spurs vs Chelsea", ProfitMargin: 1.1},
		}}
		h := NewOpportunityHandler(lister, discardLogger())

		Convey("When recent opportunities are requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/opportunities/recent", nil)
			rr := httptest.NewRecorder()
			h.ListRecent(rr, req)

			Convey("Then both rows come back as JSON", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)

				var resp listOpportunitiesResponse
				So(json.Unmarshal(rr.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Opportunities, ShouldHaveLength, 2)
				So(resp.Opportunities[0].Match, ShouldEqual, "Arsenal vs Leeds United")
			})
		})

		Convey("When a limit is given", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/opportunities/recent?limit=1", nil)
			rr := httptest.NewRecorder()
			h.ListRecent(rr, req)

			var resp listOpportunitiesResponse
			So(json.Unmarshal(rr.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Opportunities, ShouldHaveLength, 1)
		})

		Convey("When the store is empty the response is an empty array", func() {
			lister.opps = nil
			req := httptest.NewRequest(http.MethodGet, "/api/opportunities/recent", nil)
			rr := httptest.NewRecorder()
			h.ListRecent(rr, req)

			So(rr.Body.String(), ShouldContainSubstring, `"opportunities":[]`)
		})
	})
}

func TestPredictionHandler(t *testing.T) {
	Convey("Given prediction history for one chat", t, func() {
		lister := &fakePredLister{byChat: map[int64][]domain.PredictionRecord{
			42: {{ID: "rec-1", PredictedWinner: "Arsenal"}},
		}}
		h := NewPredictionHandler(lister, discardLogger())

		Convey("When history is requested with a chat_id", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/predictions?chat_id=42", nil)
			rr := httptest.NewRecorder()
			h.List(rr, req)

			So(rr.Code, ShouldEqual, http.StatusOK)
			var resp listPredictionsResponse
			So(json.Unmarshal(rr.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Predictions, ShouldHaveLength, 1)
			So(resp.Predictions[0].PredictedWinner, ShouldEqual, "Arsenal")
		})

		Convey("When chat_id is missing the request is rejected", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/predictions", nil)
			rr := httptest.NewRecorder()
			h.List(rr, req)

			So(rr.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When chat_id is not numeric the request is rejected", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/predictions?chat_id=abc", nil)
			rr := httptest.NewRecorder()
			h.List(rr, req)

			So(rr.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestJobHandler(t *testing.T) {
	Convey("Given a stored analysis job", t, func() {
		getter := &fakeJobGetter{jobs: map[string]domain.AnalysisJob{
			"job-1": {ID: "job-1", Status: domain.JobCompleted},
		}}
		h := NewJobHandler(getter, discardLogger())

		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/jobs/{id}", h.Get)

		Convey("When the job exists", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Body.String(), ShouldContainSubstring, "completed")
		})

		Convey("When the job does not exist", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestScanHandler(t *testing.T) {
	Convey("Given a scan handler with a trigger channel", t, func() {
		ch := make(chan struct{}, 1)
		h := NewScanHandler(discardLogger()).WithTriggerChannel(ch)

		Convey("When a trigger is posted", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/scan/trigger", nil)
			rr := httptest.NewRecorder()
			h.Trigger(rr, req)

			Convey("Then the request is accepted and the channel fires", func() {
				So(rr.Code, ShouldEqual, http.StatusAccepted)
				So(len(ch), ShouldEqual, 1)
			})
		})

		Convey("When two triggers arrive before the loop consumes one", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/scan/trigger", nil)
			h.Trigger(httptest.NewRecorder(), req)
			h.Trigger(httptest.NewRecorder(), req)

			Convey("Then they collapse into a single pending cycle", func() {
				So(len(ch), ShouldEqual, 1)
			})
		})
	})
}

type fakeStreamReader struct {
	msgs     []domain.StreamMessage
	err      error
	stream   string
	lastID   string
	askCount int
}

func (f *fakeStreamReader) StreamRead(_ context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	f.stream = stream
	f.lastID = lastID
	f.askCount = count
	return f.msgs, f.err
}

func TestStreamHandler(t *testing.T) {
	Convey("Given a durable stream with two entries", t, func() {
		bus := &fakeStreamReader{msgs: []domain.StreamMessage{
			{ID: "1-0", Payload: []byte(`{"match":"Arsenal vs Chelsea"}`)},
			{ID: "2-0", Payload: []byte(`{"match":"Lakers vs Bulls"}`)},
		}}
		h := NewStreamHandler(bus, discardLogger())

		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/streams/{channel}", h.Replay)

		Convey("When the opportunities channel is replayed", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/streams/opportunities", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			Convey("Then the entries come back oldest first with raw payloads", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				So(bus.stream, ShouldEqual, "stream:opportunities")
				So(bus.lastID, ShouldEqual, "0-0")

				var resp struct {
					Channel  string `json:"channel"`
					Messages []struct {
						ID      string          `json:"id"`
						Payload json.RawMessage `json:"payload"`
					} `json:"messages"`
				}
				So(json.Unmarshal(rr.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Channel, ShouldEqual, "opportunities")
				So(resp.Messages, ShouldHaveLength, 2)
				So(resp.Messages[0].ID, ShouldEqual, "1-0")
				So(string(resp.Messages[1].Payload), ShouldContainSubstring, "Lakers vs Bulls")
			})
		})

		Convey("When the client resumes after an ID", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/streams/predictions?after=5-0&count=10", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusOK)
			So(bus.stream, ShouldEqual, "stream:predictions")
			So(bus.lastID, ShouldEqual, "5-0")
			So(bus.askCount, ShouldEqual, 10)
		})

		Convey("When the channel is unknown", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/streams/nope", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When count is not a positive integer", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/streams/opportunities?count=-3", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an oversized count is requested it is clamped", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/streams/opportunities?count=9999", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusOK)
			So(bus.askCount, ShouldEqual, maxStreamCount)
		})
	})
}

type fakeSnapshotBrowser struct {
	infos map[string][]domain.BlobInfo
	docs  map[string]string
}

func (f *fakeSnapshotBrowser) ListSnapshots(_ context.Context, sportKey, day string) ([]domain.BlobInfo, error) {
	return f.infos[sportKey+"/"+day], nil
}

func (f *fakeSnapshotBrowser) OpenSnapshot(_ context.Context, path string) (io.ReadCloser, error) {
	doc, ok := f.docs[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(doc)), nil
}

func TestSnapshotHandler(t *testing.T) {
	Convey("Given stored odds snapshots", t, func() {
		browser := &fakeSnapshotBrowser{
			infos: map[string][]domain.BlobInfo{
				"soccer_epl/": {
					{Path: "snapshots/soccer_epl/2026-08-26/120000.json", Size: 2048},
				},
				"soccer_epl/2026-08-25": {},
			},
			docs: map[string]string{
				"snapshots/soccer_epl/2026-08-26/120000.json": `[{"id":"ev1"}]`,
			},
		}
		h := NewSnapshotHandler(browser, discardLogger())

		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/snapshots", h.List)
		mux.HandleFunc("GET /api/snapshots/{path...}", h.Get)

		Convey("When snapshots are listed for a sport", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/snapshots?sport=soccer_epl", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Body.String(), ShouldContainSubstring, "snapshots/soccer_epl/2026-08-26/120000.json")
		})

		Convey("When the sport parameter is missing", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/snapshots", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a day with no captures is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/snapshots?sport=soccer_epl&date=2026-08-25", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Body.String(), ShouldContainSubstring, `"snapshots":[]`)
		})

		Convey("When one snapshot document is fetched", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/snapshots/soccer_epl/2026-08-26/120000.json", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			So(rr.Body.String(), ShouldEqual, `[{"id":"ev1"}]`)
		})

		Convey("When the snapshot does not exist", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/snapshots/soccer_epl/2026-08-26/999999.json", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHealthHandler(t *testing.T) {
	Convey("Given the health handler", t, func() {
		h := NewHealthHandler(discardLogger())
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rr := httptest.NewRecorder()
		h.HealthCheck(rr, req)

		So(rr.Code, ShouldEqual, http.StatusOK)
		So(rr.Body.String(), ShouldContainSubstring, `"status":"ok"`)
	})
}
