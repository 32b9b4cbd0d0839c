package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/quarterpin/oraclebot/internal/domain"
	"github.com/quarterpin/oraclebot/internal/notify"
	"github.com/quarterpin/oraclebot/internal/platform/sportsdb"
	"github.com/quarterpin/oraclebot/internal/predict"
)

type fakeEventProvider struct {
	fakeProvider
	event domain.Event
}

func (f *fakeEventProvider) GetEventOdds(context.Context, string, string) (domain.Event, error) {
	if f.event.ID == "" {
		return domain.Event{}, domain.ErrNotFound
	}
	return f.event, nil
}

type fakeJobs struct {
	domain.JobStore
	enqueued []domain.AnalysisJob
	statuses map[string][]domain.JobStatus
	errMsgs  map[string]string
}

func (f *fakeJobs) Enqueue(_ context.Context, job domain.AnalysisJob) error {
	f.enqueued = append(f.enqueued, job)
	return nil
}

func (f *fakeJobs) UpdateStatus(_ context.Context, id string, status domain.JobStatus, errMsg string) error {
	if f.statuses == nil {
		f.statuses = map[string][]domain.JobStatus{}
		f.errMsgs = map[string]string{}
	}
	f.statuses[id] = append(f.statuses[id], status)
	if errMsg != "" {
		f.errMsgs[id] = errMsg
	}
	return nil
}

type fakeHistoryInsert struct {
	domain.HistoryStore
	inserted []domain.PredictionRecord
}

func (f *fakeHistoryInsert) Insert(_ context.Context, rec domain.PredictionRecord) error {
	f.inserted = append(f.inserted, rec)
	return nil
}

type fakeTeams struct{}

func (fakeTeams) SearchTeam(_ context.Context, name string) (sportsdb.Team, error) {
	return sportsdb.Team{ID: "t1", Name: name, Description: "A storied club."}, nil
}

func (fakeTeams) LastEvents(context.Context, string) ([]sportsdb.PastEvent, error) {
	return []sportsdb.PastEvent{
		{HomeTeam: "Arsenal", AwayTeam: "Leeds", HomeScore: "2", AwayScore: "1"},
		{HomeTeam: "Spurs", AwayTeam: "Arsenal", HomeScore: "3", AwayScore: "0"},
	}, nil
}

type fakeSummaries struct{}

func (fakeSummaries) Summary(_ context.Context, title string) (string, error) {
	return title + " is a professional football club.", nil
}

type fakePosts struct{}

func (fakePosts) SearchPosts(context.Context, string, int) ([]string, error) {
	return []string{"great form lately", "they keep winning"}, nil
}

type fakePredictor struct {
	pred domain.Prediction
	err  error
	last predict.PromptInput
}

func (f *fakePredictor) Predict(_ context.Context, input predict.PromptInput) (domain.Prediction, error) {
	f.last = input
	return f.pred, f.err
}

func TestProcessJob(t *testing.T) {
	event := domain.Event{
		ID: "ev1", SportKey: "soccer_epl",
		HomeTeam: "Arsenal", AwayTeam: "Chelsea",
		CommenceTime: time.Now().UTC().Add(24 * time.Hour),
		Bookmakers: []domain.Bookmaker{
			{Key: "x", Title: "Bookie X", Markets: []domain.Market{{
				Key: domain.MarketKeyH2H,
				Outcomes: []domain.Outcome{
					{Name: "Arsenal", Price: 2.1},
					{Name: "Chelsea", Price: 3.4},
				},
			}}},
		},
	}
	job := domain.AnalysisJob{ID: "job1", EventID: "ev1", SportKey: "soccer_epl", ChatID: 42}

	Convey("Given a healthy analysis pipeline", t, func() {
		jobs := &fakeJobs{}
		history := &fakeHistoryInsert{}
		sender := &fakeSender{}
		predictor := &fakePredictor{pred: domain.Prediction{
			PredictedWinner: "Arsenal",
			ConfidenceScore: 70,
			RiskLevel:       "Medium",
			Reasoning:       "Home advantage and better form.",
		}}

		alerter := &fakeAlerter{}
		svc := NewAnalysisService(
			&fakeEventProvider{event: event}, jobs, history,
			fakeTeams{}, fakeSummaries{}, fakePosts{}, predictor, sender,
			AnalysisConfig{TweetCount: 50}, discardLogger(),
		).WithAlerter(alerter)

		err := svc.ProcessJob(context.Background(), job)
		So(err, ShouldBeNil)

		Convey("the job moves through processing to completed", func() {
			So(jobs.statuses["job1"], ShouldResemble,
				[]domain.JobStatus{domain.JobProcessing, domain.JobCompleted})
		})

		Convey("the prompt carries the gathered context", func() {
			So(predictor.last.HomeTeam, ShouldEqual, "Arsenal")
			So(predictor.last.Odds["Arsenal"].Price, ShouldEqual, 2.1)
			So(predictor.last.HomeProfile, ShouldContainSubstring, "professional football club")
			So(predictor.last.HomeForm, ShouldContainSubstring, "W 2-1 vs Leeds")
			So(predictor.last.HomeForm, ShouldContainSubstring, "L 0-3 vs Spurs")
			So(predictor.last.Sentiment, ShouldNotBeNil)
			So(predictor.last.Sentiment.SampleSize, ShouldEqual, 2)
		})

		Convey("a pending prediction record is saved", func() {
			So(history.inserted, ShouldHaveLength, 1)
			rec := history.inserted[0]
			So(rec.ChatID, ShouldEqual, 42)
			So(rec.PredictedWinner, ShouldEqual, "Arsenal")
			So(rec.Status, ShouldEqual, domain.PredictionPending)
		})

		Convey("the requesting chat receives the prediction", func() {
			So(sender.messages[42], ShouldHaveLength, 1)
			So(sender.messages[42][0], ShouldContainSubstring, "Arsenal vs Chelsea")
			So(sender.messages[42][0], ShouldContainSubstring, "Confidence: 70%")
		})

		Convey("operators are alerted that the prediction is ready", func() {
			So(alerter.events, ShouldResemble, []string{notify.EventPredictionReady})
			So(alerter.titles[0], ShouldEqual, "Prediction ready")
		})
	})

	Convey("Given a predictor that fails", t, func() {
		jobs := &fakeJobs{}
		history := &fakeHistoryInsert{}
		sender := &fakeSender{}
		predictor := &fakePredictor{err: errors.New("model unavailable")}

		alerter := &fakeAlerter{}
		svc := NewAnalysisService(
			&fakeEventProvider{event: event}, jobs, history,
			nil, nil, nil, predictor, sender,
			AnalysisConfig{TweetCount: 50}, discardLogger(),
		).WithAlerter(alerter)

		err := svc.ProcessJob(context.Background(), job)
		So(err, ShouldNotBeNil)

		Convey("the job is marked failed with the error recorded", func() {
			So(jobs.statuses["job1"], ShouldResemble,
				[]domain.JobStatus{domain.JobProcessing, domain.JobFailed})
			So(jobs.errMsgs["job1"], ShouldContainSubstring, "model unavailable")
		})

		Convey("nothing is saved and the chat gets a failure notice", func() {
			So(history.inserted, ShouldBeEmpty)
			So(sender.messages[42], ShouldHaveLength, 1)
			So(sender.messages[42][0], ShouldContainSubstring, "failed")
		})

		Convey("operators get an error alert", func() {
			So(alerter.events, ShouldResemble, []string{notify.EventError})
			So(alerter.titles[0], ShouldEqual, "Analysis job failed")
		})
	})
}

func TestEnqueue(t *testing.T) {
	Convey("Given an analysis request", t, func() {
		jobs := &fakeJobs{}
		svc := NewAnalysisService(
			&fakeEventProvider{}, jobs, nil,
			nil, nil, nil, &fakePredictor{}, nil,
			AnalysisConfig{}, discardLogger(),
		)

		job, err := svc.Enqueue(context.Background(), "ev1", "soccer_epl", 42)
		So(err, ShouldBeNil)

		Convey("a pending job with identity is queued", func() {
			So(job.ID, ShouldNotBeEmpty)
			So(job.Status, ShouldEqual, domain.JobPending)
			So(jobs.enqueued, ShouldHaveLength, 1)
			So(jobs.enqueued[0].ChatID, ShouldEqual, 42)
		})
	})
}

func TestTruncateText(t *testing.T) {
	Convey("Given team background text", t, func() {
		Convey("short text passes through unchanged", func() {
			So(truncateText("FC Porto", 500), ShouldEqual, "FC Porto")
		})

		Convey("long text is cut with an ellipsis", func() {
			out := truncateText(strings.Repeat("a", 600), 500)
			So(out, ShouldHaveLength, 503)
			So(strings.HasSuffix(out, "..."), ShouldBeTrue)
		})

		Convey("a multi-byte rune is never split", func() {
			// "é" is two bytes; a cut at byte 5 lands mid-rune.
			out := truncateText("Suppé café", 5)
			So(utf8.ValidString(out), ShouldBeTrue)
			So(out, ShouldEqual, "Supp...")
		})
	})
}
