package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/quarterpin/oraclebot/internal/domain"
	"github.com/quarterpin/oraclebot/internal/notify"
)

type fakeProvider struct {
	odds map[string][]domain.Event
	errs map[string]error
}

func (f *fakeProvider) ListSports(context.Context) ([]domain.Sport, error) { return nil, nil }

func (f *fakeProvider) GetOdds(_ context.Context, sportKey string) ([]domain.Event, error) {
	if err := f.errs[sportKey]; err != nil {
		return nil, err
	}
	return f.odds[sportKey], nil
}

func (f *fakeProvider) GetEventOdds(context.Context, string, string) (domain.Event, error) {
	return domain.Event{}, domain.ErrNotFound
}

type fakeOppStore struct {
	domain.OpportunityStore
	mu       sync.Mutex
	inserted []domain.Opportunity
}

func (f *fakeOppStore) InsertBatch(_ context.Context, opps []domain.Opportunity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, opps...)
	return nil
}

type fakeBus struct {
	domain.SignalBus
	published [][]byte
	streamed  [][]byte
}

func (f *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	f.streamed = append(f.streamed, payload)
	return nil
}

type fakeAlerter struct {
	events []string
	titles []string
}

func (f *fakeAlerter) Notify(_ context.Context, event, title, _ string) error {
	f.events = append(f.events, event)
	f.titles = append(f.titles, title)
	return nil
}

func arbEvent(id, home, away string, priceA, priceB float64) domain.Event {
	return domain.Event{
		ID: id, SportKey: "soccer_epl", HomeTeam: home, AwayTeam: away,
		Bookmakers: []domain.Bookmaker{
			{Key: "x", Title: "Bookie X", Markets: []domain.Market{{
				Key: domain.MarketKeyH2H,
				Outcomes: []domain.Outcome{
					{Name: home, Price: priceA},
					{Name: away, Price: 1.01},
				},
			}}},
			{Key: "y", Title: "Bookie Y", Markets: []domain.Market{{
				Key: domain.MarketKeyH2H,
				Outcomes: []domain.Outcome{
					{Name: home, Price: 1.01},
					{Name: away, Price: priceB},
				},
			}}},
		},
	}
}

func TestScanSports(t *testing.T) {
	Convey("Given two sports, one with an arbitrage", t, func() {
		provider := &fakeProvider{
			odds: map[string][]domain.Event{
				// 1/2.2 + 1/2.2 ~ 0.909: a real opportunity.
				"soccer_epl": {arbEvent("ev1", "Arsenal", "Chelsea", 2.2, 2.2)},
				// 1/1.5 + 1/1.5 > 1: no opportunity.
				"basketball_nba": {arbEvent("ev2", "Lakers", "Bulls", 1.5, 1.5)},
			},
		}
		store := &fakeOppStore{}
		bus := &fakeBus{}
		alerter := &fakeAlerter{}

		svc := NewOddsService(provider, store, bus, nil, alerter,
			OddsConfig{MinNotifyMargin: 0.5}, discardLogger())

		opps, err := svc.ScanSports(context.Background(), []string{"soccer_epl", "basketball_nba"})
		So(err, ShouldBeNil)

		Convey("only the arbitrage event produces an opportunity", func() {
			So(opps, ShouldHaveLength, 1)
			So(opps[0].EventID, ShouldEqual, "ev1")
		})

		Convey("opportunities get identity and detection time", func() {
			So(opps[0].ID, ShouldNotBeEmpty)
			So(opps[0].DetectedAt.IsZero(), ShouldBeFalse)
		})

		Convey("opportunities are persisted", func() {
			So(store.inserted, ShouldHaveLength, 1)
			So(store.inserted[0].ID, ShouldEqual, opps[0].ID)
		})

		Convey("opportunities reach the bus and the stream", func() {
			So(bus.published, ShouldHaveLength, 1)
			So(bus.streamed, ShouldHaveLength, 1)

			var got domain.Opportunity
			So(json.Unmarshal(bus.published[0], &got), ShouldBeNil)
			So(got.Match, ShouldEqual, "Arsenal vs Chelsea")
		})

		Convey("an alert is raised above the notify threshold", func() {
			So(alerter.events, ShouldResemble, []string{notify.EventArbDetected})
			So(alerter.titles[0], ShouldContainSubstring, "Arsenal vs Chelsea")
		})
	})

	Convey("Given a sport whose fetch fails", t, func() {
		provider := &fakeProvider{
			odds: map[string][]domain.Event{
				"soccer_epl": {arbEvent("ev1", "Arsenal", "Chelsea", 2.2, 2.2)},
			},
			errs: map[string]error{"basketball_nba": errors.New("upstream down")},
		}
		store := &fakeOppStore{}

		svc := NewOddsService(provider, store, nil, nil, nil,
			OddsConfig{}, discardLogger())

		Convey("the cycle still scans the healthy sports", func() {
			opps, err := svc.ScanSports(context.Background(), []string{"basketball_nba", "soccer_epl"})
			So(err, ShouldBeNil)
			So(opps, ShouldHaveLength, 1)
		})
	})

	Convey("Given a low-margin opportunity below the notify threshold", t, func() {
		provider := &fakeProvider{
			odds: map[string][]domain.Event{
				// Margin just above zero, below the 5% threshold.
				"soccer_epl": {arbEvent("ev1", "Arsenal", "Chelsea", 2.02, 2.02)},
			},
		}
		store := &fakeOppStore{}
		alerter := &fakeAlerter{}

		svc := NewOddsService(provider, store, nil, nil, alerter,
			OddsConfig{MinNotifyMargin: 5.0}, discardLogger())

		Convey("it is persisted but not alerted", func() {
			opps, err := svc.ScanSports(context.Background(), []string{"soccer_epl"})
			So(err, ShouldBeNil)
			So(opps, ShouldHaveLength, 1)
			So(store.inserted, ShouldHaveLength, 1)
			So(alerter.events, ShouldBeEmpty)
		})
	})
}
