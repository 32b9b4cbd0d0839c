package oddsapi

import (
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// Wire types mirror The Odds API v4 JSON payloads. They are converted to
// domain types at the client boundary so the rest of the codebase never sees
// provider-specific field names.

type sportJSON struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

type outcomeJSON struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type marketJSON struct {
	Key        string        `json:"key"`
	LastUpdate time.Time     `json:"last_update"`
	Outcomes   []outcomeJSON `json:"outcomes"`
}

type bookmakerJSON struct {
	Key        string       `json:"key"`
	Title      string       `json:"title"`
	LastUpdate time.Time    `json:"last_update"`
	Markets    []marketJSON `json:"markets"`
}

type eventJSON struct {
	ID           string          `json:"id"`
	SportKey     string          `json:"sport_key"`
	SportTitle   string          `json:"sport_title"`
	CommenceTime time.Time       `json:"commence_time"`
	HomeTeam     string          `json:"home_team"`
	AwayTeam     string          `json:"away_team"`
	Bookmakers   []bookmakerJSON `json:"bookmakers"`
}

type scoreJSON struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

type scoreEventJSON struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	Completed    bool        `json:"completed"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Scores       []scoreJSON `json:"scores"`
}

type errorJSON struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

func (s sportJSON) toDomain() domain.Sport {
	return domain.Sport{
		Key:    s.Key,
		Group:  s.Group,
		Title:  s.Title,
		Active: s.Active,
	}
}

func (e eventJSON) toDomain() domain.Event {
	out := domain.Event{
		ID:           e.ID,
		SportKey:     e.SportKey,
		SportTitle:   e.SportTitle,
		CommenceTime: e.CommenceTime,
		HomeTeam:     e.HomeTeam,
		AwayTeam:     e.AwayTeam,
	}
	for _, b := range e.Bookmakers {
		bk := domain.Bookmaker{Key: b.Key, Title: b.Title}
		for _, m := range b.Markets {
			mk := domain.Market{Key: m.Key, LastUpdate: m.LastUpdate}
			for _, o := range m.Outcomes {
				mk.Outcomes = append(mk.Outcomes, domain.Outcome{Name: o.Name, Price: o.Price})
			}
			bk.Markets = append(bk.Markets, mk)
		}
		out.Bookmakers = append(out.Bookmakers, bk)
	}
	return out
}

func (e scoreEventJSON) toDomain() domain.ScoreEvent {
	out := domain.ScoreEvent{
		ID:           e.ID,
		SportKey:     e.SportKey,
		CommenceTime: e.CommenceTime,
		Completed:    e.Completed,
		HomeTeam:     e.HomeTeam,
		AwayTeam:     e.AwayTeam,
	}
	for _, s := range e.Scores {
		out.Scores = append(out.Scores, domain.ScoreLine{Name: s.Name, Score: s.Score})
	}
	return out
}

func eventsToDomain(in []eventJSON) []domain.Event {
	out := make([]domain.Event, 0, len(in))
	for _, e := range in {
		out = append(out, e.toDomain())
	}
	return out
}
