// Package sportsdb implements a REST client for TheSportsDB, used to enrich
// match analysis with team profiles and recent results.
package sportsdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// Team is a team profile as returned by the teams search endpoint.
type Team struct {
	ID          string
	Name        string
	League      string
	Stadium     string
	FormedYear  string
	Description string
}

// PastEvent is one finished game from a team's recent schedule.
type PastEvent struct {
	Event     string
	Date      string
	HomeTeam  string
	AwayTeam  string
	HomeScore string
	AwayScore string
}

// Client is the REST client for TheSportsDB API. The free tier keys the API
// by path segment rather than header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new TheSportsDB client. An empty apiKey falls back to
// the provider's public test key.
func NewClient(baseURL, apiKey string) *Client {
	if apiKey == "" {
		apiKey = "3"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// SearchTeam looks a team up by name and returns the first match.
func (c *Client) SearchTeam(ctx context.Context, name string) (Team, error) {
	params := url.Values{}
	params.Set("t", name)

	body, err := c.doRequest(ctx, "/searchteams.php", params)
	if err != nil {
		return Team{}, fmt.Errorf("sportsdb: search team %q: %w", name, err)
	}

	var resp struct {
		Teams []teamJSON `json:"teams"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Team{}, fmt.Errorf("sportsdb: decode teams: %w", err)
	}
	if len(resp.Teams) == 0 {
		return Team{}, fmt.Errorf("sportsdb: team %q: %w", name, domain.ErrNotFound)
	}

	return resp.Teams[0].toTeam(), nil
}

// LastEvents returns a team's most recent finished games, newest first.
func (c *Client) LastEvents(ctx context.Context, teamID string) ([]PastEvent, error) {
	params := url.Values{}
	params.Set("id", teamID)

	body, err := c.doRequest(ctx, "/eventslast.php", params)
	if err != nil {
		return nil, fmt.Errorf("sportsdb: last events %s: %w", teamID, err)
	}

	var resp struct {
		Results []eventPastJSON `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("sportsdb: decode events: %w", err)
	}

	events := make([]PastEvent, 0, len(resp.Results))
	for _, e := range resp.Results {
		events = append(events, e.toPastEvent())
	}
	return events, nil
}

type teamJSON struct {
	IDTeam        string `json:"idTeam"`
	StrTeam       string `json:"strTeam"`
	StrLeague     string `json:"strLeague"`
	StrStadium    string `json:"strStadium"`
	IntFormedYear string `json:"intFormedYear"`
	StrDescr      string `json:"strDescriptionEN"`
}

func (t teamJSON) toTeam() Team {
	return Team{
		ID:          t.IDTeam,
		Name:        t.StrTeam,
		League:      t.StrLeague,
		Stadium:     t.StrStadium,
		FormedYear:  t.IntFormedYear,
		Description: t.StrDescr,
	}
}

type eventPastJSON struct {
	StrEvent     string `json:"strEvent"`
	DateEvent    string `json:"dateEvent"`
	StrHomeTeam  string `json:"strHomeTeam"`
	StrAwayTeam  string `json:"strAwayTeam"`
	IntHomeScore string `json:"intHomeScore"`
	IntAwayScore string `json:"intAwayScore"`
}

func (e eventPastJSON) toPastEvent() PastEvent {
	return PastEvent{
		Event:     e.StrEvent,
		Date:      e.DateEvent,
		HomeTeam:  e.StrHomeTeam,
		AwayTeam:  e.StrAwayTeam,
		HomeScore: e.IntHomeScore,
		AwayScore: e.IntAwayScore,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := fmt.Sprintf("%s/%s%s?%s", c.baseURL, c.apiKey, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return respBody, nil
}
