// Package oddsapi implements a REST client for The Odds API v4, the upstream
// source of bookmaker odds, the sports catalogue, and final scores.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// KeyFunc resolves the API key at request time. Keeping resolution lazy lets
// the key live encrypted in the settings store and be rotated without a
// restart.
type KeyFunc func(ctx context.Context) (string, error)

// StaticKey wraps a fixed API key as a KeyFunc.
func StaticKey(key string) KeyFunc {
	return func(context.Context) (string, error) {
		if key == "" {
			return "", domain.ErrNotConfigured
		}
		return key, nil
	}
}

// Client is the REST client for The Odds API.
type Client struct {
	baseURL    string
	regions    string
	markets    string
	keyFn      KeyFunc
	httpClient *http.Client

	cache     domain.OddsCache
	limiter   domain.RateLimiter
	limit     int
	limitKey  string
	sportsTTL time.Duration
	oddsTTL   time.Duration

	mu        sync.Mutex
	remaining int
	used      int
}

// NewClient creates a new Odds API client.
//
// baseURL is the API root, e.g. "https://api.the-odds-api.com/v4".
// regions and markets are passed through to the odds endpoint as-is.
func NewClient(baseURL, regions, markets string, keyFn KeyFunc) *Client {
	return &Client{
		baseURL:   baseURL,
		regions:   regions,
		markets:   markets,
		keyFn:     keyFn,
		remaining: -1,
		used:      -1,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithCache attaches a read-through cache for the sports catalogue and
// per-sport odds responses.
func (c *Client) WithCache(cache domain.OddsCache, sportsTTL, oddsTTL time.Duration) *Client {
	c.cache = cache
	c.sportsTTL = sportsTTL
	c.oddsTTL = oddsTTL
	return c
}

// WithRateLimiter attaches a distributed rate limiter; at most limit requests
// per minute reach the upstream API across all replicas.
func (c *Client) WithRateLimiter(limiter domain.RateLimiter, limit int) *Client {
	c.limiter = limiter
	c.limit = limit
	c.limitKey = "oddsapi:requests"
	return c
}

// Quota returns the remaining and used request counts reported by the last
// upstream response headers. Both are -1 until a request has been made.
func (c *Client) Quota() (remaining, used int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining, c.used
}

// ListSports returns the active sports catalogue. Results are served from
// cache when one is attached.
func (c *Client) ListSports(ctx context.Context) ([]domain.Sport, error) {
	if c.cache != nil {
		if sports, err := c.cache.GetSports(ctx); err == nil && len(sports) > 0 {
			return sports, nil
		}
	}

	body, err := c.doRequest(ctx, "/sports", nil)
	if err != nil {
		return nil, fmt.Errorf("oddsapi: list sports: %w", err)
	}

	var raw []sportJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("oddsapi: decode sports: %w", err)
	}

	sports := make([]domain.Sport, 0, len(raw))
	for _, s := range raw {
		if s.Active {
			sports = append(sports, s.toDomain())
		}
	}

	if c.cache != nil && len(sports) > 0 {
		_ = c.cache.SetSports(ctx, sports, c.sportsTTL)
	}

	return sports, nil
}

// GetOdds returns the upcoming events for one sport key with h2h bookmaker
// odds in decimal format. Results are served from cache when one is attached.
func (c *Client) GetOdds(ctx context.Context, sportKey string) ([]domain.Event, error) {
	cacheKey := fmt.Sprintf("odds:%s:%s:%s", sportKey, c.regions, c.markets)
	if c.cache != nil {
		if events, err := c.cache.GetOdds(ctx, cacheKey); err == nil && events != nil {
			return events, nil
		}
	}

	params := url.Values{}
	params.Set("regions", c.regions)
	params.Set("markets", c.markets)
	params.Set("oddsFormat", "decimal")
	params.Set("dateFormat", "iso")

	path := fmt.Sprintf("/sports/%s/odds", url.PathEscape(sportKey))
	body, err := c.doRequest(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("oddsapi: get odds %s: %w", sportKey, err)
	}

	var raw []eventJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("oddsapi: decode odds: %w", err)
	}

	events := eventsToDomain(raw)

	if c.cache != nil {
		_ = c.cache.SetOdds(ctx, cacheKey, events, c.oddsTTL)
	}

	return events, nil
}

// GetEventOdds returns the current odds for a single event. This bypasses the
// cache: single-event lookups back interactive analysis requests that need
// fresh prices.
func (c *Client) GetEventOdds(ctx context.Context, sportKey, eventID string) (domain.Event, error) {
	params := url.Values{}
	params.Set("regions", c.regions)
	params.Set("markets", c.markets)
	params.Set("oddsFormat", "decimal")
	params.Set("dateFormat", "iso")

	path := fmt.Sprintf("/sports/%s/events/%s/odds", url.PathEscape(sportKey), url.PathEscape(eventID))
	body, err := c.doRequest(ctx, path, params)
	if err != nil {
		return domain.Event{}, fmt.Errorf("oddsapi: get event odds %s/%s: %w", sportKey, eventID, err)
	}

	var raw eventJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Event{}, fmt.Errorf("oddsapi: decode event odds: %w", err)
	}

	return raw.toDomain(), nil
}

// GetScores returns recent scores for one sport key, including completed
// games from the past daysFrom days (1-3 per the provider).
func (c *Client) GetScores(ctx context.Context, sportKey string, daysFrom int) ([]domain.ScoreEvent, error) {
	params := url.Values{}
	params.Set("daysFrom", strconv.Itoa(daysFrom))
	params.Set("dateFormat", "iso")

	path := fmt.Sprintf("/sports/%s/scores", url.PathEscape(sportKey))
	body, err := c.doRequest(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("oddsapi: get scores %s: %w", sportKey, err)
	}

	var raw []scoreEventJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("oddsapi: decode scores: %w", err)
	}

	scores := make([]domain.ScoreEvent, 0, len(raw))
	for _, s := range raw {
		scores = append(scores, s.toDomain())
	}

	return scores, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, rate-limits, sends, and reads an HTTP request against
// The Odds API, appending the apiKey query parameter.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	key, err := c.keyFn(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve api key: %w", err)
	}

	if c.limiter != nil {
		ok, err := c.limiter.Allow(ctx, c.limitKey, c.limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		if !ok {
			return nil, domain.ErrRateLimited
		}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", key)

	fullURL := c.baseURL + path + "?" + params.Encode()

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

	c.recordQuota(resp.Header)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := c.checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// recordQuota tracks the x-requests-remaining / x-requests-used headers the
// provider attaches to every response.
func (c *Client) recordQuota(h http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v := h.Get("x-requests-remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.remaining = n
		}
	}
	if v := h.Get("x-requests-used"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.used = n
		}
	}
}

// checkStatus maps non-2xx HTTP status codes to appropriate errors.
func (c *Client) checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr errorJSON
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s (%s)", domain.ErrNotFound, apiErr.Message, apiErr.ErrorCode)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s (%s)", domain.ErrUnauthorized, apiErr.Message, apiErr.ErrorCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s (%s)", domain.ErrRateLimited, apiErr.Message, apiErr.ErrorCode)
	default:
		return fmt.Errorf("HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.ErrorCode)
	}
}
