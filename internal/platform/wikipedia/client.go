// Package wikipedia implements a minimal client for the Wikipedia REST API,
// used to pull background summaries on teams for the analysis prompt.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

const defaultBaseURL = "https://en.wikipedia.org/api/rest_v1"

// Client fetches page summaries from Wikipedia.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Wikipedia client. An empty baseURL uses the public
// English Wikipedia endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Summary returns the lead-section extract for the page closest to title.
// Page titles use underscores for spaces.
func (c *Client) Summary(ctx context.Context, title string) (string, error) {
	slug := strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	fullURL := fmt.Sprintf("%s/page/summary/%s", c.baseURL, url.PathEscape(slug))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("wikipedia: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wikipedia: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("wikipedia: read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("wikipedia: page %q: %w", title, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("wikipedia: HTTP %d", resp.StatusCode)
	}

	var page struct {
		Title   string `json:"title"`
		Extract string `json:"extract"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return "", fmt.Errorf("wikipedia: decode summary: %w", err)
	}

	return page.Extract, nil
}
