// Package apify implements a client for the Apify actor API, used to scrape
// recent social posts about an upcoming match for sentiment analysis.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// Client runs Apify actors synchronously and collects their dataset output.
type Client struct {
	baseURL    string
	token      string
	actorID    string
	httpClient *http.Client
}

// NewClient creates a new Apify client bound to one actor.
//
// baseURL is the API root, e.g. "https://api.apify.com/v2". actorID uses the
// tilde form, e.g. "microworlds~twitter-scraper".
func NewClient(baseURL, token, actorID string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		actorID: actorID,
		httpClient: &http.Client{
			// Actor runs block until the scrape finishes.
			Timeout: 120 * time.Second,
		},
	}
}

// actorInput is the input document for the twitter scraper actor.
type actorInput struct {
	SearchTerms []string `json:"searchTerms"`
	MaxTweets   int      `json:"maxTweets"`
	Lang        string   `json:"tweetLanguage,omitempty"`
}

// tweetItem is one dataset row. The actor emits either full_text or text
// depending on version.
type tweetItem struct {
	FullText string `json:"full_text"`
	Text     string `json:"text"`
}

// SearchPosts runs the actor for the given query and returns the post texts,
// capped at maxPosts.
func (c *Client) SearchPosts(ctx context.Context, query string, maxPosts int) ([]string, error) {
	if c.token == "" {
		return nil, fmt.Errorf("apify: %w", domain.ErrNotConfigured)
	}

	input := actorInput{
		SearchTerms: []string{query},
		MaxTweets:   maxPosts,
		Lang:        "en",
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("apify: marshal input: %w", err)
	}

	params := url.Values{}
	params.Set("token", c.token)
	fullURL := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?%s",
		c.baseURL, url.PathEscape(c.actorID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("apify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apify: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("apify: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("apify: %w", domain.ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("apify: %w", domain.ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("apify: HTTP %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var items []tweetItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("apify: decode dataset: %w", err)
	}

	texts := make([]string, 0, len(items))
	for _, it := range items {
		text := it.FullText
		if text == "" {
			text = it.Text
		}
		if text == "" {
			continue
		}
		texts = append(texts, text)
		if len(texts) >= maxPosts {
			break
		}
	}

	return texts, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
