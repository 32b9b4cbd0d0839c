// Package predict builds match-analysis prompts, calls the Gemini
// generateContent API, and parses the structured prediction out of the model
// response.
package predict

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

// KeyFunc resolves the API key at request time so the key can live encrypted
// in the settings store.
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

// Client is the REST client for the Gemini generateContent endpoint.
type Client struct {
	baseURL    string
	model      string
	keyFn      KeyFunc
	httpClient *http.Client
}

// NewClient creates a new Gemini client.
//
// baseURL is the API root, e.g.
// "https://generativelanguage.googleapis.com/v1beta"; model is a model name
// like "gemini-pro".
func NewClient(baseURL, model string, keyFn KeyFunc) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		keyFn:   keyFn,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// generateRequest/generateResponse mirror the generateContent wire format.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Predict sends the prompt built from input to the model and parses the
// structured prediction from the reply.
func (c *Client) Predict(ctx context.Context, input PromptInput) (domain.Prediction, error) {
	prompt := BuildPrompt(input)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("predict: %w", err)
	}

	pred, err := ParsePrediction(text)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("predict: %w", err)
	}

	return pred, nil
}

// generate performs one generateContent call and returns the first
// candidate's text.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	key, err := c.keyFn(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve api key: %w", err)
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	params := url.Values{}
	params.Set("key", key)
	fullURL := fmt.Sprintf("%s/models/%s:generateContent?%s",
		c.baseURL, url.PathEscape(c.model), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", domain.ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", domain.ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg := ""
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty model response")
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}
