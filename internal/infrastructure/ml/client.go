package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const maxCategorizeChars = 4000

// Client talks to an external inference service that labels articles with a category.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Categorizer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     httpClient,
	}
}

// Categorize returns the predicted category, or DefaultCategory when the service has no answer.
func (c *Client) Categorize(ctx context.Context, title, text string) (string, error) {
	if c.endpoint == "" {
		return domain.DefaultCategory, nil
	}
	if utf8.RuneCountInString(text) > maxCategorizeChars {
		text = string([]rune(text)[:maxCategorizeChars])
	}

	payload := map[string]any{
		"title": title,
		"text":  text,
	}

	var resp struct {
		Category string `json:"category"`
	}
	if err := c.post(ctx, "/categorize", payload, &resp); err != nil {
		return "", err
	}

	category := strings.ToLower(strings.TrimSpace(resp.Category))
	if category == "" {
		return domain.DefaultCategory, nil
	}
	return category, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
