package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultUserAgent     = "Mozilla/5.0 (compatible; NewsRelay/1.0)"
	defaultSourceTimeout = 10 * time.Second
)

// FetchOptions are shared by every adapter that talks HTTP.
type FetchOptions struct {
	UserAgent string
	Timeout   time.Duration
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultSourceTimeout
	}
	return o
}

func defaultClient(client *http.Client) *http.Client {
	if client == nil {
		return &http.Client{Timeout: 20 * time.Second}
	}
	return client
}

// fetchDocument GETs pageURL and parses it, returning the URL the response was served from.
func fetchDocument(ctx context.Context, client *http.Client, userAgent, pageURL string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, resp.Request.URL, nil
}

// resolveRedirects follows redirects of link and returns the final destination.
// HEAD is tried first; servers that reject it get a GET.
func resolveRedirects(ctx context.Context, client *http.Client, userAgent string, link *url.URL) (*url.URL, error) {
	final, err := finalURL(ctx, client, http.MethodHead, userAgent, link)
	if err == nil {
		return final, nil
	}
	return finalURL(ctx, client, http.MethodGet, userAgent, link)
}

func finalURL(ctx context.Context, client *http.Client, method, userAgent string, link *url.URL) (*url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, method, link.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, link, err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%s %s returned %s", method, link, resp.Status)
	}
	return resp.Request.URL, nil
}
