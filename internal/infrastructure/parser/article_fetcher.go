package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const defaultArticleTimeout = 15 * time.Second

// ArticleFetcher downloads a page and extracts its main content.
type ArticleFetcher struct {
	client *http.Client
	opts   FetchOptions
}

var _ ports.ContentFetcher = (*ArticleFetcher)(nil)

// NewArticleFetcher builds a fetcher; the timeout defaults to 15s.
func NewArticleFetcher(client *http.Client, opts FetchOptions) *ArticleFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultArticleTimeout
	}
	return &ArticleFetcher{client: defaultClient(client), opts: opts.withDefaults()}
}

// FetchArticle returns the readable body of rawURL. A page without text is an error.
func (f *ArticleFetcher) FetchArticle(ctx context.Context, rawURL string) (domain.FullArticle, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return domain.FullArticle{}, fmt.Errorf("invalid article url %q", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.FullArticle{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.FullArticle{}, fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.FullArticle{}, fmt.Errorf("article %s returned %s", rawURL, resp.Status)
	}

	article, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return domain.FullArticle{}, fmt.Errorf("extract article: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return domain.FullArticle{}, fmt.Errorf("article %s has no readable text", rawURL)
	}

	return domain.FullArticle{
		Title:       strings.TrimSpace(article.Title),
		Content:     article.Content,
		TextContent: text,
		Image:       article.Image,
	}, nil
}
