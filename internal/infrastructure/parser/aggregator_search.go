package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsRelay/internal/dedup"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/scanner"
)

const defaultMaxResults = 5

// AggregatorOptions configures the search-results adapter.
type AggregatorOptions struct {
	FetchOptions
	SearchURL       string
	Query           string
	Selectors       []string
	MaxResults      int
	MinPathSegments int
}

// AggregatorSearch queries a news aggregator and follows its result links to the publisher.
type AggregatorSearch struct {
	client *http.Client
	opts   AggregatorOptions
	logger *slog.Logger
}

var _ scanner.Adapter = (*AggregatorSearch)(nil)

type searchResult struct {
	title string
	link  *url.URL
}

// NewAggregatorSearch wires an HTTP client; MaxResults defaults to 5.
func NewAggregatorSearch(client *http.Client, opts AggregatorOptions, logger *slog.Logger) *AggregatorSearch {
	opts.FetchOptions = opts.FetchOptions.withDefaults()
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.MinPathSegments <= 0 {
		opts.MinPathSegments = defaultMinPathSegments
	}
	return &AggregatorSearch{client: defaultClient(client), opts: opts, logger: logger}
}

// Kind identifies the adapter variant.
func (a *AggregatorSearch) Kind() domain.SourceKind {
	return domain.KindAggregatorSearch
}

// FetchCandidate returns the first result that lands on a publisher article page.
func (a *AggregatorSearch) FetchCandidate(ctx context.Context) (*domain.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	searchURL, err := a.searchURL()
	if err != nil {
		return nil, err
	}

	doc, base, err := fetchDocument(ctx, a.client, a.opts.UserAgent, searchURL)
	if err != nil {
		return nil, fmt.Errorf("aggregator search: %w", err)
	}

	results := extractResults(doc, base, a.opts.Selectors, a.opts.MaxResults)
	a.debug("aggregator results", "count", len(results))

	for _, res := range results {
		dest, err := resolveRedirects(ctx, a.client, a.opts.UserAgent, res.link)
		if err != nil {
			a.debug("skip result", "url", res.link.String(), "error", err)
			continue
		}
		if sameSite(dest, base) {
			continue
		}
		if !looksLikeArticle(dest, a.opts.MinPathSegments) {
			continue
		}

		return &domain.Candidate{
			Title:      res.title,
			SourceURL:  dest.String(),
			CleanURL:   dedup.NormalizeURL(dest.String()),
			SourceName: registrableDomain(dest.Hostname()),
		}, nil
	}

	return nil, nil
}

func (a *AggregatorSearch) searchURL() (string, error) {
	if a.opts.SearchURL == "" {
		return "", fmt.Errorf("aggregator search url is not configured")
	}
	if strings.Contains(a.opts.SearchURL, "%s") {
		return strings.Replace(a.opts.SearchURL, "%s", url.QueryEscape(a.opts.Query), 1), nil
	}
	return a.opts.SearchURL, nil
}

// extractResults applies selectors in order; the first one with matches wins.
func extractResults(doc *goquery.Document, base *url.URL, selectors []string, limit int) []searchResult {
	for _, selector := range selectors {
		var results []searchResult
		seen := map[string]struct{}{}

		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, ok := sel.Attr("href")
			if !ok {
				return true
			}
			link, ok := resolveLink(base, href)
			if !ok {
				return true
			}
			if _, dup := seen[link.String()]; dup {
				return true
			}
			seen[link.String()] = struct{}{}

			title := strings.Join(strings.Fields(sel.Text()), " ")
			if title == "" {
				title, _ = sel.Attr("title")
			}
			results = append(results, searchResult{title: title, link: link})
			return len(results) < limit
		})

		if len(results) > 0 {
			return results
		}
	}
	return nil
}

func (a *AggregatorSearch) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
