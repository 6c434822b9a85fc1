package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"

	"NewsRelay/internal/dedup"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/scanner"
)

const (
	maxListingLinks     = 5
	defaultLinkSelector = "article a[href]"
	robotsBodyLimit     = 512 << 10
)

// Site is one publisher scraped through its listing page.
type Site struct {
	Name         string
	ListingURL   string
	LinkSelector string
}

// DirectSite picks a configured site at random and returns a fresh link from its listing page.
type DirectSite struct {
	client *http.Client
	sites  []Site
	opts   FetchOptions
	pick   func(n int) int
	logger *slog.Logger
}

var _ scanner.Adapter = (*DirectSite)(nil)

// NewDirectSite wires the configured sites.
func NewDirectSite(client *http.Client, sites []Site, opts FetchOptions, logger *slog.Logger) *DirectSite {
	return &DirectSite{
		client: defaultClient(client),
		sites:  sites,
		opts:   opts.withDefaults(),
		pick:   rand.IntN,
		logger: logger,
	}
}

// Kind identifies the adapter variant.
func (d *DirectSite) Kind() domain.SourceKind {
	return domain.KindDirectSite
}

// FetchCandidate scrapes one randomly chosen site.
func (d *DirectSite) FetchCandidate(ctx context.Context) (*domain.Candidate, error) {
	if len(d.sites) == 0 {
		return nil, nil
	}
	site := d.sites[d.pick(len(d.sites))]

	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	listing, err := url.Parse(site.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("site %s: invalid listing url: %w", site.Name, err)
	}

	if !d.allowedByRobots(ctx, listing) {
		return nil, fmt.Errorf("site %s: listing disallowed by robots.txt", site.Name)
	}

	doc, base, err := fetchDocument(ctx, d.client, d.opts.UserAgent, listing.String())
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	selector := site.LinkSelector
	if selector == "" {
		selector = defaultLinkSelector
	}

	links := extractListingLinks(doc, base, selector)
	d.debug("listing links", "site", site.Name, "count", len(links))

	for _, link := range links {
		if !sameSite(link.link, listing) {
			continue
		}
		return &domain.Candidate{
			Title:      link.title,
			SourceURL:  link.link.String(),
			CleanURL:   dedup.NormalizeURL(link.link.String()),
			SourceName: site.Name,
		}, nil
	}
	return nil, nil
}

func extractListingLinks(doc *goquery.Document, base *url.URL, selector string) []searchResult {
	var links []searchResult
	seen := map[string]struct{}{}
	basePath := strings.TrimRight(base.Path, "/")

	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		link, ok := resolveLink(base, href)
		if !ok || strings.TrimRight(link.Path, "/") == basePath {
			return true
		}
		if _, dup := seen[link.String()]; dup {
			return true
		}
		seen[link.String()] = struct{}{}
		links = append(links, searchResult{
			title: strings.Join(strings.Fields(sel.Text()), " "),
			link:  link,
		})
		return len(links) < maxListingLinks
	})
	return links
}

// allowedByRobots fails open: an unreachable or broken robots.txt allows the fetch.
func (d *DirectSite) allowedByRobots(ctx context.Context, listing *url.URL) bool {
	robotsURL := url.URL{Scheme: listing.Scheme, Host: listing.Host, Path: "/robots.txt"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return true
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		d.debug("robots.txt unavailable", "host", listing.Host, "error", err)
		return true
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsBodyLimit))
	if err != nil {
		return true
	}
	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return true
	}

	path := listing.EscapedPath()
	if path == "" {
		path = "/"
	}
	return robots.TestAgent(path, "NewsRelay")
}

func (d *DirectSite) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
