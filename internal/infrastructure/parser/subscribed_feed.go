package parser

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsRelay/internal/dedup"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/scanner"
)

// SubscribedFeed polls one eligible stored feed per call.
type SubscribedFeed struct {
	feeds  ports.FeedRepository
	client *http.Client
	opts   FetchOptions
	pick   func(n int) int
	now    func() time.Time
	logger *slog.Logger
}

var _ scanner.Adapter = (*SubscribedFeed)(nil)

// NewSubscribedFeed wires the feed repository and HTTP client.
func NewSubscribedFeed(feeds ports.FeedRepository, client *http.Client, opts FetchOptions, logger *slog.Logger) *SubscribedFeed {
	return &SubscribedFeed{
		feeds:  feeds,
		client: defaultClient(client),
		opts:   opts.withDefaults(),
		pick:   rand.IntN,
		now:    time.Now,
		logger: logger,
	}
}

// Kind identifies the adapter variant.
func (s *SubscribedFeed) Kind() domain.SourceKind {
	return domain.KindSubscribedFeed
}

// FetchCandidate parses a random eligible feed and returns its first linked item.
func (s *SubscribedFeed) FetchCandidate(ctx context.Context) (*domain.Candidate, error) {
	records, err := s.feeds.ListFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}

	now := s.now()
	var eligible []domain.FeedRecord
	for _, f := range records {
		if f.Eligible(now) {
			eligible = append(eligible, f)
		}
	}
	if len(eligible) == 0 {
		s.debug("no eligible feeds", "total", len(records))
		return nil, nil
	}
	record := eligible[s.pick(len(eligible))]

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = s.client
	parser.UserAgent = s.opts.UserAgent

	feed, err := parser.ParseURLWithContext(record.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", record.ID, err)
	}

	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		return candidateFromItem(record, feed, item), nil
	}
	return nil, nil
}

func candidateFromItem(record domain.FeedRecord, feed *gofeed.Feed, item *gofeed.Item) *domain.Candidate {
	link := strings.TrimSpace(item.Link)

	name := record.Name
	if name == "" {
		name = feed.Title
	}

	c := &domain.Candidate{
		Title:           strings.TrimSpace(item.Title),
		Summary:         dedup.StripMarkup(item.Description),
		Content:         item.Content,
		TextContent:     dedup.StripMarkup(item.Content),
		Image:           itemImage(item),
		SourceURL:       link,
		CleanURL:        dedup.NormalizeURL(link),
		SourceName:      name,
		FeedID:          record.ID,
		CooldownMinutes: record.CooldownMinutes,
	}
	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		c.PublishedAt = &published
	} else if item.UpdatedParsed != nil {
		updated := item.UpdatedParsed.UTC()
		c.PublishedAt = &updated
	}
	return c
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

func (s *SubscribedFeed) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
