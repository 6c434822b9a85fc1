package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"NewsRelay/internal/domain"
)

const (
	DefaultWindow    = 24 * time.Hour
	DefaultThreshold = 0.92
)

// Type names the layer that flagged a duplicate.
type Type string

const (
	TypeExact       Type = "exact"
	TypeContentHash Type = "content_hash"
	TypeSemantic    Type = "semantic"
)

// Result is the verdict of a single check.
type Result struct {
	Duplicate bool
	Type      Type
	Score     float64
	MatchedID string
}

// Lookup is the slice of the article store the checker needs.
type Lookup interface {
	ExistsByURLHash(ctx context.Context, hash string) (bool, error)
	ExistsByContentHash(ctx context.Context, hash string) (bool, error)
	CreatedSince(ctx context.Context, since time.Time) ([]domain.PublishedArticle, error)
}

// CheckerConfig tunes the near-duplicate layer. Zero values take the defaults.
type CheckerConfig struct {
	Window    time.Duration
	Threshold float64
	Now       func() time.Time
}

// Checker runs the three dedup layers against the article store.
type Checker struct {
	lookup    Lookup
	window    time.Duration
	threshold float64
	now       func() time.Time
}

// NewChecker wires a store lookup with the semantic window and threshold.
func NewChecker(lookup Lookup, cfg CheckerConfig) *Checker {
	c := &Checker{
		lookup:    lookup,
		window:    cfg.Window,
		threshold: cfg.Threshold,
		now:       cfg.Now,
	}
	if c.window <= 0 {
		c.window = DefaultWindow
	}
	if c.threshold <= 0 {
		c.threshold = DefaultThreshold
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// CheckURL rejects a candidate whose normalized URL was already published.
func (c *Checker) CheckURL(ctx context.Context, normalizedURL string) (Result, error) {
	exists, err := c.lookup.ExistsByURLHash(ctx, HashURL(normalizedURL))
	if err != nil {
		return Result{}, fmt.Errorf("lookup url hash: %w", err)
	}
	if !exists {
		return Result{}, nil
	}
	return Result{Duplicate: true, Type: TypeExact, Score: 1}, nil
}

// CheckContent rejects a candidate whose leading text was already published.
func (c *Checker) CheckContent(ctx context.Context, text string) (Result, error) {
	exists, err := c.lookup.ExistsByContentHash(ctx, HashContent(text))
	if err != nil {
		return Result{}, fmt.Errorf("lookup content hash: %w", err)
	}
	if !exists {
		return Result{}, nil
	}
	return Result{Duplicate: true, Type: TypeContentHash, Score: 1}, nil
}

// CheckSemantic compares a summary against summaries published inside the window.
// An empty summary is never a duplicate.
func (c *Checker) CheckSemantic(ctx context.Context, summary string) (Result, error) {
	if strings.TrimSpace(summary) == "" {
		return Result{}, nil
	}

	recent, err := c.lookup.CreatedSince(ctx, c.now().Add(-c.window))
	if err != nil {
		return Result{}, fmt.Errorf("load recent articles: %w", err)
	}

	candidate := Shingles(summary)
	best := Result{}
	for _, article := range recent {
		if strings.TrimSpace(article.Summary) == "" {
			continue
		}
		score := Jaccard(candidate, Shingles(article.Summary))
		if score > best.Score {
			best = Result{Score: score, MatchedID: article.ID}
		}
	}

	if best.Score >= c.threshold {
		best.Duplicate = true
		best.Type = TypeSemantic
	}
	return best, nil
}
