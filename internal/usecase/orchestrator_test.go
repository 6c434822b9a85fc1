package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/dedup"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/scanner"
)

var longText = strings.Repeat("Harbor officials confirmed the reopening of the northern quay today. ", 10)

type harness struct {
	store    *memStore
	clock    *fakeClock
	search   *fakeAdapter
	sites    *fakeAdapter
	feeds    *fakeAdapter
	fetcher  *fakeFetcher
	notifier *fakeNotifier
	queue    *fakeQueue
	orch     *Orchestrator
}

func newHarness(t *testing.T, sources ...domain.SourceState) *harness {
	t.Helper()

	if len(sources) == 0 {
		sources = []domain.SourceState{
			{ID: "search", Kind: domain.KindAggregatorSearch, Priority: 1, Enabled: true},
			{ID: "sites", Kind: domain.KindDirectSite, Priority: 2, Enabled: true},
			{ID: "feeds", Kind: domain.KindSubscribedFeed, Priority: 3, Enabled: true},
		}
	}

	h := &harness{
		store:    newMemStore(),
		clock:    &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		search:   &fakeAdapter{kind: domain.KindAggregatorSearch},
		sites:    &fakeAdapter{kind: domain.KindDirectSite},
		feeds:    &fakeAdapter{kind: domain.KindSubscribedFeed},
		fetcher:  &fakeFetcher{},
		notifier: &fakeNotifier{},
		queue:    &fakeQueue{},
	}

	reg := scanner.NewRegistry()
	reg.Register("search", h.search)
	reg.Register("sites", h.sites)
	reg.Register("feeds", h.feeds)

	h.orch = NewOrchestrator(OrchestratorDeps{
		Chain:       scanner.NewChain(sources),
		Registry:    reg,
		Articles:    h.store,
		Schedule:    h.store,
		Feeds:       h.store,
		RunLogs:     h.store,
		Fetcher:     h.fetcher,
		Categorizer: fakeCategorizer{category: "world"},
		Notifier:    h.notifier,
		Summaries:   h.queue,
		Clock:       h.clock.Now,
		NewID:       sequentialIDs("article-"),
	})
	return h
}

func (h *harness) run(t *testing.T, opts RunOptions) domain.RunResult {
	t.Helper()
	result, err := h.runErr(opts)
	require.NoError(t, err)
	return result
}

func (h *harness) runErr(opts RunOptions) (domain.RunResult, error) {
	if opts.StartedAt.IsZero() {
		opts.StartedAt = h.clock.Now()
	}
	if opts.RunID == "" {
		opts.RunID = "run-1"
	}
	state, err := h.store.LoadSchedule(context.Background())
	if err != nil {
		return domain.RunResult{}, err
	}
	return h.orch.Run(context.Background(), state, opts)
}

func newCandidate(rawURL string) *domain.Candidate {
	return &domain.Candidate{
		Title:       "Harbor reopens",
		Content:     "<p>" + longText + "</p>",
		TextContent: longText,
		SourceURL:   rawURL,
		SourceName:  "Gazette",
	}
}

func storedArticle(id, rawURL, text, summary string, created time.Time) domain.PublishedArticle {
	clean := dedup.NormalizeURL(rawURL)
	return domain.PublishedArticle{
		ID:                id,
		Title:             "stored",
		Summary:           summary,
		SourceURL:         rawURL,
		NormalizedURL:     clean,
		NormalizedURLHash: dedup.HashURL(clean),
		ContentHash:       dedup.HashContent(text),
		CreatedAt:         created,
		PublishedAt:       created,
	}
}

func TestOrchestratorPublishesFromHighestPrioritySource(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.search.candidate = newCandidate("https://news.example.com/world/harbor?utm_source=agg")
	h.sites.candidate = newCandidate("https://other.example.com/world/other")
	h.store.disabled["feeds"] = struct{}{}

	result := h.run(t, RunOptions{})

	assert.True(t, result.Success)
	assert.False(t, result.Skipped)
	assert.Equal(t, domain.ExitPublished, result.ExitReason)
	assert.Equal(t, "search", result.SourceUsed)
	assert.Equal(t, "article-1", result.ArticleID)
	assert.Equal(t, "run-1", result.RunID)
	assert.Zero(t, h.sites.calls)

	require.Len(t, h.store.articles, 1)
	article := h.store.articles[0]
	assert.Equal(t, "https://news.example.com/world/harbor", article.NormalizedURL)
	assert.Equal(t, dedup.HashURL(article.NormalizedURL), article.NormalizedURLHash)
	assert.Equal(t, dedup.HashContent(longText), article.ContentHash)
	assert.Equal(t, "world", article.Category)
	assert.Equal(t, domain.SummaryPending, article.SummaryStatus)
	assert.Equal(t, h.clock.Now(), article.CreatedAt)

	assert.Equal(t, 1, h.store.categories["world"])
	require.Len(t, h.notifier.notes, 1)
	assert.Equal(t, "article-1", h.notifier.notes[0].ArticleID)
	assert.Equal(t, []string{"article-1"}, h.queue.ids)

	assert.Empty(t, h.store.disabledIDs())
	assert.Equal(t, 1, h.store.state.PostsToday)
	require.NotNil(t, h.store.state.LastPostedAt)

	require.Len(t, h.store.runLogs, 1)
	assert.Equal(t, domain.ExitPublished, h.store.runLogs[0].ExitReason)
	assert.Equal(t, "article-1", h.store.runLogs[0].PostedArticleID)
	assert.Zero(t, h.fetcher.calls)
}

func TestOrchestratorSkipsDisabledSources(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.store.disabled["search"] = struct{}{}
	h.sites.candidate = newCandidate("https://sites.example.com/2024/story")

	result := h.run(t, RunOptions{})

	assert.Equal(t, domain.ExitPublished, result.ExitReason)
	assert.Equal(t, "sites", result.SourceUsed)
	assert.Zero(t, h.search.calls)
}

func TestOrchestratorDisablesFailingSources(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		setup  func(h *harness)
		reason domain.ExitReason
	}{
		{
			name:   "empty",
			setup:  func(*harness) {},
			reason: domain.ExitSourceEmpty,
		},
		{
			name:   "error",
			setup:  func(h *harness) { h.search.err = errors.New("timeout") },
			reason: domain.ExitSourceError,
		},
		{
			name: "content fetch failed",
			setup: func(h *harness) {
				c := newCandidate("https://news.example.com/world/short")
				c.TextContent = "too short"
				h.search.candidate = c
				h.fetcher.err = errors.New("404")
			},
			reason: domain.ExitContentFetchFailed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			tc.setup(h)

			result := h.run(t, RunOptions{})

			assert.False(t, result.Success)
			assert.Equal(t, tc.reason, result.ExitReason)
			assert.Equal(t, "search", result.SourceUsed)
			assert.Equal(t, []string{"search"}, h.store.disabledIDs())
			assert.Empty(t, h.store.articles)
			require.Len(t, h.store.runLogs, 1)
			assert.Equal(t, tc.reason, h.store.runLogs[0].ExitReason)
		})
	}
}

func TestOrchestratorDuplicateURLAfterNormalization(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.store.articles = append(h.store.articles,
		storedArticle("old", "https://example.com/a/b", "other text", "", h.clock.Now().Add(-72*time.Hour)))
	h.search.candidate = newCandidate("https://EXAMPLE.com/a/b/?utm_source=x#frag")

	result := h.run(t, RunOptions{})

	assert.Equal(t, domain.ExitDuplicateURL, result.ExitReason)
	assert.Equal(t, []string{"search"}, h.store.disabledIDs())
	assert.Len(t, h.store.articles, 1)
	assert.Zero(t, h.fetcher.calls)
}

func TestOrchestratorDuplicateContent(t *testing.T) {
	t.Parallel()

	t.Run("content hash", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.store.articles = append(h.store.articles,
			storedArticle("old", "https://elsewhere.example.com/x/y", longText+" trailing words beyond the prefix", "", h.clock.Now().Add(-72*time.Hour)))
		h.search.candidate = newCandidate("https://news.example.com/world/harbor")

		result := h.run(t, RunOptions{})
		assert.Equal(t, domain.ExitDuplicateContent, result.ExitReason)
		assert.Equal(t, []string{"search"}, h.store.disabledIDs())
	})

	t.Run("semantic", func(t *testing.T) {
		t.Parallel()

		summary := "The city harbor reopened on Monday after a week of storm repairs to the piers"
		h := newHarness(t)
		h.store.articles = append(h.store.articles,
			storedArticle("recent", "https://elsewhere.example.com/x/y", "completely different body", summary, h.clock.Now().Add(-time.Hour)))

		c := newCandidate("https://news.example.com/world/harbor")
		c.Summary = summary
		h.search.candidate = c

		result := h.run(t, RunOptions{})
		assert.Equal(t, domain.ExitDuplicateContent, result.ExitReason)
	})

	t.Run("semantic outside window", func(t *testing.T) {
		t.Parallel()

		summary := "The city harbor reopened on Monday after a week of storm repairs to the piers"
		h := newHarness(t)
		h.store.articles = append(h.store.articles,
			storedArticle("old", "https://elsewhere.example.com/x/y", "completely different body", summary, h.clock.Now().Add(-25*time.Hour)))

		c := newCandidate("https://news.example.com/world/harbor")
		c.Summary = summary
		h.search.candidate = c

		result := h.run(t, RunOptions{})
		assert.Equal(t, domain.ExitPublished, result.ExitReason)
	})
}

func TestOrchestratorBackfillsShortContent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	c := newCandidate("https://news.example.com/world/harbor")
	c.TextContent = "teaser"
	c.Content = ""
	c.Title = ""
	h.search.candidate = c
	h.fetcher.article = domain.FullArticle{
		Title:       "Harbor reopens after storm",
		Content:     "<article>" + longText + "</article>",
		TextContent: longText,
		Image:       "https://news.example.com/img.jpg",
	}

	result := h.run(t, RunOptions{})

	require.Equal(t, domain.ExitPublished, result.ExitReason)
	assert.Equal(t, 1, h.fetcher.calls)
	article := h.store.articles[0]
	assert.Equal(t, "Harbor reopens after storm", article.Title)
	assert.Equal(t, "https://news.example.com/img.jpg", article.Image)
	assert.Equal(t, dedup.HashContent(longText), article.ContentHash)
}

func TestOrchestratorResetsBreakerWhenAllDisabled(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, id := range []string{"search", "sites", "feeds"} {
		h.store.disabled[id] = struct{}{}
	}
	h.search.candidate = newCandidate("https://news.example.com/world/harbor")

	result := h.run(t, RunOptions{})

	assert.Equal(t, domain.ExitPublished, result.ExitReason)
	assert.Equal(t, "search", result.SourceUsed)
	assert.Empty(t, h.store.disabledIDs())
}

func TestOrchestratorBreakerProgress(t *testing.T) {
	t.Parallel()

	// Each failing run trips one more source until the chain is exhausted and resets.
	h := newHarness(t)
	want := []string{"search", "sites", "feeds", "search"}
	for i, id := range want {
		result := h.run(t, RunOptions{})
		assert.Equal(t, id, result.SourceUsed, "run %d", i)
		assert.Equal(t, domain.ExitSourceEmpty, result.ExitReason)
	}
	assert.Equal(t, []string{"search"}, h.store.disabledIDs())
}

func TestOrchestratorNoEnabledSources(t *testing.T) {
	t.Parallel()

	h := newHarness(t, domain.SourceState{ID: "search", Priority: 1, Enabled: false})

	result := h.run(t, RunOptions{})

	assert.Equal(t, domain.ExitNoSources, result.ExitReason)
	assert.Empty(t, result.SourceUsed)
	assert.Zero(t, h.search.calls)
	require.Len(t, h.store.runLogs, 1)
}

func TestOrchestratorDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.search.candidate = newCandidate("https://news.example.com/world/harbor")

	result := h.run(t, RunOptions{DryRun: true, RunID: "abc"})

	assert.True(t, result.Success)
	assert.Equal(t, domain.ExitDryRun, result.ExitReason)
	assert.Equal(t, "dry-run-abc", result.ArticleID)
	assert.Empty(t, h.store.articles)
	assert.Empty(t, h.store.runLogs)
	assert.Empty(t, h.notifier.notes)
	assert.Empty(t, h.queue.ids)
	assert.Zero(t, h.store.state.PostsToday)

	h.search.candidate = nil
	result = h.run(t, RunOptions{DryRun: true})
	assert.Equal(t, domain.ExitSourceEmpty, result.ExitReason)
	assert.Empty(t, h.store.disabledIDs())
	assert.Empty(t, h.store.runLogs)
}

func TestOrchestratorGlobalTimeout(t *testing.T) {
	t.Parallel()

	t.Run("before source selection", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.search.candidate = newCandidate("https://news.example.com/world/harbor")

		result := h.run(t, RunOptions{StartedAt: h.clock.Now().Add(-46 * time.Second)})

		assert.Equal(t, domain.ExitGlobalTimeout, result.ExitReason)
		assert.Zero(t, h.search.calls)
		assert.Empty(t, h.store.disabledIDs())
		require.Len(t, h.store.runLogs, 1)
		assert.Equal(t, domain.ExitGlobalTimeout, h.store.runLogs[0].ExitReason)
	})

	t.Run("before backfill", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		c := newCandidate("https://news.example.com/world/harbor")
		c.TextContent = "short"
		h.search.candidate = c
		h.search.onFetch = func() { h.clock.Advance(50 * time.Second) }

		result := h.run(t, RunOptions{})

		assert.Equal(t, domain.ExitGlobalTimeout, result.ExitReason)
		assert.Equal(t, "search", result.SourceUsed)
		assert.Zero(t, h.fetcher.calls)
		assert.Empty(t, h.store.articles)
		assert.EqualValues(t, 50000, result.DurationMs)
	})
}

func TestOrchestratorConcurrentInsertIsDuplicateURL(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.search.candidate = newCandidate("https://news.example.com/world/harbor")
	h.store.createErr = domain.ErrDuplicate

	result := h.run(t, RunOptions{})

	assert.Equal(t, domain.ExitDuplicateURL, result.ExitReason)
	assert.Equal(t, []string{"search"}, h.store.disabledIDs())
	assert.Empty(t, h.notifier.notes)
}

func TestOrchestratorStoreErrorsPropagate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.store.disableErr = errors.New("connection reset")

	_, err := h.runErr(RunOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, h.store.runLogs)
}

func TestOrchestratorFeedCooldownAndBestEffortSideEffects(t *testing.T) {
	t.Parallel()

	h := newHarness(t, domain.SourceState{ID: "feeds", Kind: domain.KindSubscribedFeed, Priority: 1, Enabled: true})
	c := newCandidate("https://gazette.example.com/2024/harbor")
	c.FeedID = "gazette"
	c.CooldownMinutes = 90
	c.Summary = "Harbor is open again."
	h.feeds.candidate = c
	h.notifier.err = errors.New("telegram down")
	h.orch.categorizer = fakeCategorizer{err: errors.New("ml down")}

	result := h.run(t, RunOptions{})

	require.Equal(t, domain.ExitPublished, result.ExitReason)
	assert.Equal(t, domain.DefaultCategory, h.store.articles[0].Category)
	assert.Equal(t, "Harbor is open again.", h.store.articles[0].Summary)
	assert.Equal(t, "Harbor is open again.", h.notifier.notes[0].Body)

	feed := h.store.feeds["gazette"]
	require.NotNil(t, feed.CooldownUntil)
	assert.Equal(t, h.clock.Now().Add(90*time.Minute), *feed.CooldownUntil)
}

func TestOrchestratorSecondRunWithSameURLIsDuplicate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, domain.SourceState{ID: "search", Kind: domain.KindAggregatorSearch, Priority: 1, Enabled: true})
	h.search.candidate = newCandidate("https://n.com/a")

	first := h.run(t, RunOptions{RunID: "first"})
	require.Equal(t, domain.ExitPublished, first.ExitReason)

	second := h.run(t, RunOptions{RunID: "second"})
	assert.Equal(t, domain.ExitDuplicateURL, second.ExitReason)
	assert.Len(t, h.store.articles, 1)
	assert.Equal(t, 1, h.store.state.PostsToday)
}
