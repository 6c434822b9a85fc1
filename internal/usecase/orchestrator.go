package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"NewsRelay/internal/dedup"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/scanner"
)

const (
	defaultRunBudget        = 45 * time.Second
	defaultMinContentLength = 200
	notificationBodyRunes   = 400
)

// OrchestratorDeps wires all driven adapters into a single acquisition run.
type OrchestratorDeps struct {
	Chain            scanner.Chain
	Registry         *scanner.Registry
	Articles         ports.ArticleRepository
	Schedule         ports.ScheduleStore
	Feeds            ports.FeedRepository
	RunLogs          ports.RunLogRepository
	Fetcher          ports.ContentFetcher
	Dedup            *dedup.Checker
	Categorizer      ports.Categorizer
	Notifier         ports.Notifier
	Summaries        ports.SummaryQueue
	Logger           *slog.Logger
	Clock            func() time.Time
	NewID            func() string
	Budget           time.Duration
	MinContentLength int
}

// RunOptions carries per-invocation flags and identity.
type RunOptions struct {
	Force     bool
	DryRun    bool
	RunID     string
	StartedAt time.Time
}

// Orchestrator walks the source chain until one candidate is published or a terminal exit is hit.
type Orchestrator struct {
	chain       scanner.Chain
	registry    *scanner.Registry
	articles    ports.ArticleRepository
	schedule    ports.ScheduleStore
	feeds       ports.FeedRepository
	runLogs     ports.RunLogRepository
	fetcher     ports.ContentFetcher
	dedup       *dedup.Checker
	categorizer ports.Categorizer
	notifier    ports.Notifier
	summaries   ports.SummaryQueue
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
	budget      time.Duration
	minContent  int
}

// NewOrchestrator constructs the run state machine.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	o := &Orchestrator{
		chain:       deps.Chain,
		registry:    deps.Registry,
		articles:    deps.Articles,
		schedule:    deps.Schedule,
		feeds:       deps.Feeds,
		runLogs:     deps.RunLogs,
		fetcher:     deps.Fetcher,
		dedup:       deps.Dedup,
		categorizer: deps.Categorizer,
		notifier:    deps.Notifier,
		summaries:   deps.Summaries,
		logger:      deps.Logger,
		now:         deps.Clock,
		newID:       deps.NewID,
		budget:      deps.Budget,
		minContent:  deps.MinContentLength,
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	if o.budget <= 0 {
		o.budget = defaultRunBudget
	}
	if o.minContent <= 0 {
		o.minContent = defaultMinContentLength
	}
	if o.dedup == nil {
		o.dedup = dedup.NewChecker(deps.Articles, dedup.CheckerConfig{Now: o.now})
	}
	return o
}

// Run executes one pass of the state machine against a snapshot of the schedule state.
// Every non-dry outcome is appended to the run log. Store failures are returned as errors
// without a run log; the caller owns that record.
func (o *Orchestrator) Run(ctx context.Context, state domain.GlobalScheduleState, opts RunOptions) (domain.RunResult, error) {
	if opts.StartedAt.IsZero() {
		opts.StartedAt = o.now()
	}
	if opts.RunID == "" {
		opts.RunID = o.newID()
	}

	result, err := o.run(ctx, state, opts)
	result.RunID = opts.RunID
	result.DurationMs = o.now().Sub(opts.StartedAt).Milliseconds()
	if err != nil {
		return result, err
	}

	log := o.logger.With("run_id", opts.RunID)
	log.Info("run finished",
		"exit_reason", result.ExitReason,
		"source", result.SourceUsed,
		"article_id", result.ArticleID,
		"duration_ms", result.DurationMs,
		"dry_run", opts.DryRun)

	if opts.DryRun {
		return result, nil
	}
	if err := o.runLogs.AppendRunLog(ctx, result.Log(opts.StartedAt)); err != nil {
		return result, fmt.Errorf("append run log: %w", err)
	}
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, state domain.GlobalScheduleState, opts RunOptions) (domain.RunResult, error) {
	log := o.logger.With("run_id", opts.RunID)

	if o.overBudget(opts) {
		return exit(domain.ExitGlobalTimeout, ""), nil
	}

	src, ok, err := o.selectSource(ctx, state, opts)
	if err != nil {
		return domain.RunResult{}, err
	}
	if !ok {
		return exit(domain.ExitNoSources, ""), nil
	}
	log = log.With("source", src.ID)

	candidate, err := o.fetchCandidate(ctx, src)
	if err != nil {
		log.Warn("source failed", "error", err)
		return o.disable(ctx, src, opts, domain.ExitSourceError)
	}
	if candidate == nil {
		log.Info("source returned nothing")
		return o.disable(ctx, src, opts, domain.ExitSourceEmpty)
	}

	cleanURL := candidate.CleanURL
	if cleanURL == "" {
		cleanURL = dedup.NormalizeURL(candidate.SourceURL)
	}

	verdict, err := o.dedup.CheckURL(ctx, cleanURL)
	if err != nil {
		return domain.RunResult{}, err
	}
	if verdict.Duplicate {
		log.Info("duplicate url", "url", cleanURL)
		return o.disable(ctx, src, opts, domain.ExitDuplicateURL)
	}

	if o.overBudget(opts) {
		return exit(domain.ExitGlobalTimeout, src.ID), nil
	}

	if utf8.RuneCountInString(strings.TrimSpace(candidate.TextContent)) < o.minContent {
		if err := o.backfill(ctx, candidate); err != nil {
			log.Warn("content backfill failed", "url", candidate.SourceURL, "error", err)
			return o.disable(ctx, src, opts, domain.ExitContentFetchFailed)
		}
	}

	verdict, err = o.dedup.CheckContent(ctx, candidate.TextContent)
	if err != nil {
		return domain.RunResult{}, err
	}
	if !verdict.Duplicate {
		verdict, err = o.dedup.CheckSemantic(ctx, candidate.Summary)
		if err != nil {
			return domain.RunResult{}, err
		}
	}
	if verdict.Duplicate {
		log.Info("duplicate content", "type", verdict.Type, "score", verdict.Score, "matched", verdict.MatchedID)
		return o.disable(ctx, src, opts, domain.ExitDuplicateContent)
	}

	if opts.DryRun {
		return domain.RunResult{
			Success:    true,
			SourceUsed: src.ID,
			ExitReason: domain.ExitDryRun,
			ArticleID:  "dry-run-" + opts.RunID,
		}, nil
	}

	return o.publish(ctx, src, candidate, cleanURL, opts, log)
}

// selectSource picks the highest-priority available source, resetting the breaker
// when every enabled source is tripped.
func (o *Orchestrator) selectSource(ctx context.Context, state domain.GlobalScheduleState, opts RunOptions) (domain.SourceState, bool, error) {
	available := o.chain.Available(state.DisabledSources)
	if len(available) == 0 {
		if !o.chain.HasEnabled() {
			return domain.SourceState{}, false, nil
		}
		o.logger.Info("all sources disabled, resetting", "run_id", opts.RunID)
		if !opts.DryRun {
			if err := o.schedule.ClearDisabledSources(ctx); err != nil {
				return domain.SourceState{}, false, fmt.Errorf("reset disabled sources: %w", err)
			}
		}
		available = o.chain.Available(nil)
	}
	if len(available) == 0 {
		return domain.SourceState{}, false, nil
	}
	return available[0], true, nil
}

func (o *Orchestrator) fetchCandidate(ctx context.Context, src domain.SourceState) (*domain.Candidate, error) {
	adapter, err := o.registry.Resolve(src.ID)
	if err != nil {
		return nil, err
	}
	return adapter.FetchCandidate(ctx)
}

// backfill fetches the full article once and merges it into the candidate.
func (o *Orchestrator) backfill(ctx context.Context, c *domain.Candidate) error {
	if o.fetcher == nil {
		return errors.New("content fetcher is not configured")
	}
	full, err := o.fetcher.FetchArticle(ctx, c.SourceURL)
	if err != nil {
		return err
	}
	if strings.TrimSpace(full.TextContent) == "" {
		return errors.New("empty article text")
	}

	c.TextContent = full.TextContent
	if full.Content != "" {
		c.Content = full.Content
	}
	if c.Image == "" {
		c.Image = full.Image
	}
	if strings.TrimSpace(c.Title) == "" {
		c.Title = full.Title
	}
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, src domain.SourceState, c *domain.Candidate, cleanURL string, opts RunOptions, log *slog.Logger) (domain.RunResult, error) {
	now := o.now()

	category := domain.DefaultCategory
	if o.categorizer != nil {
		got, err := o.categorizer.Categorize(ctx, c.Title, c.TextContent)
		switch {
		case err != nil:
			log.Warn("categorize failed, using default", "error", err)
		case got != "":
			category = got
		}
	}

	publishedAt := now
	if c.PublishedAt != nil {
		publishedAt = *c.PublishedAt
	}

	content := c.Content
	if content == "" {
		content = c.TextContent
	}

	status := domain.SummaryPending
	if o.summaries == nil && strings.TrimSpace(c.Summary) != "" {
		status = domain.SummaryCompleted
	}

	article := domain.PublishedArticle{
		ID:                o.newID(),
		Title:             strings.TrimSpace(c.Title),
		Summary:           c.Summary,
		Content:           content,
		Image:             c.Image,
		SourceURL:         c.SourceURL,
		NormalizedURL:     cleanURL,
		NormalizedURLHash: dedup.HashURL(cleanURL),
		ContentHash:       dedup.HashContent(c.TextContent),
		SourceName:        c.SourceName,
		Category:          category,
		PublishedAt:       publishedAt,
		CreatedAt:         now,
		SummaryStatus:     status,
	}

	if err := o.articles.CreateArticle(ctx, article); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			log.Info("url claimed concurrently", "url", cleanURL)
			return o.disable(ctx, src, opts, domain.ExitDuplicateURL)
		}
		return domain.RunResult{}, fmt.Errorf("create article: %w", err)
	}

	if err := o.articles.IncrementCategory(ctx, category); err != nil {
		log.Warn("category counter not updated", "category", category, "error", err)
	}

	if o.notifier != nil {
		note := domain.Notification{
			ArticleID: article.ID,
			Title:     article.Title,
			Body:      notificationBody(c),
			URL:       article.SourceURL,
		}
		if err := o.notifier.Notify(ctx, note); err != nil {
			log.Warn("notification failed", "article_id", article.ID, "error", err)
		}
	}

	if err := o.schedule.ClearDisabledSources(ctx); err != nil {
		return domain.RunResult{}, fmt.Errorf("reset disabled sources: %w", err)
	}
	if err := o.schedule.RecordPost(ctx, now); err != nil {
		return domain.RunResult{}, fmt.Errorf("record post: %w", err)
	}

	if c.FeedID != "" && o.feeds != nil {
		until := now.Add(time.Duration(c.CooldownMinutes) * time.Minute)
		if err := o.feeds.MarkFeedPublished(ctx, c.FeedID, now, until); err != nil {
			return domain.RunResult{}, fmt.Errorf("mark feed %s: %w", c.FeedID, err)
		}
	}

	if o.summaries != nil {
		o.summaries.Enqueue(article.ID, article.Title, c.TextContent)
	}

	log.Info("article published", "article_id", article.ID, "category", category, "url", cleanURL)
	return domain.RunResult{
		Success:    true,
		SourceUsed: src.ID,
		ExitReason: domain.ExitPublished,
		ArticleID:  article.ID,
	}, nil
}

// disable trips the breaker for src and ends the run with reason.
func (o *Orchestrator) disable(ctx context.Context, src domain.SourceState, opts RunOptions, reason domain.ExitReason) (domain.RunResult, error) {
	if !opts.DryRun {
		if err := o.schedule.DisableSource(ctx, src.ID); err != nil {
			return domain.RunResult{}, fmt.Errorf("disable source %s: %w", src.ID, err)
		}
	}
	return exit(reason, src.ID), nil
}

func (o *Orchestrator) overBudget(opts RunOptions) bool {
	return o.now().Sub(opts.StartedAt) > o.budget
}

func exit(reason domain.ExitReason, source string) domain.RunResult {
	return domain.RunResult{ExitReason: reason, SourceUsed: source}
}

func notificationBody(c *domain.Candidate) string {
	body := strings.TrimSpace(c.Summary)
	if body == "" {
		body = strings.TrimSpace(c.TextContent)
	}
	runes := []rune(body)
	if len(runes) > notificationBodyRunes {
		body = strings.TrimSpace(string(runes[:notificationBodyRunes])) + "…"
	}
	return body
}
