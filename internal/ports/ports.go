package ports

import (
	"context"
	"time"

	"NewsRelay/internal/domain"
)

// ArticleRepository persists published articles and answers dedup lookups.
type ArticleRepository interface {
	ExistsByURLHash(ctx context.Context, hash string) (bool, error)
	ExistsByContentHash(ctx context.Context, hash string) (bool, error)
	CreatedSince(ctx context.Context, since time.Time) ([]domain.PublishedArticle, error)
	CreateArticle(ctx context.Context, article domain.PublishedArticle) error
	UpdateSummary(ctx context.Context, id, summary string, status domain.SummaryStatus) error
	IncrementCategory(ctx context.Context, category string) error
}

// ScheduleStore holds the global pacing state and the source disabled-set.
type ScheduleStore interface {
	LoadSchedule(ctx context.Context) (domain.GlobalScheduleState, error)
	SetLock(ctx context.Context, until *time.Time, owner string) error
	ResetDaily(ctx context.Context, date string) error
	RecordPost(ctx context.Context, at time.Time) error
	DisableSource(ctx context.Context, sourceID string) error
	ClearDisabledSources(ctx context.Context) error
}

// FeedRepository exposes subscribed feeds to the feed adapter.
type FeedRepository interface {
	ListFeeds(ctx context.Context) ([]domain.FeedRecord, error)
	MarkFeedPublished(ctx context.Context, id string, at, cooldownUntil time.Time) error
}

// RunLogRepository is the append-only invocation log.
type RunLogRepository interface {
	AppendRunLog(ctx context.Context, entry domain.RunLog) error
	RecentRunLogs(ctx context.Context, limit int) ([]domain.RunLog, error)
}

// ContentFetcher retrieves and extracts the full body of a single article.
type ContentFetcher interface {
	FetchArticle(ctx context.Context, rawURL string) (domain.FullArticle, error)
}

// Notifier pushes a short message about a freshly published article.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// SummaryGenerator turns article text into a short summary.
type SummaryGenerator interface {
	GenerateSummary(ctx context.Context, title, text string) (string, error)
}

// SummaryQueue accepts summarization work without blocking the caller.
type SummaryQueue interface {
	Enqueue(articleID, title, text string)
}

// Categorizer infers an article category.
type Categorizer interface {
	Categorize(ctx context.Context, title, text string) (string, error)
}

// Lease guards against overlapping invocations.
type Lease interface {
	Active(ctx context.Context, now time.Time) (bool, error)
	Acquire(ctx context.Context, now time.Time, ttl time.Duration) (domain.LeaseToken, bool, error)
	Release(ctx context.Context, token domain.LeaseToken) error
}

// Scheduler controls when invocations are triggered.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// RunRecorder observes invocation outcomes (metrics).
type RunRecorder interface {
	RecordRun(result domain.RunResult)
}
