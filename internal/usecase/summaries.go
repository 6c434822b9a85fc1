package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const defaultSummaryTimeout = 60 * time.Second

// SummaryWriter is the slice of the article store the dispatcher writes to.
type SummaryWriter interface {
	UpdateSummary(ctx context.Context, id, summary string, status domain.SummaryStatus) error
}

// SummaryDispatcher generates summaries in the background with bounded concurrency.
type SummaryDispatcher struct {
	generator ports.SummaryGenerator
	articles  SummaryWriter
	sem       *semaphore.Weighted
	timeout   time.Duration
	logger    *slog.Logger
	wg        sync.WaitGroup
}

var _ ports.SummaryQueue = (*SummaryDispatcher)(nil)

// NewSummaryDispatcher allows at most concurrency generations at once.
func NewSummaryDispatcher(generator ports.SummaryGenerator, articles SummaryWriter, concurrency int, logger *slog.Logger) *SummaryDispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SummaryDispatcher{
		generator: generator,
		articles:  articles,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		timeout:   defaultSummaryTimeout,
		logger:    logger,
	}
}

// Enqueue starts generation for one article and returns immediately.
func (d *SummaryDispatcher) Enqueue(articleID, title, text string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx := context.Background()
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer d.sem.Release(1)

		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		status := domain.SummaryCompleted
		summary, err := d.generator.GenerateSummary(ctx, title, text)
		if err != nil {
			d.logger.Warn("summary generation failed", "article_id", articleID, "error", err)
			status = domain.SummaryFailed
			summary = ""
		}

		if err := d.articles.UpdateSummary(ctx, articleID, summary, status); err != nil {
			d.logger.Error("summary write-back failed", "article_id", articleID, "error", err)
			return
		}
		d.logger.Debug("summary stored", "article_id", articleID, "status", status)
	}()
}

// Wait blocks until queued work finishes or ctx ends.
func (d *SummaryDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
