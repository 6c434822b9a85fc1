package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
)

type fakeGenerator struct {
	summary string
	err     error
	delay   time.Duration

	mu      sync.Mutex
	running int32
	peak    int32
}

func (f *fakeGenerator) GenerateSummary(_ context.Context, title, _ string) (string, error) {
	cur := atomic.AddInt32(&f.running, 1)
	defer atomic.AddInt32(&f.running, -1)

	f.mu.Lock()
	if cur > f.peak {
		f.peak = cur
	}
	f.mu.Unlock()

	time.Sleep(f.delay)
	if f.err != nil {
		return "", f.err
	}
	return f.summary + " " + title, nil
}

func TestSummaryDispatcherWritesBack(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.articles = []domain.PublishedArticle{
		{ID: "a1", Summary: "feed teaser", SummaryStatus: domain.SummaryPending},
	}

	d := NewSummaryDispatcher(&fakeGenerator{summary: "short:"}, store, 2, nil)
	d.Enqueue("a1", "Harbor", "text")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))

	assert.Equal(t, "short: Harbor", store.articles[0].Summary)
	assert.Equal(t, domain.SummaryCompleted, store.articles[0].SummaryStatus)
}

func TestSummaryDispatcherMarksFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.articles = []domain.PublishedArticle{
		{ID: "a1", Summary: "feed teaser", SummaryStatus: domain.SummaryPending},
	}

	d := NewSummaryDispatcher(&fakeGenerator{err: errors.New("rate limited")}, store, 1, nil)
	d.Enqueue("a1", "Harbor", "text")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))

	assert.Equal(t, "feed teaser", store.articles[0].Summary)
	assert.Equal(t, domain.SummaryFailed, store.articles[0].SummaryStatus)
}

func TestSummaryDispatcherBoundsConcurrency(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	gen := &fakeGenerator{summary: "s", delay: 20 * time.Millisecond}
	d := NewSummaryDispatcher(gen, store, 2, nil)

	for i := 0; i < 6; i++ {
		d.Enqueue("missing", "t", "x")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))

	assert.LessOrEqual(t, gen.peak, int32(2))
	assert.GreaterOrEqual(t, gen.peak, int32(1))
}
