package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"NewsRelay/internal/domain"
)

// memStore is an in-memory stand-in for the SQL store.
type memStore struct {
	mu         sync.Mutex
	articles   []domain.PublishedArticle
	categories map[string]int
	state      domain.GlobalScheduleState
	disabled   map[string]struct{}
	feeds      map[string]domain.FeedRecord
	runLogs    []domain.RunLog
	setLocks   int

	createErr  error
	disableErr error
	loadErr    error
}

func newMemStore() *memStore {
	return &memStore{
		categories: map[string]int{},
		disabled:   map[string]struct{}{},
		feeds:      map[string]domain.FeedRecord{},
	}
}

func (m *memStore) ExistsByURLHash(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.NormalizedURLHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ExistsByContentHash(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.ContentHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreatedSince(_ context.Context, since time.Time) ([]domain.PublishedArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PublishedArticle
	for _, a := range m.articles {
		if !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) CreateArticle(_ context.Context, article domain.PublishedArticle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, a := range m.articles {
		if a.NormalizedURLHash == article.NormalizedURLHash {
			return domain.ErrDuplicate
		}
	}
	m.articles = append(m.articles, article)
	return nil
}

func (m *memStore) UpdateSummary(_ context.Context, id, summary string, status domain.SummaryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.articles {
		if m.articles[i].ID == id {
			if summary != "" {
				m.articles[i].Summary = summary
			}
			m.articles[i].SummaryStatus = status
			return nil
		}
	}
	return errors.New("article not found")
}

func (m *memStore) IncrementCategory(_ context.Context, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[category]++
	return nil
}

func (m *memStore) LoadSchedule(context.Context) (domain.GlobalScheduleState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.GlobalScheduleState{}, m.loadErr
	}
	state := m.state
	state.DisabledSources = m.disabledLocked()
	return state, nil
}

func (m *memStore) disabledLocked() []string {
	var ids []string
	for id := range m.disabled {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *memStore) SetLock(_ context.Context, until *time.Time, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocks++
	if until == nil {
		m.state.LockUntil = nil
		m.state.LockOwner = ""
		return nil
	}
	u := *until
	m.state.LockUntil = &u
	m.state.LockOwner = owner
	return nil
}

func (m *memStore) ResetDaily(_ context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.PostsToday = 0
	m.state.LastResetDate = date
	m.disabled = map[string]struct{}{}
	return nil
}

func (m *memStore) RecordPost(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.PostsToday++
	m.state.LastPostedAt = &at
	return nil
}

func (m *memStore) DisableSource(_ context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disableErr != nil {
		return m.disableErr
	}
	m.disabled[sourceID] = struct{}{}
	return nil
}

func (m *memStore) ClearDisabledSources(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled = map[string]struct{}{}
	return nil
}

func (m *memStore) ListFeeds(context.Context) ([]domain.FeedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FeedRecord
	for _, f := range m.feeds {
		out = append(out, f)
	}
	return out, nil
}

func (m *memStore) MarkFeedPublished(_ context.Context, id string, at, cooldownUntil time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.feeds[id]
	f.ID = id
	f.LastSuccessAt = &at
	f.CooldownUntil = &cooldownUntil
	m.feeds[id] = f
	return nil
}

func (m *memStore) AppendRunLog(_ context.Context, entry domain.RunLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runLogs = append(m.runLogs, entry)
	return nil
}

func (m *memStore) RecentRunLogs(_ context.Context, limit int) ([]domain.RunLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.runLogs) {
		limit = len(m.runLogs)
	}
	return append([]domain.RunLog(nil), m.runLogs[len(m.runLogs)-limit:]...), nil
}

func (m *memStore) disabledIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disabledLocked()
}

type fakeAdapter struct {
	kind      domain.SourceKind
	candidate *domain.Candidate
	err       error
	calls     int
	onFetch   func()
}

func (f *fakeAdapter) Kind() domain.SourceKind { return f.kind }

func (f *fakeAdapter) FetchCandidate(context.Context) (*domain.Candidate, error) {
	f.calls++
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.candidate == nil {
		return nil, f.err
	}
	c := *f.candidate
	return &c, f.err
}

type fakeFetcher struct {
	article domain.FullArticle
	err     error
	calls   int
}

func (f *fakeFetcher) FetchArticle(context.Context, string) (domain.FullArticle, error) {
	f.calls++
	return f.article, f.err
}

type fakeNotifier struct {
	notes []domain.Notification
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, n domain.Notification) error {
	f.notes = append(f.notes, n)
	return f.err
}

type fakeQueue struct {
	ids []string
}

func (f *fakeQueue) Enqueue(articleID, _, _ string) {
	f.ids = append(f.ids, articleID)
}

type fakeCategorizer struct {
	category string
	err      error
}

func (f fakeCategorizer) Categorize(context.Context, string, string) (string, error) {
	return f.category, f.err
}

// fakeClock is advanced explicitly by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + strconv.Itoa(n)
	}
}
