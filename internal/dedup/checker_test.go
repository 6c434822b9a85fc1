package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
)

type fakeLookup struct {
	urlHashes     map[string]bool
	contentHashes map[string]bool
	recent        []domain.PublishedArticle
	since         time.Time
	err           error
}

func (f *fakeLookup) ExistsByURLHash(_ context.Context, hash string) (bool, error) {
	return f.urlHashes[hash], f.err
}

func (f *fakeLookup) ExistsByContentHash(_ context.Context, hash string) (bool, error) {
	return f.contentHashes[hash], f.err
}

func (f *fakeLookup) CreatedSince(_ context.Context, since time.Time) ([]domain.PublishedArticle, error) {
	f.since = since
	return f.recent, f.err
}

func TestCheckerURLAndContent(t *testing.T) {
	t.Parallel()

	normalized := NormalizeURL("https://n.com/a")
	lookup := &fakeLookup{
		urlHashes:     map[string]bool{HashURL(normalized): true},
		contentHashes: map[string]bool{HashContent("Some body text"): true},
	}
	checker := NewChecker(lookup, CheckerConfig{})
	ctx := context.Background()

	res, err := checker.CheckURL(ctx, normalized)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, TypeExact, res.Type)

	res, err = checker.CheckURL(ctx, NormalizeURL("https://n.com/b"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	res, err = checker.CheckContent(ctx, "<p>some   BODY text</p>")
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, TypeContentHash, res.Type)
}

func TestCheckerSemantic(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{
		recent: []domain.PublishedArticle{
			{ID: "no-summary"},
			{ID: "other", Summary: "local team wins the regional final after extra time"},
			{ID: "same", Summary: "the central bank raised interest rates by half a point on tuesday citing inflation"},
		},
	}
	checker := NewChecker(lookup, CheckerConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	res, err := checker.CheckSemantic(ctx, "The central bank raised interest rates by half a point on Tuesday citing inflation")
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, TypeSemantic, res.Type)
	assert.Equal(t, "same", res.MatchedID)
	assert.Equal(t, now.Add(-DefaultWindow), lookup.since)

	res, err = checker.CheckSemantic(ctx, "the central bank kept interest rates unchanged on wednesday")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
}

func TestCheckerSemanticSkipsEmptySummary(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{err: errors.New("must not be called")}
	res, err := NewChecker(lookup, CheckerConfig{}).CheckSemantic(context.Background(), "  ")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
}

func TestCheckerPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{err: errors.New("store down")}
	_, err := NewChecker(lookup, CheckerConfig{}).CheckURL(context.Background(), "https://n.com/a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}
