package domain

import (
	"sort"
	"time"
)

// SourceKind tags the adapter variant behind a source.
type SourceKind string

const (
	KindAggregatorSearch SourceKind = "aggregator_search"
	KindDirectSite       SourceKind = "direct_site"
	KindSubscribedFeed   SourceKind = "subscribed_feed"
)

// Valid reports whether k is one of the known adapter kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case KindAggregatorSearch, KindDirectSite, KindSubscribedFeed:
		return true
	default:
		return false
	}
}

// SourceState is one entry of the source chain. Lower Priority is tried first.
type SourceState struct {
	ID                  string
	Name                string
	Kind                SourceKind
	Priority            int
	Enabled             bool
	TemporarilyDisabled bool
}

// SortByPriority orders sources by ascending priority, keeping the input order for ties.
func SortByPriority(sources []SourceState) []SourceState {
	sorted := make([]SourceState, len(sources))
	copy(sorted, sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// FeedRecord is a subscribed feed. It is only mutated after a successful publish sourced from it.
type FeedRecord struct {
	ID              string
	Name            string
	URL             string
	Enabled         bool
	CooldownMinutes int
	CooldownUntil   *time.Time
	LastSuccessAt   *time.Time
	FailureCount    int
}

// Eligible reports whether the feed may be polled at now.
func (f FeedRecord) Eligible(now time.Time) bool {
	if !f.Enabled {
		return false
	}
	return f.CooldownUntil == nil || !now.Before(*f.CooldownUntil)
}
