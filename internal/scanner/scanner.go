package scanner

import (
	"context"
	"fmt"

	"NewsRelay/internal/domain"
)

// Adapter is a single source variant (aggregator search, direct site, subscribed feed).
//
// FetchCandidate makes one best-effort attempt. A nil candidate with a nil error means the
// source had nothing to offer.
type Adapter interface {
	Kind() domain.SourceKind
	FetchCandidate(ctx context.Context) (*domain.Candidate, error)
}

// Registry maps source ids of the chain to their adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

// Register adds or replaces the adapter for a source id.
func (r *Registry) Register(sourceID string, adapter Adapter) {
	if r.adapters == nil {
		r.adapters = map[string]Adapter{}
	}
	r.adapters[sourceID] = adapter
}

// Resolve returns the adapter of a source or an error if it is absent.
func (r *Registry) Resolve(sourceID string) (Adapter, error) {
	if adapter, ok := r.adapters[sourceID]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("no adapter registered for source %s", sourceID)
}

// Chain is the static, priority-ordered list of sources.
type Chain struct {
	sources []domain.SourceState
}

// NewChain sorts the sources by priority.
func NewChain(sources []domain.SourceState) Chain {
	return Chain{sources: domain.SortByPriority(sources)}
}

// Sources returns the chain annotated with the disabled-set of state.
func (c Chain) Sources(state domain.GlobalScheduleState) []domain.SourceState {
	out := make([]domain.SourceState, len(c.sources))
	for i, src := range c.sources {
		src.TemporarilyDisabled = state.IsDisabled(src.ID)
		out[i] = src
	}
	return out
}

// Available returns enabled sources that are not in the disabled-set, in priority order.
func (c Chain) Available(disabled []string) []domain.SourceState {
	skip := make(map[string]struct{}, len(disabled))
	for _, id := range disabled {
		skip[id] = struct{}{}
	}

	var out []domain.SourceState
	for _, src := range c.sources {
		if !src.Enabled {
			continue
		}
		if _, ok := skip[src.ID]; ok {
			continue
		}
		out = append(out, src)
	}
	return out
}

// HasEnabled reports whether at least one source is enabled.
func (c Chain) HasEnabled() bool {
	for _, src := range c.sources {
		if src.Enabled {
			return true
		}
	}
	return false
}
