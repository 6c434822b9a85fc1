package parser

import (
	"fmt"
	"log/slog"
	"net/http"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/scanner"
)

// BuildRegistry creates one adapter per configured source, keyed by source id.
func BuildRegistry(cfg config.Config, feeds ports.FeedRepository, client *http.Client, log *slog.Logger) (*scanner.Registry, error) {
	reg := scanner.NewRegistry()
	fetch := FetchOptions{UserAgent: cfg.Fetch.UserAgent, Timeout: cfg.Fetch.SourceTimeout}

	for _, src := range cfg.Sources {
		var adapter scanner.Adapter
		switch domain.SourceKind(src.Kind) {
		case domain.KindAggregatorSearch:
			adapter = NewAggregatorSearch(client, AggregatorOptions{
				FetchOptions:    fetch,
				SearchURL:       cfg.Aggregator.SearchURL,
				Query:           cfg.Aggregator.Query,
				Selectors:       cfg.Aggregator.Selectors,
				MaxResults:      cfg.Aggregator.MaxResults,
				MinPathSegments: cfg.Aggregator.MinPathSegments,
			}, componentLogger(log, src.ID))
		case domain.KindDirectSite:
			adapter = NewDirectSite(client, toSites(cfg.Sites), fetch, componentLogger(log, src.ID))
		case domain.KindSubscribedFeed:
			if feeds == nil {
				return nil, fmt.Errorf("source %s: feed repository is not configured", src.ID)
			}
			adapter = NewSubscribedFeed(feeds, client, fetch, componentLogger(log, src.ID))
		default:
			return nil, fmt.Errorf("source %s: unknown kind %q", src.ID, src.Kind)
		}
		reg.Register(src.ID, adapter)
	}

	return reg, nil
}

// SourceStates converts the configured chain into domain source states.
func SourceStates(sources []config.SourceConfig) []domain.SourceState {
	states := make([]domain.SourceState, 0, len(sources))
	for _, src := range sources {
		name := src.Name
		if name == "" {
			name = src.ID
		}
		states = append(states, domain.SourceState{
			ID:       src.ID,
			Name:     name,
			Kind:     domain.SourceKind(src.Kind),
			Priority: src.Priority,
			Enabled:  src.Enabled,
		})
	}
	return states
}

func toSites(cfg []config.SiteConfig) []Site {
	sites := make([]Site, 0, len(cfg))
	for _, s := range cfg {
		sites = append(sites, Site{
			Name:         s.Name,
			ListingURL:   s.ListingURL,
			LinkSelector: s.LinkSelector,
		})
	}
	return sites
}

func componentLogger(log *slog.Logger, source string) *slog.Logger {
	if log == nil {
		return nil
	}
	return log.With("source", source)
}
