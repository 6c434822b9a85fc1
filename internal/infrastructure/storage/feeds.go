package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

var _ ports.FeedRepository = (*Store)(nil)

// UpsertFeed creates a feed or refreshes its definition, keeping its cooldown bookkeeping.
func (s *Store) UpsertFeed(ctx context.Context, feed domain.FeedRecord) error {
	_, err := s.exec(ctx, s.builder.Insert("feeds").
		Columns("id", "name", "url", "enabled", "cooldown_minutes", "failure_count").
		Values(feed.ID, feed.Name, feed.URL, feed.Enabled, feed.CooldownMinutes, 0).
		Suffix(`ON CONFLICT (id) DO UPDATE SET name = excluded.name, url = excluded.url,
			enabled = excluded.enabled, cooldown_minutes = excluded.cooldown_minutes`))
	if err != nil {
		return fmt.Errorf("upsert feed %s: %w", feed.ID, err)
	}
	return nil
}

// ListFeeds returns every feed ordered by id.
func (s *Store) ListFeeds(ctx context.Context) ([]domain.FeedRecord, error) {
	rows, err := s.query(ctx, s.builder.
		Select("id", "name", "url", "enabled", "cooldown_minutes", "cooldown_until", "last_success_at", "failure_count").
		From("feeds").
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer rows.Close()

	var feeds []domain.FeedRecord
	for rows.Next() {
		var (
			f             domain.FeedRecord
			cooldownUntil sql.NullInt64
			lastSuccess   sql.NullInt64
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.URL, &f.Enabled, &f.CooldownMinutes,
			&cooldownUntil, &lastSuccess, &f.FailureCount); err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		f.CooldownUntil = fromNullMillis(cooldownUntil)
		f.LastSuccessAt = fromNullMillis(lastSuccess)
		feeds = append(feeds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return feeds, nil
}

// MarkFeedPublished records a successful publication from a feed and starts its cooldown.
func (s *Store) MarkFeedPublished(ctx context.Context, id string, at, cooldownUntil time.Time) error {
	res, err := s.exec(ctx, s.builder.Update("feeds").
		Set("last_success_at", toMillis(at)).
		Set("cooldown_until", toMillis(cooldownUntil)).
		Set("failure_count", 0).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("mark feed %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("feed %s: %w", id, ErrNotFound)
	}
	return nil
}
