package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

var _ ports.ArticleRepository = (*Store)(nil)

var articleColumns = []string{
	"id", "title", "summary", "content", "image", "source_url", "normalized_url",
	"normalized_url_hash", "content_hash", "source_name", "category",
	"published_at", "created_at", "summary_status",
}

// ExistsByURLHash reports whether an article with the normalized URL hash is stored.
func (s *Store) ExistsByURLHash(ctx context.Context, hash string) (bool, error) {
	return s.exists(ctx, sq.Eq{"normalized_url_hash": hash})
}

// ExistsByContentHash reports whether an article with the content hash is stored.
func (s *Store) ExistsByContentHash(ctx context.Context, hash string) (bool, error) {
	return s.exists(ctx, sq.Eq{"content_hash": hash})
}

func (s *Store) exists(ctx context.Context, where sq.Eq) (bool, error) {
	row, err := s.queryRow(ctx, s.builder.Select("COUNT(1)").From("articles").Where(where))
	if err != nil {
		return false, err
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("count articles: %w", err)
	}
	return count > 0, nil
}

// CreatedSince lists articles created at or after since, newest first.
func (s *Store) CreatedSince(ctx context.Context, since time.Time) ([]domain.PublishedArticle, error) {
	rows, err := s.query(ctx, s.builder.Select(articleColumns...).
		From("articles").
		Where(sq.GtOrEq{"created_at": toMillis(since)}).
		OrderBy("created_at DESC"))
	if err != nil {
		return nil, fmt.Errorf("query recent articles: %w", err)
	}
	defer rows.Close()

	var out []domain.PublishedArticle
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// GetArticle loads a single article by id.
func (s *Store) GetArticle(ctx context.Context, id string) (domain.PublishedArticle, error) {
	row, err := s.queryRow(ctx, s.builder.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.PublishedArticle{}, err
	}
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PublishedArticle{}, fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	return article, err
}

// CreateArticle inserts a new article. A clash on the URL hash yields ErrDuplicate.
func (s *Store) CreateArticle(ctx context.Context, a domain.PublishedArticle) error {
	status := a.SummaryStatus
	if status == "" {
		status = domain.SummaryPending
	}
	category := a.Category
	if category == "" {
		category = domain.DefaultCategory
	}

	_, err := s.exec(ctx, s.builder.Insert("articles").
		Columns(articleColumns...).
		Values(a.ID, a.Title, a.Summary, a.Content, a.Image, a.SourceURL, a.NormalizedURL,
			a.NormalizedURLHash, a.ContentHash, a.SourceName, category,
			toMillis(a.PublishedAt), toMillis(a.CreatedAt), string(status)))
	if isUniqueViolation(err) {
		return fmt.Errorf("article %s: %w", a.NormalizedURL, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// UpdateSummary writes back an asynchronously generated summary.
func (s *Store) UpdateSummary(ctx context.Context, id, summary string, status domain.SummaryStatus) error {
	update := s.builder.Update("articles").
		Set("summary_status", string(status)).
		Where(sq.Eq{"id": id})
	if summary != "" {
		update = update.Set("summary", summary)
	}

	res, err := s.exec(ctx, update)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	return nil
}

// IncrementCategory bumps the per-category article counter, creating it on first use.
func (s *Store) IncrementCategory(ctx context.Context, category string) error {
	if category == "" {
		category = domain.DefaultCategory
	}
	_, err := s.exec(ctx, s.builder.Insert("category_stats").
		Columns("category", "article_count", "updated_at").
		Values(category, 1, toMillis(time.Now())).
		Suffix("ON CONFLICT (category) DO UPDATE SET article_count = category_stats.article_count + 1, updated_at = excluded.updated_at"))
	if err != nil {
		return fmt.Errorf("increment category: %w", err)
	}
	return nil
}

// CategoryCount returns the counter of a category, zero when absent.
func (s *Store) CategoryCount(ctx context.Context, category string) (int64, error) {
	row, err := s.queryRow(ctx, s.builder.Select("article_count").From("category_stats").Where(sq.Eq{"category": category}))
	if err != nil {
		return 0, err
	}
	var count int64
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan category count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.PublishedArticle, error) {
	var (
		a                    domain.PublishedArticle
		publishedAt, created int64
		status               string
	)
	err := row.Scan(&a.ID, &a.Title, &a.Summary, &a.Content, &a.Image, &a.SourceURL, &a.NormalizedURL,
		&a.NormalizedURLHash, &a.ContentHash, &a.SourceName, &a.Category,
		&publishedAt, &created, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan article: %w", err)
	}
	a.PublishedAt = fromMillis(publishedAt)
	a.CreatedAt = fromMillis(created)
	a.SummaryStatus = domain.SummaryStatus(status)
	return a, nil
}
