package storage

import (
	"context"
	"fmt"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

var _ ports.RunLogRepository = (*Store)(nil)

// AppendRunLog inserts one invocation record.
func (s *Store) AppendRunLog(ctx context.Context, entry domain.RunLog) error {
	_, err := s.exec(ctx, s.builder.Insert("run_logs").
		Columns("run_id", "started_at", "duration_ms", "success", "source_used", "exit_reason", "posted_article_id").
		Values(entry.RunID, toMillis(entry.StartedAt), entry.DurationMs, entry.Success,
			entry.SourceUsed, string(entry.ExitReason), entry.PostedArticleID))
	if err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}

// RecentRunLogs returns the latest records, newest first.
func (s *Store) RecentRunLogs(ctx context.Context, limit int) ([]domain.RunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.query(ctx, s.builder.
		Select("run_id", "started_at", "duration_ms", "success", "source_used", "exit_reason", "posted_article_id").
		From("run_logs").
		OrderBy("started_at DESC", "run_id DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("query run logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.RunLog
	for rows.Next() {
		var (
			entry     domain.RunLog
			startedAt int64
			reason    string
		)
		if err := rows.Scan(&entry.RunID, &startedAt, &entry.DurationMs, &entry.Success,
			&entry.SourceUsed, &reason, &entry.PostedArticleID); err != nil {
			return nil, fmt.Errorf("scan run log: %w", err)
		}
		entry.StartedAt = fromMillis(startedAt)
		entry.ExitReason = domain.ExitReason(reason)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return logs, nil
}
