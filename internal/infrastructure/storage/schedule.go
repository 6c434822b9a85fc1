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

var _ ports.ScheduleStore = (*Store)(nil)

const scheduleRowID = 1

// ScheduleDefaults carries the configured pacing written into the schedule row on startup.
type ScheduleDefaults struct {
	UpdateIntervalMinutes int
	StartTime             string
}

// EnsureSchedule creates the single pacing row or refreshes its configured interval and start time.
// Lock, counters and last post time of an existing row are kept.
func (s *Store) EnsureSchedule(ctx context.Context, defaults ScheduleDefaults) error {
	_, err := s.exec(ctx, s.builder.Insert("schedule_state").
		Columns("id", "update_interval_minutes", "start_time", "last_reset_date", "posts_today", "lock_owner").
		Values(scheduleRowID, defaults.UpdateIntervalMinutes, defaults.StartTime, "", 0, "").
		Suffix("ON CONFLICT (id) DO UPDATE SET " +
			"update_interval_minutes = excluded.update_interval_minutes, " +
			"start_time = excluded.start_time"))
	if err != nil {
		return fmt.Errorf("seed schedule state: %w", err)
	}
	return nil
}

// LoadSchedule reads the pacing row together with the disabled-set.
func (s *Store) LoadSchedule(ctx context.Context) (domain.GlobalScheduleState, error) {
	row, err := s.queryRow(ctx, s.builder.
		Select("lock_until", "lock_owner", "last_posted_at", "update_interval_minutes",
			"start_time", "last_reset_date", "posts_today").
		From("schedule_state").
		Where(sq.Eq{"id": scheduleRowID}))
	if err != nil {
		return domain.GlobalScheduleState{}, err
	}

	var (
		state      domain.GlobalScheduleState
		lockUntil  sql.NullInt64
		lastPosted sql.NullInt64
	)
	err = row.Scan(&lockUntil, &state.LockOwner, &lastPosted, &state.UpdateIntervalMinutes,
		&state.StartTime, &state.LastResetDate, &state.PostsToday)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GlobalScheduleState{}, fmt.Errorf("schedule state: %w", ErrNotFound)
	}
	if err != nil {
		return domain.GlobalScheduleState{}, fmt.Errorf("scan schedule state: %w", err)
	}
	state.LockUntil = fromNullMillis(lockUntil)
	state.LastPostedAt = fromNullMillis(lastPosted)

	disabled, err := s.disabledSources(ctx)
	if err != nil {
		return domain.GlobalScheduleState{}, err
	}
	state.DisabledSources = disabled
	return state, nil
}

func (s *Store) disabledSources(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, s.builder.Select("source_id").From("disabled_sources").OrderBy("source_id"))
	if err != nil {
		return nil, fmt.Errorf("query disabled sources: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan disabled source: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

// SetLock writes the timestamp lock. A nil until clears it.
func (s *Store) SetLock(ctx context.Context, until *time.Time, owner string) error {
	if until == nil {
		owner = ""
	}
	_, err := s.exec(ctx, s.builder.Update("schedule_state").
		Set("lock_until", nullableMillis(until)).
		Set("lock_owner", owner).
		Where(sq.Eq{"id": scheduleRowID}))
	if err != nil {
		return fmt.Errorf("set lock: %w", err)
	}
	return nil
}

// ResetDaily zeroes the daily counter, stamps the date and clears the disabled-set.
func (s *Store) ResetDaily(ctx context.Context, date string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin daily reset: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := s.builder.Update("schedule_state").
		Set("posts_today", 0).
		Set("last_reset_date", date).
		Where(sq.Eq{"id": scheduleRowID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("reset daily counters: %w", err)
	}

	query, args, err = s.builder.Delete("disabled_sources").ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear disabled sources: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit daily reset: %w", err)
	}
	return nil
}

// RecordPost stamps the last publication and bumps the daily counter.
func (s *Store) RecordPost(ctx context.Context, at time.Time) error {
	_, err := s.exec(ctx, s.builder.Update("schedule_state").
		Set("last_posted_at", toMillis(at)).
		Set("posts_today", sq.Expr("posts_today + 1")).
		Where(sq.Eq{"id": scheduleRowID}))
	if err != nil {
		return fmt.Errorf("record post: %w", err)
	}
	return nil
}

// DisableSource adds a source to the disabled-set. Adding twice is a no-op.
func (s *Store) DisableSource(ctx context.Context, sourceID string) error {
	_, err := s.exec(ctx, s.builder.Insert("disabled_sources").
		Columns("source_id", "disabled_at").
		Values(sourceID, toMillis(time.Now())).
		Suffix("ON CONFLICT (source_id) DO NOTHING"))
	if err != nil {
		return fmt.Errorf("disable source %s: %w", sourceID, err)
	}
	return nil
}

// ClearDisabledSources empties the disabled-set.
func (s *Store) ClearDisabledSources(ctx context.Context) error {
	if _, err := s.exec(ctx, s.builder.Delete("disabled_sources")); err != nil {
		return fmt.Errorf("clear disabled sources: %w", err)
	}
	return nil
}
