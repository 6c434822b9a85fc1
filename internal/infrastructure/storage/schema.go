package storage

// Timestamps are stored as unix milliseconds so both drivers share one schema.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL,
		normalized_url TEXT NOT NULL,
		normalized_url_hash TEXT NOT NULL UNIQUE,
		content_hash TEXT NOT NULL,
		source_name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT 'general',
		published_at BIGINT NOT NULL,
		created_at BIGINT NOT NULL,
		summary_status TEXT NOT NULL DEFAULT 'pending'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_content_hash ON articles(content_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at)`,
	`CREATE TABLE IF NOT EXISTS category_stats (
		category TEXT PRIMARY KEY,
		article_count BIGINT NOT NULL DEFAULT 0,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_state (
		id INTEGER PRIMARY KEY,
		lock_until BIGINT,
		lock_owner TEXT NOT NULL DEFAULT '',
		last_posted_at BIGINT,
		update_interval_minutes INTEGER NOT NULL,
		start_time TEXT NOT NULL,
		last_reset_date TEXT NOT NULL DEFAULT '',
		posts_today INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS disabled_sources (
		source_id TEXT PRIMARY KEY,
		disabled_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS feeds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		cooldown_minutes INTEGER NOT NULL DEFAULT 0,
		cooldown_until BIGINT,
		last_success_at BIGINT,
		failure_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS run_logs (
		run_id TEXT PRIMARY KEY,
		started_at BIGINT NOT NULL,
		duration_ms BIGINT NOT NULL,
		success BOOLEAN NOT NULL,
		source_used TEXT NOT NULL DEFAULT '',
		exit_reason TEXT NOT NULL,
		posted_article_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_run_logs_started_at ON run_logs(started_at)`,
}
