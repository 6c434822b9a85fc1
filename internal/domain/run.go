package domain

import "time"

// ExitReason is the closed set of outcomes an invocation can end with.
type ExitReason string

const (
	ExitPublished          ExitReason = "published"
	ExitDryRun             ExitReason = "dry_run"
	ExitNoSources          ExitReason = "no_sources_available"
	ExitSourceEmpty        ExitReason = "source_empty"
	ExitSourceError        ExitReason = "source_error"
	ExitDuplicateURL       ExitReason = "duplicate_url"
	ExitDuplicateContent   ExitReason = "duplicate_content"
	ExitContentFetchFailed ExitReason = "content_fetch_failed"
	ExitGlobalTimeout      ExitReason = "global_timeout"
	ExitLockActive         ExitReason = "global_lock_active"
	ExitBeforeStartTime    ExitReason = "before_start_time"
	ExitCooldown           ExitReason = "global_cooldown"
	ExitDailyQuota         ExitReason = "daily_quota_reached"
	ExitError              ExitReason = "error"
)

// ExitReasons lists every reason, mostly for metrics pre-registration.
var ExitReasons = []ExitReason{
	ExitPublished, ExitDryRun, ExitNoSources, ExitSourceEmpty, ExitSourceError,
	ExitDuplicateURL, ExitDuplicateContent, ExitContentFetchFailed, ExitGlobalTimeout,
	ExitLockActive, ExitBeforeStartTime, ExitCooldown, ExitDailyQuota, ExitError,
}

// GateSkip reports whether the reason is an expected scheduling skip rather than a run outcome.
func (r ExitReason) GateSkip() bool {
	switch r {
	case ExitLockActive, ExitBeforeStartTime, ExitCooldown, ExitDailyQuota:
		return true
	default:
		return false
	}
}

// RunLog is appended once per invocation and never mutated.
type RunLog struct {
	RunID           string     `json:"runId"`
	StartedAt       time.Time  `json:"startedAt"`
	DurationMs      int64      `json:"durationMs"`
	Success         bool       `json:"success"`
	SourceUsed      string     `json:"sourceUsed,omitempty"`
	ExitReason      ExitReason `json:"exitReason"`
	PostedArticleID string     `json:"postedArticleId,omitempty"`
}

// RunResult is returned to whoever triggered the invocation.
type RunResult struct {
	RunID      string     `json:"runId"`
	Success    bool       `json:"success"`
	Skipped    bool       `json:"skipped"`
	SourceUsed string     `json:"sourceUsed,omitempty"`
	ExitReason ExitReason `json:"exitReason"`
	DurationMs int64      `json:"durationMs"`
	ArticleID  string     `json:"articleId,omitempty"`
}

// Log converts the result into its run-log row.
func (r RunResult) Log(startedAt time.Time) RunLog {
	return RunLog{
		RunID:           r.RunID,
		StartedAt:       startedAt,
		DurationMs:      r.DurationMs,
		Success:         r.Success,
		SourceUsed:      r.SourceUsed,
		ExitReason:      r.ExitReason,
		PostedArticleID: r.ArticleID,
	}
}
