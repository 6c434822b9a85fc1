package domain

import "time"

// Candidate is an unsaved article proposal produced by a source adapter.
type Candidate struct {
	Title           string
	Summary         string
	Content         string
	TextContent     string
	Image           string
	SourceURL       string
	CleanURL        string
	SourceName      string
	PublishedAt     *time.Time
	FeedID          string
	CooldownMinutes int
}

// SummaryStatus tracks the asynchronous summarization of a published article.
type SummaryStatus string

const (
	SummaryPending   SummaryStatus = "pending"
	SummaryCompleted SummaryStatus = "completed"
	SummaryFailed    SummaryStatus = "failed"
)

// DefaultCategory is used when no categorizer is configured or it fails.
const DefaultCategory = "general"

// PublishedArticle is persisted exactly once per successful run. NormalizedURLHash and
// ContentHash are the dedup keys and are written together with the rest of the record.
type PublishedArticle struct {
	ID                string
	Title             string
	Summary           string
	Content           string
	Image             string
	SourceURL         string
	NormalizedURL     string
	NormalizedURLHash string
	ContentHash       string
	SourceName        string
	Category          string
	PublishedAt       time.Time
	CreatedAt         time.Time
	SummaryStatus     SummaryStatus
}

// Notification is the payload handed to push channels after a publish.
type Notification struct {
	ArticleID string
	Title     string
	Body      string
	URL       string
}

// FullArticle is what the content extractor returns for a single URL.
type FullArticle struct {
	Title       string
	Content     string
	TextContent string
	Image       string
}
