package domain

import "time"

// Source is a configured news origin the orchestrator scrapes.
type Source struct {
	ID            string
	Name          string
	BaseURL       string
	SearchURLs    []string
	CategoryURLs  []string
	Enabled       bool
	LastScraped   *time.Time
	IntervalHours int
}

// JobStatus tracks one orchestrator execution against one source.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is a single scraping run. Terminal states are final; a failed job is
// never retried, a fresh one is created instead.
type Job struct {
	ID                 string
	SourceID           string
	Status             JobStatus
	StartedAt          time.Time
	CompletedAt        *time.Time
	ArticlesFound      int
	IncidentsExtracted int
	ScrapedURLs        []string
	ErrorMessage       string
}

// Article records a URL visited during a job plus whatever content the
// extraction service returned for it. Rows are written once per unique URL
// and never updated; their presence is what keeps re-runs from re-scraping.
type Article struct {
	ID                 string
	JobID              string
	URL                string
	Title              string
	Content            string
	PublishedAt        string
	Processed          bool
	IncidentsExtracted int
	CreatedAt          time.Time
}

// JobStats aggregates counts across all job rows.
type JobStats struct {
	TotalJobs      int `json:"total_jobs"`
	CompletedJobs  int `json:"completed_jobs"`
	FailedJobs     int `json:"failed_jobs"`
	RunningJobs    int `json:"running_jobs"`
	PendingJobs    int `json:"pending_jobs"`
	TotalArticles  int `json:"total_articles"`
	TotalIncidents int `json:"total_incidents"`
}

// SourceStatus summarizes one source for the stats surface.
type SourceStatus struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Enabled     bool       `json:"enabled"`
	LastScraped *time.Time `json:"last_scraped"`
}

// ScrapingStats is the read-only aggregate exposed to operators.
type ScrapingStats struct {
	Jobs    JobStats       `json:"jobs"`
	Sources []SourceStatus `json:"sources"`
}
