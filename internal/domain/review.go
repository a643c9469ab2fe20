package domain

import "time"

// ScraperReporterID is the sentinel reporter identity attached to
// submissions created by the scraping pipeline, distinguishing them from
// human-submitted reports.
const ScraperReporterID = "rex-scraper"

// SubmissionStatus tracks a review-queue entry through triage.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is an extracted incident persisted for triage. High-confidence
// submissions are created directly in approved state with AutoApproved set.
type Submission struct {
	ID              string
	Incident        Incident
	JobID           string
	Status          SubmissionStatus
	ReporterID      string
	ConfidenceScore int
	AutoApproved    bool
	RejectionReason string
	ReviewedAt      *time.Time
	CreatedAt       time.Time
}

// CaseStatus is the publication state of a canonical incident record.
type CaseStatus string

const (
	CaseVerified      CaseStatus = "verified"
	CaseInvestigating CaseStatus = "investigating"
)

// Case is the published, user-facing record. Scraper-derived cases carry a
// back-reference to the originating article URL and job so later runs can
// detect duplicates.
type Case struct {
	ID             string
	Incident       Incident
	Status         CaseStatus
	AutoApproved   bool
	ScrapedFromURL string
	JobID          string
	SubmissionID   string
	CreatedAt      time.Time
}
