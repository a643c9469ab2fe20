package ports

import (
	"context"
	"time"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
)

// Extractor wraps the external scrape/search/crawl capability.
type Extractor interface {
	// ScrapeIncident fetches a page and attempts structured extraction.
	// It returns (nil, nil) when the page yields no valid incident;
	// errors are reserved for conditions the caller may want to log.
	ScrapeIncident(ctx context.Context, url string) (*domain.Incident, error)

	// SearchIncidents runs a keyword search and returns candidate URLs.
	SearchIncidents(ctx context.Context, query string, limit int) ([]string, error)

	// CrawlNewsSource enumerates URLs under a site and keeps those
	// matching the supplied relevance terms.
	CrawlNewsSource(ctx context.Context, baseURL string, terms []string) ([]string, error)
}

// SiteCrawler enumerates article links from a category page directly,
// used as a fallback when the extraction service cannot map a site.
type SiteCrawler interface {
	CrawlLinks(ctx context.Context, pageURL string, terms []string) ([]string, error)
}

// CaseFinder is the narrow lookup surface duplicate detection runs against.
// Kept separate from Store so a fuzzy matcher can replace the exact-match
// detector without touching callers.
type CaseFinder interface {
	CaseExistsByURL(ctx context.Context, articleURL string) (bool, error)
	CaseExistsByDetails(ctx context.Context, victimName, location, incidentDate string) (bool, error)
}

// Store is the persistence surface for the scraping pipeline.
type Store interface {
	CaseFinder

	GetSource(ctx context.Context, id string) (*domain.Source, error)
	ListEnabledSources(ctx context.Context) ([]domain.Source, error)
	ListSources(ctx context.Context) ([]domain.Source, error)
	UpdateSourceLastScraped(ctx context.Context, id string, at time.Time) error

	InsertJob(ctx context.Context, job *domain.Job) error
	UpdateJob(ctx context.Context, job *domain.Job) error
	JobStats(ctx context.Context) (domain.JobStats, error)
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	FilterKnownArticleURLs(ctx context.Context, urls []string) (map[string]bool, error)
	InsertArticle(ctx context.Context, article *domain.Article) error
	DeleteProcessedArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	InsertSubmission(ctx context.Context, sub *domain.Submission) error
	GetSubmission(ctx context.Context, id string) (*domain.Submission, error)
	UpdateSubmissionReview(ctx context.Context, id string, status domain.SubmissionStatus, reason string, reviewedAt time.Time) error

	InsertCase(ctx context.Context, c *domain.Case) error
}

// Notifier pushes operational digests to an external channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}
