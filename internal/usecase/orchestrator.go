// Package usecase holds the scraping workflows: the job orchestrator that
// drives discovery and extraction per source, and the review router that
// triages extracted incidents.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
	"github.com/SK3CHI3/REX-sub000/internal/infrastructure/firecrawl"
	"github.com/SK3CHI3/REX-sub000/internal/ports"
)

// kenyaSearchQuery is the fixed template issued once per configured search
// URL of a source.
const kenyaSearchQuery = "police brutality Kenya OR police violence Kenya OR extrajudicial killing Kenya"

// topicKeywords filter category-page links down to relevant coverage.
var topicKeywords = []string{
	"police brutality",
	"police violence",
	"extrajudicial killing",
	"unlawful arrest",
	"police harassment",
	"human rights violation",
}

// Reasons StartScrapingJob declines to create a job.
var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrSourceDisabled    = errors.New("source is disabled")
	ErrJobAlreadyRunning = errors.New("a job is already running for this source")
)

// DuplicateChecker decides whether an incident already exists as a case.
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, inc domain.Incident) (bool, error)
}

// OrchestratorDeps wires all collaborators into the orchestrator.
type OrchestratorDeps struct {
	Store     ports.Store
	Extractor ports.Extractor
	Detector  DuplicateChecker
	Router    *ReviewRouter
	Logger    *slog.Logger

	// MaxURLsPerJob caps the candidate set per job; defaults to 50.
	MaxURLsPerJob int
	// SearchLimit bounds each search call; defaults to 10.
	SearchLimit int
}

// Orchestrator runs scraping jobs. One job per source may run at a time,
// enforced by a process-local guard; jobs across different sources run
// concurrently.
type Orchestrator struct {
	store     ports.Store
	extractor ports.Extractor
	detector  DuplicateChecker
	router    *ReviewRouter
	logger    *slog.Logger

	maxURLs     int
	searchLimit int
	batchDelay  time.Duration
	now         func() time.Time

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

// NewOrchestrator constructs the orchestration component.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	maxURLs := deps.MaxURLsPerJob
	if maxURLs <= 0 {
		maxURLs = 50
	}
	searchLimit := deps.SearchLimit
	if searchLimit <= 0 {
		searchLimit = 10
	}
	return &Orchestrator{
		store:       deps.Store,
		extractor:   deps.Extractor,
		detector:    deps.Detector,
		router:      deps.Router,
		logger:      deps.Logger,
		maxURLs:     maxURLs,
		searchLimit: searchLimit,
		batchDelay:  firecrawl.ScrapeBatchDelay,
		now:         time.Now,
		running:     map[string]bool{},
	}
}

// ShouldScrapeSource reports whether a source is due: enabled and either
// never scraped or past its re-scrape interval.
func ShouldScrapeSource(src domain.Source, now time.Time) bool {
	if !src.Enabled {
		return false
	}
	if src.LastScraped == nil {
		return true
	}
	return now.Sub(*src.LastScraped) >= time.Duration(src.IntervalHours)*time.Hour
}

// StartScrapingJob creates a job for the source and executes it in the
// background. The caller gets the job id immediately and polls job status;
// it never blocks on the scrape itself.
func (o *Orchestrator) StartScrapingJob(ctx context.Context, sourceID string) (string, error) {
	src, err := o.store.GetSource(ctx, sourceID)
	if err != nil {
		return "", fmt.Errorf("load source %s: %w", sourceID, err)
	}
	if src == nil {
		return "", ErrSourceNotFound
	}
	if !src.Enabled {
		return "", ErrSourceDisabled
	}

	o.mu.Lock()
	if o.running[sourceID] {
		o.mu.Unlock()
		return "", ErrJobAlreadyRunning
	}
	o.running[sourceID] = true
	o.mu.Unlock()

	job := &domain.Job{
		SourceID:    sourceID,
		Status:      domain.JobPending,
		StartedAt:   o.now(),
		ScrapedURLs: []string{},
	}
	if err := o.store.InsertJob(ctx, job); err != nil {
		o.release(sourceID)
		return "", fmt.Errorf("create job: %w", err)
	}

	o.wg.Add(1)
	go o.run(context.WithoutCancel(ctx), job, *src)

	return job.ID, nil
}

// StartAllScrapingJobs starts a job for every enabled source that is due.
// Sources already running or not yet due are skipped silently.
func (o *Orchestrator) StartAllScrapingJobs(ctx context.Context) []string {
	sources, err := o.store.ListEnabledSources(ctx)
	if err != nil {
		o.logger.Error("list sources", "error", err)
		return nil
	}

	now := o.now()
	var jobIDs []string
	for _, src := range sources {
		if !ShouldScrapeSource(src, now) {
			continue
		}
		id, err := o.StartScrapingJob(ctx, src.ID)
		if err != nil {
			o.logger.Debug("skip source", "source", src.ID, "reason", err)
			continue
		}
		jobIDs = append(jobIDs, id)
	}
	return jobIDs
}

// GetScrapingStats aggregates job counts and per-source state. Read-only.
func (o *Orchestrator) GetScrapingStats(ctx context.Context) (domain.ScrapingStats, error) {
	jobs, err := o.store.JobStats(ctx)
	if err != nil {
		return domain.ScrapingStats{}, fmt.Errorf("aggregate jobs: %w", err)
	}

	sources, err := o.store.ListSources(ctx)
	if err != nil {
		return domain.ScrapingStats{}, fmt.Errorf("list sources: %w", err)
	}

	stats := domain.ScrapingStats{Jobs: jobs}
	for _, src := range sources {
		stats.Sources = append(stats.Sources, domain.SourceStatus{
			ID:          src.ID,
			Name:        src.Name,
			Enabled:     src.Enabled,
			LastScraped: src.LastScraped,
		})
	}
	return stats, nil
}

// Wait blocks until all in-flight jobs finish. Used by the synchronous test
// command and by tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) release(sourceID string) {
	o.mu.Lock()
	delete(o.running, sourceID)
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context, job *domain.Job, src domain.Source) {
	defer o.wg.Done()
	defer o.release(src.ID)

	job.Status = domain.JobRunning
	if err := o.store.UpdateJob(ctx, job); err != nil {
		o.logger.Error("mark job running", "job", job.ID, "error", err)
	}

	if err := o.execute(ctx, job, src); err != nil {
		completed := o.now()
		job.Status = domain.JobFailed
		job.CompletedAt = &completed
		job.ErrorMessage = err.Error()
		if uerr := o.store.UpdateJob(ctx, job); uerr != nil {
			o.logger.Error("mark job failed", "job", job.ID, "error", uerr)
		}
		o.logger.Error("scraping job failed", "job", job.ID, "source", src.ID, "error", err)
		return
	}

	completed := o.now()
	job.Status = domain.JobCompleted
	job.CompletedAt = &completed
	if err := o.store.UpdateJob(ctx, job); err != nil {
		// The job row may remain stuck in running; surfaced via stats.
		o.logger.Error("mark job completed", "job", job.ID, "error", err)
	}
	if err := o.store.UpdateSourceLastScraped(ctx, src.ID, completed); err != nil {
		o.logger.Error("update source last_scraped", "source", src.ID, "error", err)
	}

	o.logger.Info("scraping job completed",
		"job", job.ID,
		"source", src.ID,
		"articles", job.ArticlesFound,
		"incidents", job.IncidentsExtracted)
}

func (o *Orchestrator) execute(ctx context.Context, job *domain.Job, src domain.Source) error {
	candidates := o.discover(ctx, src)

	known, err := o.store.FilterKnownArticleURLs(ctx, candidates)
	if err != nil {
		return fmt.Errorf("filter known urls: %w", err)
	}

	fresh := make([]string, 0, len(candidates))
	for _, u := range candidates {
		if !known[u] {
			fresh = append(fresh, u)
		}
	}
	if len(fresh) > o.maxURLs {
		fresh = fresh[:o.maxURLs]
	}

	o.logger.Info("job candidates ready",
		"job", job.ID,
		"source", src.ID,
		"discovered", len(candidates),
		"fresh", len(fresh))

	counters := &jobCounters{}
	for start := 0; start < len(fresh); start += firecrawl.ScrapeBatchSize {
		end := min(start+firecrawl.ScrapeBatchSize, len(fresh))

		var wg sync.WaitGroup
		for _, u := range fresh[start:end] {
			wg.Add(1)
			go func(pageURL string) {
				defer wg.Done()
				o.processURL(ctx, job.ID, src, pageURL, counters)
			}(u)
		}
		wg.Wait()

		if end < len(fresh) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.batchDelay):
			}
		}
	}

	job.ArticlesFound = counters.articles
	job.IncidentsExtracted = counters.incidents
	job.ScrapedURLs = counters.urls
	return nil
}

// discover unions search results and category crawls into a deduplicated
// candidate list. Individual discovery failures are logged and skipped.
func (o *Orchestrator) discover(ctx context.Context, src domain.Source) []string {
	seen := map[string]struct{}{}
	var urls []string
	add := func(found []string) {
		for _, u := range found {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}

	for _, searchURL := range src.SearchURLs {
		found, err := o.extractor.SearchIncidents(ctx, kenyaSearchQuery, o.searchLimit)
		if err != nil {
			o.logger.Warn("search failed", "source", src.ID, "search_url", searchURL, "error", err)
			continue
		}
		add(found)
	}

	for _, categoryURL := range src.CategoryURLs {
		found, err := o.extractor.CrawlNewsSource(ctx, categoryURL, topicKeywords)
		if err != nil {
			o.logger.Warn("crawl failed", "source", src.ID, "category_url", categoryURL, "error", err)
			continue
		}
		add(found)
	}

	return urls
}

// processURL scrapes one candidate and records the outcome. Every visited
// URL gets an article row, incident or not, so later jobs never re-scrape
// it. Per-URL failures degrade to "no incident" and never abort the batch.
func (o *Orchestrator) processURL(ctx context.Context, jobID string, src domain.Source, pageURL string, c *jobCounters) {
	inc, err := o.extractor.ScrapeIncident(ctx, pageURL)
	if err != nil {
		o.logger.Warn("scrape error", "url", pageURL, "error", err)
	}

	article := &domain.Article{
		JobID:     jobID,
		URL:       pageURL,
		Processed: true,
		CreatedAt: o.now(),
	}
	if inc != nil {
		inc.SourceName = src.Name
		article.Title = inc.ArticleTitle
		article.Content = inc.ArticleContent
		article.PublishedAt = inc.PublishedAt
		article.IncidentsExtracted = 1
	}

	if err := o.store.InsertArticle(ctx, article); err != nil {
		o.logger.Warn("record article", "url", pageURL, "error", err)
	} else if inc != nil {
		// URLs that yielded nothing still get a row (so they are never
		// re-scraped) but do not count as articles found.
		c.addArticle()
	}
	c.addURL(pageURL)

	if inc == nil {
		return
	}

	dup, err := o.detector.IsDuplicate(ctx, *inc)
	if err != nil {
		o.logger.Warn("duplicate check", "url", pageURL, "error", err)
		return
	}
	if dup {
		o.logger.Debug("duplicate incident skipped", "url", pageURL)
		return
	}

	if _, err := o.router.RouteIncident(ctx, *inc, jobID); err != nil {
		o.logger.Warn("route incident", "url", pageURL, "error", err)
		return
	}
	c.addIncident()
}

type jobCounters struct {
	mu        sync.Mutex
	articles  int
	incidents int
	urls      []string
}

func (c *jobCounters) addArticle() {
	c.mu.Lock()
	c.articles++
	c.mu.Unlock()
}

func (c *jobCounters) addIncident() {
	c.mu.Lock()
	c.incidents++
	c.mu.Unlock()
}

func (c *jobCounters) addURL(u string) {
	c.mu.Lock()
	c.urls = append(c.urls, u)
	c.mu.Unlock()
}
