// Package storage persists scraping state into Postgres. All queries are
// built with squirrel using Dollar placeholders.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
	"github.com/SK3CHI3/REX-sub000/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore implements ports.Store over the scraping tables.
type PostgresStore struct {
	db *sql.DB
}

var _ ports.Store = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var sourceColumns = []string{
	"id", "name", "base_url", "search_urls", "category_urls",
	"enabled", "last_scraped_at", "scraping_interval_hours",
}

func scanSource(row sq.RowScanner) (domain.Source, error) {
	var src domain.Source
	var lastScraped sql.NullTime

	err := row.Scan(
		&src.ID,
		&src.Name,
		&src.BaseURL,
		pq.Array(&src.SearchURLs),
		pq.Array(&src.CategoryURLs),
		&src.Enabled,
		&lastScraped,
		&src.IntervalHours,
	)
	if err != nil {
		return domain.Source{}, err
	}
	if lastScraped.Valid {
		t := lastScraped.Time
		src.LastScraped = &t
	}
	return src, nil
}

// GetSource returns the source or (nil, nil) when it does not exist.
func (s *PostgresStore) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	query, args, err := psql.Select(sourceColumns...).
		From("scraping_sources").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build source query: %w", err)
	}

	src, err := scanSource(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query source: %w", err)
	}
	return &src, nil
}

func (s *PostgresStore) listSources(ctx context.Context, pred any) ([]domain.Source, error) {
	builder := psql.Select(sourceColumns...).From("scraping_sources").OrderBy("name")
	if pred != nil {
		builder = builder.Where(pred)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return sources, nil
}

// ListEnabledSources returns every source with the enabled flag set.
func (s *PostgresStore) ListEnabledSources(ctx context.Context) ([]domain.Source, error) {
	return s.listSources(ctx, sq.Eq{"enabled": true})
}

// ListSources returns every configured source.
func (s *PostgresStore) ListSources(ctx context.Context) ([]domain.Source, error) {
	return s.listSources(ctx, nil)
}

// UpdateSourceLastScraped stamps the source after a completed run.
func (s *PostgresStore) UpdateSourceLastScraped(ctx context.Context, id string, at time.Time) error {
	query, args, err := psql.Update("scraping_sources").
		Set("last_scraped_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build source update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

// InsertJob creates the job row and fills job.ID.
func (s *PostgresStore) InsertJob(ctx context.Context, job *domain.Job) error {
	query, args, err := psql.Insert("scraping_jobs").
		Columns("source_id", "status", "started_at", "articles_found",
			"incidents_extracted", "scraped_urls", "error_message").
		Values(job.SourceID, job.Status, job.StartedAt, job.ArticlesFound,
			job.IncidentsExtracted, pq.Array(job.ScrapedURLs), job.ErrorMessage).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build job insert: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&job.ID); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJob writes the job's mutable bookkeeping fields.
func (s *PostgresStore) UpdateJob(ctx context.Context, job *domain.Job) error {
	query, args, err := psql.Update("scraping_jobs").
		Set("status", job.Status).
		Set("completed_at", job.CompletedAt).
		Set("articles_found", job.ArticlesFound).
		Set("incidents_extracted", job.IncidentsExtracted).
		Set("scraped_urls", pq.Array(job.ScrapedURLs)).
		Set("error_message", job.ErrorMessage).
		Where(sq.Eq{"id": job.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build job update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// JobStats aggregates counts across all job rows in a single query.
func (s *PostgresStore) JobStats(ctx context.Context) (domain.JobStats, error) {
	query, args, err := psql.Select(
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE status = 'completed')",
		"COUNT(*) FILTER (WHERE status = 'failed')",
		"COUNT(*) FILTER (WHERE status = 'running')",
		"COUNT(*) FILTER (WHERE status = 'pending')",
		"COALESCE(SUM(articles_found), 0)",
		"COALESCE(SUM(incidents_extracted), 0)",
	).From("scraping_jobs").ToSql()
	if err != nil {
		return domain.JobStats{}, fmt.Errorf("build stats query: %w", err)
	}

	var stats domain.JobStats
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalJobs,
		&stats.CompletedJobs,
		&stats.FailedJobs,
		&stats.RunningJobs,
		&stats.PendingJobs,
		&stats.TotalArticles,
		&stats.TotalIncidents,
	)
	if err != nil {
		return domain.JobStats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

// DeleteJobsBefore removes terminal jobs started before the cutoff.
func (s *PostgresStore) DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql.Delete("scraping_jobs").
		Where(sq.Lt{"started_at": cutoff}).
		Where(sq.Eq{"status": []domain.JobStatus{domain.JobCompleted, domain.JobFailed}}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build job delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete jobs: %w", err)
	}
	return res.RowsAffected()
}

// FilterKnownArticleURLs returns a set of URLs that already have rows.
func (s *PostgresStore) FilterKnownArticleURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := psql.Select("url").
		From("scraped_articles").
		Where(sq.Eq{"url": urls}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build known-urls query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query known urls: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		known[u] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return known, nil
}

// InsertArticle records a visited URL; rows are written once and never
// updated.
func (s *PostgresStore) InsertArticle(ctx context.Context, article *domain.Article) error {
	query, args, err := psql.Insert("scraped_articles").
		Columns("job_id", "url", "title", "content", "published_at",
			"processed", "incidents_extracted", "created_at").
		Values(article.JobID, article.URL, article.Title, article.Content,
			article.PublishedAt, article.Processed, article.IncidentsExtracted,
			article.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build article insert: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&article.ID); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// DeleteProcessedArticlesBefore removes processed article rows older than
// the cutoff.
func (s *PostgresStore) DeleteProcessedArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql.Delete("scraped_articles").
		Where(sq.Eq{"processed": true}).
		Where(sq.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build article delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete articles: %w", err)
	}
	return res.RowsAffected()
}

// InsertSubmission persists a review-queue entry and fills sub.ID.
func (s *PostgresStore) InsertSubmission(ctx context.Context, sub *domain.Submission) error {
	inc := sub.Incident
	query, args, err := psql.Insert("case_submissions").
		Columns("job_id", "victim_name", "age", "incident_date", "location",
			"county", "case_type", "description", "source_name", "article_url",
			"article_title", "published_at", "reported_by", "justice_served",
			"witnesses", "police_station", "officer_names", "status",
			"reporter_id", "confidence_score", "auto_approved",
			"rejection_reason", "reviewed_at", "created_at").
		Values(sub.JobID, inc.VictimName, inc.Age, inc.IncidentDate,
			inc.Location, inc.County, inc.CaseType, inc.Description,
			inc.SourceName, inc.ArticleURL, inc.ArticleTitle, inc.PublishedAt,
			inc.ReportedBy, inc.JusticeServed, pq.Array(inc.Witnesses),
			inc.PoliceStation, pq.Array(inc.OfficerNames), sub.Status,
			sub.ReporterID, sub.ConfidenceScore, sub.AutoApproved,
			sub.RejectionReason, sub.ReviewedAt, sub.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build submission insert: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&sub.ID); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// GetSubmission loads one review-queue entry.
func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	query, args, err := psql.Select("id", "job_id", "victim_name", "age",
		"incident_date", "location", "county", "case_type", "description",
		"source_name", "article_url", "article_title", "published_at",
		"reported_by", "justice_served", "witnesses", "police_station",
		"officer_names", "status", "reporter_id", "confidence_score",
		"auto_approved", "rejection_reason", "reviewed_at", "created_at").
		From("case_submissions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build submission query: %w", err)
	}

	var sub domain.Submission
	var reviewedAt sql.NullTime
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&sub.ID,
		&sub.JobID,
		&sub.Incident.VictimName,
		&sub.Incident.Age,
		&sub.Incident.IncidentDate,
		&sub.Incident.Location,
		&sub.Incident.County,
		&sub.Incident.CaseType,
		&sub.Incident.Description,
		&sub.Incident.SourceName,
		&sub.Incident.ArticleURL,
		&sub.Incident.ArticleTitle,
		&sub.Incident.PublishedAt,
		&sub.Incident.ReportedBy,
		&sub.Incident.JusticeServed,
		pq.Array(&sub.Incident.Witnesses),
		&sub.Incident.PoliceStation,
		pq.Array(&sub.Incident.OfficerNames),
		&sub.Status,
		&sub.ReporterID,
		&sub.ConfidenceScore,
		&sub.AutoApproved,
		&sub.RejectionReason,
		&reviewedAt,
		&sub.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query submission: %w", err)
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		sub.ReviewedAt = &t
	}
	return &sub, nil
}

// UpdateSubmissionReview applies an approve/reject decision.
func (s *PostgresStore) UpdateSubmissionReview(ctx context.Context, id string, status domain.SubmissionStatus, reason string, reviewedAt time.Time) error {
	query, args, err := psql.Update("case_submissions").
		Set("status", status).
		Set("rejection_reason", reason).
		Set("reviewed_at", reviewedAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build review update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return nil
}

// CaseExistsByURL reports whether a published case was scraped from the
// given article URL.
func (s *PostgresStore) CaseExistsByURL(ctx context.Context, articleURL string) (bool, error) {
	return s.caseExists(ctx, sq.Eq{"scraped_from_url": articleURL})
}

// CaseExistsByDetails reports whether a published case matches the exact
// (victim, location, date) triple.
func (s *PostgresStore) CaseExistsByDetails(ctx context.Context, victimName, location, incidentDate string) (bool, error) {
	return s.caseExists(ctx, sq.Eq{
		"victim_name":   victimName,
		"location":      location,
		"incident_date": incidentDate,
	})
}

func (s *PostgresStore) caseExists(ctx context.Context, pred sq.Eq) (bool, error) {
	query, args, err := psql.Select("1").
		From("cases").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build case lookup: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query case: %w", err)
	}
	return true, nil
}

// InsertCase publishes a canonical incident record and fills c.ID.
func (s *PostgresStore) InsertCase(ctx context.Context, c *domain.Case) error {
	inc := c.Incident
	query, args, err := psql.Insert("cases").
		Columns("victim_name", "age", "incident_date", "location", "county",
			"case_type", "description", "status", "auto_approved",
			"scraped_from_url", "job_id", "submission_id", "created_at").
		Values(inc.VictimName, inc.Age, inc.IncidentDate, inc.Location,
			inc.County, inc.CaseType, inc.Description, c.Status,
			c.AutoApproved, c.ScrapedFromURL, c.JobID, c.SubmissionID,
			c.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build case insert: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&c.ID); err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}
