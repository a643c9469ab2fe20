package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
	"github.com/SK3CHI3/REX-sub000/internal/ports"
)

// memStore is an in-memory ports.Store used across the orchestrator and
// review tests.
type memStore struct {
	mu sync.Mutex

	sources     map[string]*domain.Source
	jobs        map[string]*domain.Job
	articles    []*domain.Article
	submissions map[string]*domain.Submission
	cases       []*domain.Case

	filterErr error
	nextID    int
}

var _ ports.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		sources:     map[string]*domain.Source{},
		jobs:        map[string]*domain.Job{},
		submissions: map[string]*domain.Submission{},
	}
}

func (s *memStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *memStore) addSource(src domain.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := src
	s.sources[src.ID] = &copied
}

func (s *memStore) GetSource(_ context.Context, id string) (*domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return nil, nil
	}
	copied := *src
	return &copied, nil
}

func (s *memStore) ListEnabledSources(_ context.Context) ([]domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Source
	for _, src := range s.sources {
		if src.Enabled {
			out = append(out, *src)
		}
	}
	return out, nil
}

func (s *memStore) ListSources(_ context.Context) ([]domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Source
	for _, src := range s.sources {
		out = append(out, *src)
	}
	return out, nil
}

func (s *memStore) UpdateSourceLastScraped(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}
	src.LastScraped = &at
	return nil
}

func (s *memStore) InsertJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.ID = s.id("job")
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memStore) UpdateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s not found", job.ID)
	}
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memStore) JobStats(_ context.Context) (domain.JobStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats domain.JobStats
	for _, job := range s.jobs {
		stats.TotalJobs++
		switch job.Status {
		case domain.JobCompleted:
			stats.CompletedJobs++
		case domain.JobFailed:
			stats.FailedJobs++
		case domain.JobRunning:
			stats.RunningJobs++
		case domain.JobPending:
			stats.PendingJobs++
		}
		stats.TotalArticles += job.ArticlesFound
		stats.TotalIncidents += job.IncidentsExtracted
	}
	return stats, nil
}

func (s *memStore) DeleteJobsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, job := range s.jobs {
		terminal := job.Status == domain.JobCompleted || job.Status == domain.JobFailed
		if terminal && job.StartedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) FilterKnownArticleURLs(_ context.Context, urls []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filterErr != nil {
		return nil, s.filterErr
	}
	known := map[string]bool{}
	for _, u := range urls {
		for _, a := range s.articles {
			if a.URL == u {
				known[u] = true
			}
		}
	}
	return known, nil
}

func (s *memStore) InsertArticle(_ context.Context, article *domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	article.ID = s.id("article")
	copied := *article
	s.articles = append(s.articles, &copied)
	return nil
}

func (s *memStore) DeleteProcessedArticlesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*domain.Article
	var n int64
	for _, a := range s.articles {
		if a.Processed && a.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	s.articles = kept
	return n, nil
}

func (s *memStore) InsertSubmission(_ context.Context, sub *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = s.id("sub")
	copied := *sub
	s.submissions[sub.ID] = &copied
	return nil
}

func (s *memStore) GetSubmission(_ context.Context, id string) (*domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (s *memStore) UpdateSubmissionReview(_ context.Context, id string, status domain.SubmissionStatus, reason string, reviewedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return fmt.Errorf("submission %s not found", id)
	}
	sub.Status = status
	sub.RejectionReason = reason
	sub.ReviewedAt = &reviewedAt
	return nil
}

func (s *memStore) InsertCase(_ context.Context, c *domain.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id("case")
	copied := *c
	s.cases = append(s.cases, &copied)
	return nil
}

func (s *memStore) CaseExistsByURL(_ context.Context, articleURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cases {
		if c.ScrapedFromURL == articleURL {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CaseExistsByDetails(_ context.Context, victimName, location, incidentDate string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cases {
		if c.Incident.VictimName == victimName &&
			c.Incident.Location == location &&
			c.Incident.IncidentDate == incidentDate {
			return true, nil
		}
	}
	return false, nil
}
