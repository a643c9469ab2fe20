// Package scheduler runs the recurring pipeline triggers. Every trigger
// fires in a single fixed timezone regardless of server locale, and each
// one can be started and stopped independently.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
	"github.com/SK3CHI3/REX-sub000/internal/ports"
)

// Registered trigger names.
const (
	MainScrapingJob  = "main-scraping"
	DailyStatsJob    = "daily-stats"
	WeeklyCleanupJob = "weekly-cleanup"
)

const (
	jobRetention     = 30 * 24 * time.Hour
	articleRetention = 7 * 24 * time.Hour
)

// Orchestrator is the slice of the job orchestrator the scheduler drives.
type Orchestrator interface {
	StartAllScrapingJobs(ctx context.Context) []string
	StartScrapingJob(ctx context.Context, sourceID string) (string, error)
	GetScrapingStats(ctx context.Context) (domain.ScrapingStats, error)
}

// CleanupStore is the storage surface used by the weekly cleanup trigger.
type CleanupStore interface {
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteProcessedArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobStatus reports one trigger's state.
type JobStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

type trigger struct {
	name string
	next func(now time.Time) time.Time
	task func(ctx context.Context) error
	stop chan struct{}
}

// Scheduler maintains the named trigger set.
type Scheduler struct {
	orch     Orchestrator
	store    CleanupStore
	notifier ports.Notifier
	logger   *slog.Logger
	loc      *time.Location
	interval time.Duration

	mu          sync.Mutex
	triggers    map[string]*trigger
	order       []string
	initialized bool
}

// New builds a scheduler. The notifier is optional; when present the daily
// stats digest is also published to it.
func New(orch Orchestrator, store CleanupStore, notifier ports.Notifier, logger *slog.Logger, loc *time.Location, scrapeInterval time.Duration) *Scheduler {
	if loc == nil {
		loc, _ = time.LoadLocation("Africa/Nairobi")
	}
	if scrapeInterval <= 0 {
		scrapeInterval = 6 * time.Hour
	}
	return &Scheduler{
		orch:     orch,
		store:    store,
		notifier: notifier,
		logger:   logger,
		loc:      loc,
		interval: scrapeInterval,
		triggers: map[string]*trigger{},
	}
}

// Init registers the trigger set. Idempotent: calling it again is a no-op.
func (s *Scheduler) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}

	s.register(MainScrapingJob, s.nextInterval, s.runScraping)
	s.register(DailyStatsJob, s.nextMidnight, s.runStats)
	s.register(WeeklyCleanupJob, s.nextWeekly, s.runCleanup)
	s.initialized = true

	s.logger.Info("scheduler initialized", "triggers", len(s.order), "timezone", s.loc.String())
}

// Initialized reports whether Init has run since the last Destroy.
func (s *Scheduler) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *Scheduler) register(name string, next func(time.Time) time.Time, task func(context.Context) error) {
	s.triggers[name] = &trigger{name: name, next: next, task: task}
	s.order = append(s.order, name)
}

// StartAll starts every registered trigger.
func (s *Scheduler) StartAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		s.startLocked(s.triggers[name])
	}
}

// StopAll stops every registered trigger.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		s.stopLocked(s.triggers[name])
	}
}

// Start starts one trigger by name.
func (s *Scheduler) Start(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[name]
	if !ok {
		return fmt.Errorf("unknown trigger %s", name)
	}
	s.startLocked(t)
	return nil
}

// Stop stops one trigger by name.
func (s *Scheduler) Stop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[name]
	if !ok {
		return fmt.Errorf("unknown trigger %s", name)
	}
	s.stopLocked(t)
	return nil
}

func (s *Scheduler) startLocked(t *trigger) {
	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	go s.loop(t, t.stop)
	s.logger.Info("trigger started", "trigger", t.name)
}

func (s *Scheduler) stopLocked(t *trigger) {
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
	s.logger.Info("trigger stopped", "trigger", t.name)
}

// JobsStatus returns the running flag of every trigger in registration
// order.
func (s *Scheduler) JobsStatus() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make([]JobStatus, 0, len(s.order))
	for _, name := range s.order {
		statuses = append(statuses, JobStatus{
			Name:    name,
			Running: s.triggers[name].stop != nil,
		})
	}
	return statuses
}

// Destroy stops and discards all triggers, resetting to uninitialized.
func (s *Scheduler) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		s.stopLocked(s.triggers[name])
	}
	s.triggers = map[string]*trigger{}
	s.order = nil
	s.initialized = false
	s.logger.Info("scheduler destroyed")
}

// TriggerManualScraping bypasses the schedule and starts jobs for all due
// sources immediately. The jobs themselves still run asynchronously.
func (s *Scheduler) TriggerManualScraping(ctx context.Context) []string {
	return s.orch.StartAllScrapingJobs(ctx)
}

// TriggerSourceScraping starts a job for one source immediately.
func (s *Scheduler) TriggerSourceScraping(ctx context.Context, sourceID string) (string, error) {
	return s.orch.StartScrapingJob(ctx, sourceID)
}

func (s *Scheduler) loop(t *trigger, stop chan struct{}) {
	for {
		next := t.next(time.Now().In(s.loc))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			s.runTask(t)
		}
	}
}

// runTask shields the trigger loop: a failing or panicking task is logged
// and the next firing still occurs.
func (s *Scheduler) runTask(t *trigger) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "trigger", t.name, "panic", r)
		}
	}()

	if err := t.task(context.Background()); err != nil {
		s.logger.Error("scheduled task failed", "trigger", t.name, "error", err)
	}
}

func (s *Scheduler) nextInterval(now time.Time) time.Time {
	return now.Add(s.interval)
}

func (s *Scheduler) nextMidnight(now time.Time) time.Time {
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.loc)
}

// nextWeekly fires Sunday midnight.
func (s *Scheduler) nextWeekly(now time.Time) time.Time {
	local := now.In(s.loc)
	days := (int(time.Sunday) - int(local.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return time.Date(local.Year(), local.Month(), local.Day()+days, 0, 0, 0, 0, s.loc)
}

func (s *Scheduler) runScraping(ctx context.Context) error {
	jobIDs := s.orch.StartAllScrapingJobs(ctx)
	s.logger.Info("scheduled scraping fired", "jobs_started", len(jobIDs))
	return nil
}

func (s *Scheduler) runStats(ctx context.Context) error {
	stats, err := s.orch.GetScrapingStats(ctx)
	if err != nil {
		return fmt.Errorf("collect stats: %w", err)
	}

	s.logger.Info("daily scraping stats",
		"total_jobs", stats.Jobs.TotalJobs,
		"completed", stats.Jobs.CompletedJobs,
		"failed", stats.Jobs.FailedJobs,
		"articles", stats.Jobs.TotalArticles,
		"incidents", stats.Jobs.TotalIncidents,
		"sources", len(stats.Sources))

	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.PublishDigest(ctx, formatStatsDigest(stats)); err != nil {
		return fmt.Errorf("publish stats digest: %w", err)
	}
	return nil
}

func (s *Scheduler) runCleanup(ctx context.Context) error {
	now := time.Now().In(s.loc)

	jobs, jobErr := s.store.DeleteJobsBefore(ctx, now.Add(-jobRetention))
	articles, artErr := s.store.DeleteProcessedArticlesBefore(ctx, now.Add(-articleRetention))

	s.logger.Info("weekly cleanup done", "jobs_deleted", jobs, "articles_deleted", articles)
	return errors.Join(jobErr, artErr)
}

func formatStatsDigest(stats domain.ScrapingStats) string {
	return fmt.Sprintf(
		"REX scraping digest\nJobs: %d total, %d completed, %d failed\nArticles: %d\nIncidents: %d\nSources: %d",
		stats.Jobs.TotalJobs,
		stats.Jobs.CompletedJobs,
		stats.Jobs.FailedJobs,
		stats.Jobs.TotalArticles,
		stats.Jobs.TotalIncidents,
		len(stats.Sources),
	)
}
