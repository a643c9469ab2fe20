package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/SK3CHI3/REX-sub000/internal/config"
	"github.com/SK3CHI3/REX-sub000/internal/dedupe"
	"github.com/SK3CHI3/REX-sub000/internal/infrastructure/api"
	"github.com/SK3CHI3/REX-sub000/internal/infrastructure/crawler"
	"github.com/SK3CHI3/REX-sub000/internal/infrastructure/firecrawl"
	"github.com/SK3CHI3/REX-sub000/internal/infrastructure/storage"
	"github.com/SK3CHI3/REX-sub000/internal/infrastructure/telegram"
	"github.com/SK3CHI3/REX-sub000/internal/logging"
	"github.com/SK3CHI3/REX-sub000/internal/ports"
	"github.com/SK3CHI3/REX-sub000/internal/scheduler"
	"github.com/SK3CHI3/REX-sub000/internal/usecase"
)

// Application wires configuration into the scraping pipeline and owns its
// lifecycle. It is constructed once at process start and passed explicitly;
// there is no module-level singleton, so tests can build fresh instances.
type Application struct {
	cfg          config.Config
	logger       *slog.Logger
	db           *sql.DB
	orchestrator *usecase.Orchestrator
	scheduler    *scheduler.Scheduler
	server       *api.Server
}

// New builds a runnable application instance. Configuration must already be
// validated.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := storage.NewPostgresStore(db)

	fallback := crawler.New(nil, cfg.Scraping.CrawlLimit, baseLogger.With("component", "crawler"))
	extractor := firecrawl.NewClient(cfg.Firecrawl, fallback, cfg.Scraping.CrawlLimit,
		baseLogger.With("component", "firecrawl"))

	detector := dedupe.NewDetector(store, baseLogger.With("component", "dedupe"))
	router := usecase.NewReviewRouter(store, baseLogger.With("component", "review"))

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Store:         store,
		Extractor:     extractor,
		Detector:      detector,
		Router:        router,
		Logger:        baseLogger.With("component", "orchestrator"),
		MaxURLsPerJob: cfg.Scraping.MaxURLsPerJob,
		SearchLimit:   cfg.Scraping.SearchLimit,
	})

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	sched := scheduler.New(orchestrator, store, notifier,
		baseLogger.With("component", "scheduler"),
		cfg.Scheduler.Location(),
		time.Duration(cfg.Scheduler.ScrapeIntervalHours)*time.Hour)

	server := api.NewServer(sched, orchestrator, router, baseLogger.With("component", "api"))

	return &Application{
		cfg:          cfg,
		logger:       baseLogger,
		db:           db,
		orchestrator: orchestrator,
		scheduler:    sched,
		server:       server,
	}, nil
}

// Run starts the scheduler, kicks one immediate full scrape, and serves the
// admin API until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	a.scheduler.Init()
	a.scheduler.StartAll()

	jobIDs := a.orchestrator.StartAllScrapingJobs(ctx)
	a.logger.Info("initial scrape started", "jobs", len(jobIDs))

	srv := &http.Server{Addr: a.cfg.Server.Addr, Handler: a.server.Router()}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	a.logger.Info("admin api listening", "addr", a.cfg.Server.Addr)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	a.scheduler.StopAll()
	a.scheduler.Destroy()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return errors.Join(runErr, a.db.Close())
}

// RunOnce triggers one full scrape, waits for every started job to finish,
// and returns the number of jobs.
func (a *Application) RunOnce(ctx context.Context) (int, error) {
	jobIDs := a.orchestrator.StartAllScrapingJobs(ctx)
	a.orchestrator.Wait()
	return len(jobIDs), nil
}

// Close releases the database handle.
func (a *Application) Close() error {
	return a.db.Close()
}
