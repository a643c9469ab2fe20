// Package api exposes the thin operator surface over HTTP: status, stats,
// manual scrape triggers, scheduler control, and submission review actions.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
	"github.com/SK3CHI3/REX-sub000/internal/scheduler"
)

// StatsProvider supplies the read-only aggregate for status endpoints.
type StatsProvider interface {
	GetScrapingStats(ctx context.Context) (domain.ScrapingStats, error)
}

// Reviewer applies human triage decisions.
type Reviewer interface {
	ApproveSubmission(ctx context.Context, id string) error
	RejectSubmission(ctx context.Context, id, reason string) error
}

// Server wires the scheduler and pipeline into HTTP handlers.
type Server struct {
	scheduler *scheduler.Scheduler
	stats     StatsProvider
	reviewer  Reviewer
	logger    *slog.Logger
	startedAt time.Time
}

// NewServer builds the admin server.
func NewServer(sched *scheduler.Scheduler, stats StatsProvider, reviewer Reviewer, logger *slog.Logger) *Server {
	return &Server{
		scheduler: sched,
		stats:     stats,
		reviewer:  reviewer,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Router registers all admin routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/status", s.handleStatus)
	r.GET("/stats", s.handleStats)
	r.POST("/scrape", s.handleScrapeAll)
	r.POST("/scrape/:sourceID", s.handleScrapeSource)
	r.POST("/scheduler/start", s.handleSchedulerStart)
	r.POST("/scheduler/stop", s.handleSchedulerStop)
	r.POST("/submissions/:id/approve", s.handleApprove)
	r.POST("/submissions/:id/reject", s.handleReject)

	return r
}

func (s *Server) handleStatus(c *gin.Context) {
	stats, err := s.stats.GetScrapingStats(c.Request.Context())
	if err != nil {
		s.logger.Error("collect stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"running":        s.scheduler.Initialized(),
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"stats":          stats,
		"triggers":       s.scheduler.JobsStatus(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.stats.GetScrapingStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleScrapeAll(c *gin.Context) {
	jobIDs := s.scheduler.TriggerManualScraping(c.Request.Context())
	c.JSON(http.StatusAccepted, gin.H{"job_ids": jobIDs, "jobs_started": len(jobIDs)})
}

func (s *Server) handleScrapeSource(c *gin.Context) {
	jobID, err := s.scheduler.TriggerSourceScraping(c.Request.Context(), c.Param("sourceID"))
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

func (s *Server) handleSchedulerStart(c *gin.Context) {
	s.scheduler.Init()
	s.scheduler.StartAll()
	c.JSON(http.StatusOK, gin.H{"triggers": s.scheduler.JobsStatus()})
}

func (s *Server) handleSchedulerStop(c *gin.Context) {
	s.scheduler.StopAll()
	c.JSON(http.StatusOK, gin.H{"triggers": s.scheduler.JobsStatus()})
}

func (s *Server) handleApprove(c *gin.Context) {
	if err := s.reviewer.ApproveSubmission(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

func (s *Server) handleReject(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := s.reviewer.RejectSubmission(c.Request.Context(), c.Param("id"), body.Reason); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}
