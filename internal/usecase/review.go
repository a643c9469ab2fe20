package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
	"github.com/SK3CHI3/REX-sub000/internal/ports"
)

// AutoApproveThreshold is the confidence score at or above which a scraped
// incident is published without human review.
const AutoApproveThreshold = 80

// ReviewRouter decides whether extracted incidents are auto-published or
// queued for human triage, and applies human approve/reject decisions.
type ReviewRouter struct {
	store  ports.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewReviewRouter constructs the router.
func NewReviewRouter(store ports.Store, logger *slog.Logger) *ReviewRouter {
	return &ReviewRouter{store: store, logger: logger, now: time.Now}
}

// RouteIncident persists a submission for the incident. At or above the
// threshold the submission is created directly in approved state (never
// transiently pending) and a verified case is published immediately.
func (r *ReviewRouter) RouteIncident(ctx context.Context, inc domain.Incident, jobID string) (*domain.Submission, error) {
	sub := &domain.Submission{
		Incident:        inc,
		JobID:           jobID,
		Status:          domain.SubmissionPending,
		ReporterID:      domain.ScraperReporterID,
		ConfidenceScore: inc.ConfidenceScore,
		CreatedAt:       r.now(),
	}

	autoApprove := inc.ConfidenceScore >= AutoApproveThreshold
	if autoApprove {
		sub.Status = domain.SubmissionApproved
		sub.AutoApproved = true
		reviewed := sub.CreatedAt
		sub.ReviewedAt = &reviewed
	}

	if err := r.store.InsertSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}

	if !autoApprove {
		r.logger.Info("submission queued for review",
			"submission", sub.ID,
			"confidence", inc.ConfidenceScore)
		return sub, nil
	}

	c := &domain.Case{
		Incident:       inc,
		Status:         domain.CaseVerified,
		AutoApproved:   true,
		ScrapedFromURL: inc.ArticleURL,
		JobID:          jobID,
		SubmissionID:   sub.ID,
		CreatedAt:      sub.CreatedAt,
	}
	if err := r.store.InsertCase(ctx, c); err != nil {
		return nil, fmt.Errorf("publish auto-approved case: %w", err)
	}

	r.logger.Info("submission auto-approved",
		"submission", sub.ID,
		"case", c.ID,
		"confidence", inc.ConfidenceScore)
	return sub, nil
}

// ApproveSubmission publishes a case for the submission and marks it
// approved. Scraper-sourced submissions publish as verified; human-sourced
// ones start at investigating. Double approval is the caller's problem: no
// state guard exists here.
func (r *ReviewRouter) ApproveSubmission(ctx context.Context, id string) error {
	sub, err := r.store.GetSubmission(ctx, id)
	if err != nil {
		return fmt.Errorf("load submission %s: %w", id, err)
	}
	if sub == nil {
		return fmt.Errorf("submission %s not found", id)
	}

	status := domain.CaseInvestigating
	if sub.ReporterID == domain.ScraperReporterID {
		status = domain.CaseVerified
	}

	reviewedAt := r.now()
	c := &domain.Case{
		Incident:       sub.Incident,
		Status:         status,
		ScrapedFromURL: sub.Incident.ArticleURL,
		JobID:          sub.JobID,
		SubmissionID:   sub.ID,
		CreatedAt:      reviewedAt,
	}
	if err := r.store.InsertCase(ctx, c); err != nil {
		return fmt.Errorf("publish case: %w", err)
	}

	if err := r.store.UpdateSubmissionReview(ctx, id, domain.SubmissionApproved, "", reviewedAt); err != nil {
		return fmt.Errorf("mark submission approved: %w", err)
	}

	r.logger.Info("submission approved", "submission", id, "case", c.ID, "status", status)
	return nil
}

// RejectSubmission marks the submission rejected with an optional reason.
// No case is created.
func (r *ReviewRouter) RejectSubmission(ctx context.Context, id, reason string) error {
	if err := r.store.UpdateSubmissionReview(ctx, id, domain.SubmissionRejected, reason, r.now()); err != nil {
		return fmt.Errorf("mark submission rejected: %w", err)
	}

	r.logger.Info("submission rejected", "submission", id, "reason", reason)
	return nil
}
