package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
)

func scrapedIncident(score int) domain.Incident {
	return domain.Incident{
		VictimName:      "John Doe",
		IncidentDate:    "2024-06-25",
		Location:        "Nairobi",
		CaseType:        domain.CaseTypeAssault,
		Description:     "Assaulted during protest.",
		ArticleURL:      "https://daily.co.ke/news/1",
		ConfidenceScore: score,
	}
}

func TestRouteIncidentAutoApproves(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	router := NewReviewRouter(store, testLogger())

	sub, err := router.RouteIncident(context.Background(), scrapedIncident(85), "job-1")
	if err != nil {
		t.Fatalf("RouteIncident: %v", err)
	}

	if sub.Status != domain.SubmissionApproved {
		t.Fatalf("expected approved submission, got %s", sub.Status)
	}
	if !sub.AutoApproved {
		t.Fatal("submission must be flagged auto-approved")
	}
	if sub.ReviewedAt == nil || !sub.ReviewedAt.Equal(sub.CreatedAt) {
		t.Fatal("auto-approved submission must be reviewed at creation time")
	}
	if sub.ReporterID != domain.ScraperReporterID {
		t.Fatalf("unexpected reporter id %q", sub.ReporterID)
	}

	if len(store.cases) != 1 {
		t.Fatalf("expected 1 published case, got %d", len(store.cases))
	}
	c := store.cases[0]
	if c.Status != domain.CaseVerified || !c.AutoApproved {
		t.Fatalf("expected verified auto-approved case, got %+v", c)
	}
	if c.ScrapedFromURL != "https://daily.co.ke/news/1" {
		t.Fatalf("case missing article back-reference: %q", c.ScrapedFromURL)
	}
	if c.SubmissionID != sub.ID || c.JobID != "job-1" {
		t.Fatalf("case not linked to submission and job: %+v", c)
	}
}

func TestRouteIncidentExactThresholdAutoApproves(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	router := NewReviewRouter(store, testLogger())

	sub, err := router.RouteIncident(context.Background(), scrapedIncident(AutoApproveThreshold), "job-1")
	if err != nil {
		t.Fatalf("RouteIncident: %v", err)
	}
	if sub.Status != domain.SubmissionApproved {
		t.Fatalf("score equal to threshold must auto-approve, got %s", sub.Status)
	}
}

func TestRouteIncidentQueuesLowConfidence(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	router := NewReviewRouter(store, testLogger())

	sub, err := router.RouteIncident(context.Background(), scrapedIncident(79), "job-1")
	if err != nil {
		t.Fatalf("RouteIncident: %v", err)
	}

	if sub.Status != domain.SubmissionPending {
		t.Fatalf("expected pending submission, got %s", sub.Status)
	}
	if sub.AutoApproved || sub.ReviewedAt != nil {
		t.Fatal("pending submission must not carry review state")
	}
	if len(store.cases) != 0 {
		t.Fatalf("no case may exist before review, got %d", len(store.cases))
	}
}

func TestApproveScraperSubmission(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	router := NewReviewRouter(store, testLogger())

	sub, err := router.RouteIncident(context.Background(), scrapedIncident(60), "job-1")
	if err != nil {
		t.Fatalf("RouteIncident: %v", err)
	}

	if err := router.ApproveSubmission(context.Background(), sub.ID); err != nil {
		t.Fatalf("ApproveSubmission: %v", err)
	}

	stored := store.submissions[sub.ID]
	if stored.Status != domain.SubmissionApproved {
		t.Fatalf("expected approved submission, got %s", stored.Status)
	}
	if stored.ReviewedAt == nil {
		t.Fatal("approval must stamp review time")
	}
	if len(store.cases) != 1 {
		t.Fatalf("expected 1 case, got %d", len(store.cases))
	}
	if store.cases[0].Status != domain.CaseVerified {
		t.Fatalf("scraper-sourced approval must publish verified, got %s", store.cases[0].Status)
	}
}

func TestApproveHumanSubmissionStartsInvestigating(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	router := NewReviewRouter(store, testLogger())

	sub := &domain.Submission{
		Incident:   scrapedIncident(0),
		Status:     domain.SubmissionPending,
		ReporterID: "user-42",
		CreatedAt:  time.Now(),
	}
	if err := store.InsertSubmission(context.Background(), sub); err != nil {
		t.Fatalf("InsertSubmission: %v", err)
	}

	if err := router.ApproveSubmission(context.Background(), sub.ID); err != nil {
		t.Fatalf("ApproveSubmission: %v", err)
	}
	if store.cases[0].Status != domain.CaseInvestigating {
		t.Fatalf("human-sourced approval must publish investigating, got %s", store.cases[0].Status)
	}
}

func TestApproveMissingSubmission(t *testing.T) {
	t.Parallel()

	router := NewReviewRouter(newMemStore(), testLogger())
	if err := router.ApproveSubmission(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown submission")
	}
}

func TestRejectSubmission(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	router := NewReviewRouter(store, testLogger())

	sub, err := router.RouteIncident(context.Background(), scrapedIncident(40), "job-1")
	if err != nil {
		t.Fatalf("RouteIncident: %v", err)
	}

	if err := router.RejectSubmission(context.Background(), sub.ID, "not police-related"); err != nil {
		t.Fatalf("RejectSubmission: %v", err)
	}

	stored := store.submissions[sub.ID]
	if stored.Status != domain.SubmissionRejected {
		t.Fatalf("expected rejected submission, got %s", stored.Status)
	}
	if stored.RejectionReason != "not police-related" {
		t.Fatalf("reason not recorded: %q", stored.RejectionReason)
	}
	if len(store.cases) != 0 {
		t.Fatal("rejection must not publish a case")
	}
}
