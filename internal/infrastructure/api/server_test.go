package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
	"github.com/SK3CHI3/REX-sub000/internal/scheduler"
)

type fakeOrchestrator struct{}

func (fakeOrchestrator) StartAllScrapingJobs(context.Context) []string {
	return []string{"job-1", "job-2"}
}

func (fakeOrchestrator) StartScrapingJob(_ context.Context, sourceID string) (string, error) {
	if sourceID != "daily" {
		return "", errors.New("source not found")
	}
	return "job-9", nil
}

func (fakeOrchestrator) GetScrapingStats(context.Context) (domain.ScrapingStats, error) {
	return domain.ScrapingStats{}, nil
}

type fakeCleanupStore struct{}

func (fakeCleanupStore) DeleteJobsBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (fakeCleanupStore) DeleteProcessedArticlesBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeStats struct {
	err error
}

func (f *fakeStats) GetScrapingStats(context.Context) (domain.ScrapingStats, error) {
	return domain.ScrapingStats{
		Jobs: domain.JobStats{TotalJobs: 3, CompletedJobs: 2, FailedJobs: 1},
	}, f.err
}

type fakeReviewer struct {
	approved []string
	rejected map[string]string
	err      error
}

func (f *fakeReviewer) ApproveSubmission(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.approved = append(f.approved, id)
	return nil
}

func (f *fakeReviewer) RejectSubmission(_ context.Context, id, reason string) error {
	if f.err != nil {
		return f.err
	}
	if f.rejected == nil {
		f.rejected = map[string]string{}
	}
	f.rejected[id] = reason
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *scheduler.Scheduler, *fakeReviewer) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := scheduler.New(fakeOrchestrator{}, fakeCleanupStore{}, nil, logger, nil, 0)
	reviewer := &fakeReviewer{}
	srv := NewServer(sched, &fakeStats{}, reviewer, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	t.Cleanup(sched.Destroy)
	return ts, sched, reviewer
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestStatusEndpoint(t *testing.T) {
	ts, sched, _ := newTestServer(t)
	sched.Init()

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	body := decode(t, resp)
	if body["running"] != true {
		t.Fatalf("expected running=true, got %v", body["running"])
	}
	if _, ok := body["stats"]; !ok {
		t.Fatal("status payload missing stats")
	}
	if triggers, ok := body["triggers"].([]any); !ok || len(triggers) != 3 {
		t.Fatalf("expected 3 triggers, got %v", body["triggers"])
	}
}

func TestScrapeAllEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/scrape", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /scrape: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["jobs_started"] != float64(2) {
		t.Fatalf("expected 2 jobs started, got %v", body["jobs_started"])
	}
}

func TestScrapeSourceEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/scrape/daily", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /scrape/daily: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["job_id"] != "job-9" {
		t.Fatalf("unexpected job id %v", body["job_id"])
	}

	resp, err = http.Post(ts.URL+"/scrape/missing", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /scrape/missing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for unknown source, got %d", resp.StatusCode)
	}
}

func TestSchedulerEndpoints(t *testing.T) {
	ts, sched, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/scheduler/start", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /scheduler/start: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if !sched.Initialized() {
		t.Fatal("start endpoint must initialize the scheduler")
	}
	for _, st := range sched.JobsStatus() {
		if !st.Running {
			t.Fatalf("trigger %s not running after start", st.Name)
		}
	}

	resp, err = http.Post(ts.URL+"/scheduler/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /scheduler/stop: %v", err)
	}
	resp.Body.Close()
	for _, st := range sched.JobsStatus() {
		if st.Running {
			t.Fatalf("trigger %s still running after stop", st.Name)
		}
	}
}

func TestReviewEndpoints(t *testing.T) {
	ts, _, reviewer := newTestServer(t)

	resp, err := http.Post(ts.URL+"/submissions/sub-1/approve", "application/json", nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if len(reviewer.approved) != 1 || reviewer.approved[0] != "sub-1" {
		t.Fatalf("approval not delegated: %v", reviewer.approved)
	}

	resp, err = http.Post(ts.URL+"/submissions/sub-2/reject", "application/json",
		strings.NewReader(`{"reason":"not police-related"}`))
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if reviewer.rejected["sub-2"] != "not police-related" {
		t.Fatalf("rejection reason not delegated: %v", reviewer.rejected)
	}
}

func TestReviewEndpointFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := scheduler.New(fakeOrchestrator{}, fakeCleanupStore{}, nil, logger, nil, 0)
	reviewer := &fakeReviewer{err: errors.New("submission missing")}
	ts := httptest.NewServer(NewServer(sched, &fakeStats{}, reviewer, logger).Router())
	t.Cleanup(ts.Close)

	resp, err := http.Post(ts.URL+"/submissions/nope/approve", "application/json", nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}
