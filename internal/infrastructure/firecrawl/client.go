// Package firecrawl talks to the external scrape/search/map service that
// performs page fetching and structured incident extraction.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/SK3CHI3/REX-sub000/internal/config"
	"github.com/SK3CHI3/REX-sub000/internal/domain"
	"github.com/SK3CHI3/REX-sub000/internal/ports"
	"github.com/SK3CHI3/REX-sub000/internal/scoring"
)

const (
	// ScrapeBatchSize and ScrapeBatchDelay implement the service's rate
	// limit: batches of 5 with a 2s pause between them. This is a
	// throttling policy, not a correctness requirement.
	ScrapeBatchSize  = 5
	ScrapeBatchDelay = 2 * time.Second

	scrapeTimeout   = 30 * time.Second
	defaultEndpoint = "https://api.firecrawl.dev"
	searchCountry   = "ke"
)

// extractionSchema is the fixed structure requested from the service for
// every scraped page.
var extractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"victim_name":   map[string]any{"type": "string"},
		"age":           map[string]any{"type": "number"},
		"incident_date": map[string]any{"type": "string"},
		"location":      map[string]any{"type": "string"},
		"county":        map[string]any{"type": "string"},
		"case_type": map[string]any{
			"type": "string",
			"enum": []string{"death", "assault", "harassment", "unlawful_arrest"},
		},
		"description":    map[string]any{"type": "string"},
		"reported_by":    map[string]any{"type": "string"},
		"justice_served": map[string]any{"type": "string"},
		"witnesses":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"police_station": map[string]any{"type": "string"},
		"officer_names":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []string{"case_type", "description"},
}

// Client implements ports.Extractor against a Firecrawl-style API.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	fallback   ports.SiteCrawler
	crawlLimit int
	logger     *slog.Logger
}

var _ ports.Extractor = (*Client)(nil)

// NewClient builds a client from configuration. The fallback crawler is
// optional; when present it handles category pages the map endpoint cannot.
func NewClient(cfg config.FirecrawlConfig, fallback ports.SiteCrawler, crawlLimit int, logger *slog.Logger) *Client {
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if crawlLimit <= 0 {
		crawlLimit = 100
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: scrapeTimeout},
		fallback:   fallback,
		crawlLimit: crawlLimit,
		logger:     logger,
	}
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown      string          `json:"markdown"`
		Extract       json.RawMessage `json:"extract"`
		LLMExtraction json.RawMessage `json:"llm_extraction"`
		Metadata      struct {
			Title         string `json:"title"`
			PublishedTime string `json:"publishedTime"`
		} `json:"metadata"`
	} `json:"data"`
}

// extractionPayload mirrors the service's extraction output. Age arrives as
// a JSON number or string depending on the model run, so it is decoded
// leniently.
type extractionPayload struct {
	VictimName    string      `json:"victim_name"`
	Age           json.Number `json:"age"`
	IncidentDate  string      `json:"incident_date"`
	Location      string      `json:"location"`
	County        string      `json:"county"`
	CaseType      string      `json:"case_type"`
	Description   string      `json:"description"`
	ReportedBy    string      `json:"reported_by"`
	JusticeServed string      `json:"justice_served"`
	Witnesses     []string    `json:"witnesses"`
	PoliceStation string      `json:"police_station"`
	OfficerNames  []string    `json:"officer_names"`
}

// ScrapeIncident fetches the page and requests structured extraction.
// Network failures, timeouts, and incomplete extractions all degrade to
// (nil, nil): the URL simply yields no incident.
func (c *Client) ScrapeIncident(ctx context.Context, pageURL string) (*domain.Incident, error) {
	body := map[string]any{
		"url":     pageURL,
		"formats": []string{"markdown", "extract"},
		"extract": map[string]any{"schema": extractionSchema},
		"timeout": scrapeTimeout.Milliseconds(),
	}

	var resp scrapeResponse
	if err := c.post(ctx, "/v1/scrape", body, &resp); err != nil {
		c.warn("scrape failed", "url", pageURL, "error", err)
		return nil, nil
	}
	if !resp.Success {
		return nil, nil
	}

	raw := resp.Data.Extract
	if len(raw) == 0 {
		raw = resp.Data.LLMExtraction
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var payload extractionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.warn("malformed extraction", "url", pageURL, "error", err)
		return nil, nil
	}

	inc := payload.toIncident()
	if !inc.Valid() {
		return nil, nil
	}

	inc.ArticleURL = pageURL
	inc.ArticleTitle = resp.Data.Metadata.Title
	inc.PublishedAt = resp.Data.Metadata.PublishedTime
	inc.ArticleContent = resp.Data.Markdown
	inc.ConfidenceScore = scoring.Score(inc)
	return &inc, nil
}

func (p extractionPayload) toIncident() domain.Incident {
	age := 0
	if v, err := p.Age.Int64(); err == nil {
		age = int(v)
	}
	return domain.Incident{
		VictimName:    strings.TrimSpace(p.VictimName),
		Age:           age,
		IncidentDate:  strings.TrimSpace(p.IncidentDate),
		Location:      strings.TrimSpace(p.Location),
		County:        strings.TrimSpace(p.County),
		CaseType:      domain.CaseType(strings.TrimSpace(p.CaseType)),
		Description:   strings.TrimSpace(p.Description),
		ReportedBy:    strings.TrimSpace(p.ReportedBy),
		JusticeServed: strings.TrimSpace(p.JusticeServed),
		Witnesses:     p.Witnesses,
		PoliceStation: strings.TrimSpace(p.PoliceStation),
		OfficerNames:  p.OfficerNames,
	}
}

type searchResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"data"`
}

// SearchIncidents issues a keyword search scoped to Kenya and returns raw
// result URLs with no relevance filtering.
func (c *Client) SearchIncidents(ctx context.Context, query string, limit int) ([]string, error) {
	body := map[string]any{
		"query":   query,
		"limit":   limit,
		"country": searchCountry,
	}

	var resp searchResponse
	if err := c.post(ctx, "/v1/search", body, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if !resp.Success {
		return nil, nil
	}

	urls := make([]string, 0, len(resp.Data))
	for _, item := range resp.Data {
		if item.URL != "" {
			urls = append(urls, item.URL)
		}
	}
	return urls, nil
}

type mapResponse struct {
	Success bool     `json:"success"`
	Data    []string `json:"data"`
}

// CrawlNewsSource enumerates URLs under a site via the map endpoint and
// keeps those matching the supplied relevance terms. When mapping fails or
// nothing matches, the local crawler (if wired) takes over.
func (c *Client) CrawlNewsSource(ctx context.Context, baseURL string, terms []string) ([]string, error) {
	links, err := c.mapSite(ctx, baseURL)
	if err != nil {
		c.warn("map site failed", "url", baseURL, "error", err)
	}

	matched := filterByTerms(links, terms)
	if len(matched) == 0 && c.fallback != nil {
		return c.fallback.CrawlLinks(ctx, baseURL, terms)
	}
	return matched, nil
}

func (c *Client) mapSite(ctx context.Context, baseURL string) ([]string, error) {
	body := map[string]any{
		"url":    baseURL,
		"search": "police",
		"limit":  c.crawlLimit,
	}

	var resp mapResponse
	if err := c.post(ctx, "/v1/map", body, &resp); err != nil {
		return nil, fmt.Errorf("map %s: %w", baseURL, err)
	}
	if !resp.Success {
		return nil, nil
	}
	return resp.Data, nil
}

func filterByTerms(links, terms []string) []string {
	var matched []string
	for _, link := range links {
		lower := strings.ToLower(link)
		for _, term := range terms {
			t := strings.ToLower(term)
			if strings.Contains(lower, strings.ReplaceAll(t, " ", "-")) ||
				strings.Contains(lower, strings.ReplaceAll(t, " ", "")) {
				matched = append(matched, link)
				break
			}
		}
	}
	return matched
}

// BatchScrapeIncidents processes URLs in fixed-size batches with an
// inter-batch delay. Failures in one URL never abort the batch; successes
// are collected in input order within each batch.
func (c *Client) BatchScrapeIncidents(ctx context.Context, urls []string) []domain.Incident {
	var incidents []domain.Incident

	for start := 0; start < len(urls); start += ScrapeBatchSize {
		end := min(start+ScrapeBatchSize, len(urls))
		batch := urls[start:end]

		results := make([]*domain.Incident, len(batch))
		var wg sync.WaitGroup
		for i, u := range batch {
			wg.Add(1)
			go func(i int, u string) {
				defer wg.Done()
				inc, err := c.ScrapeIncident(ctx, u)
				if err != nil {
					c.warn("batch scrape", "url", u, "error", err)
					return
				}
				results[i] = inc
			}(i, u)
		}
		wg.Wait()

		for _, inc := range results {
			if inc != nil {
				incidents = append(incidents, *inc)
			}
		}

		if end < len(urls) {
			select {
			case <-ctx.Done():
				return incidents
			case <-time.After(ScrapeBatchDelay):
			}
		}
	}

	return incidents
}

func (c *Client) post(ctx context.Context, path string, payload, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
