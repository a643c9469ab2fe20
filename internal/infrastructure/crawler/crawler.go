// Package crawler enumerates article links from news category pages
// directly, serving as the fallback when the extraction service cannot map
// a site.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/SK3CHI3/REX-sub000/internal/ports"
)

const defaultLimit = 100

// Crawler fetches a single page and collects same-host anchor links whose
// path or text matches the supplied relevance terms.
type Crawler struct {
	client *http.Client
	limit  int
	logger *slog.Logger
}

var _ ports.SiteCrawler = (*Crawler)(nil)

// New wires an HTTP client; limit caps collected links and defaults to 100.
func New(client *http.Client, limit int, logger *slog.Logger) *Crawler {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Crawler{client: client, limit: limit, logger: logger}
}

// CrawlLinks fetches pageURL and returns deduplicated matching links.
func (c *Crawler) CrawlLinks(ctx context.Context, pageURL string, terms []string) ([]string, error) {
	doc, base, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var links []string

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}

		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		if abs.Host != base.Host {
			return true
		}
		abs.Fragment = ""

		link := abs.String()
		if _, ok := seen[link]; ok {
			return true
		}
		if !matchesTerms(link, sel.Text(), terms) {
			return true
		}

		seen[link] = struct{}{}
		links = append(links, link)
		return len(links) < c.limit
	})

	if c.logger != nil {
		c.logger.Debug("crawled category page", "url", pageURL, "links", len(links))
	}
	return links, nil
}

func (c *Crawler) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, *url.URL, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid page url %s: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "rex-scraper/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, base, nil
}

// matchesTerms checks anchor text against the raw terms and the link path
// against slugged variants ("police brutality" -> "police-brutality").
func matchesTerms(link, anchorText string, terms []string) bool {
	lowerLink := strings.ToLower(link)
	lowerText := strings.ToLower(anchorText)

	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		if strings.Contains(lowerText, t) {
			return true
		}
		if strings.Contains(lowerLink, strings.ReplaceAll(t, " ", "-")) ||
			strings.Contains(lowerLink, strings.ReplaceAll(t, " ", "")) {
			return true
		}
	}
	return false
}
