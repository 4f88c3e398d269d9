package source

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/regwatch/regwatch/internal/record"
)

const defaultMaxPerPage = 10

// Selectors tried in order when a page config does not name its own.
var defaultSelectors = []string{".document-wrapper", ".news-item", "article", ".item"}

// PageConfig configures a single scraped HTML page.
type PageConfig struct {
	Name      string
	URL       string
	Selectors []string
	MaxItems  int
	Timeout   time.Duration
}

// PageAdapter extracts records from a news/press listing page by
// structural selectors.
type PageAdapter struct {
	cfg    PageConfig
	client *http.Client
}

// NewPageAdapter creates a page-scrape adapter.
func NewPageAdapter(cfg PageConfig) *PageAdapter {
	if len(cfg.Selectors) == 0 {
		cfg.Selectors = defaultSelectors
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = defaultMaxPerPage
	}
	return &PageAdapter{cfg: cfg, client: newClient(cfg.Timeout)}
}

func (a *PageAdapter) Name() string { return a.cfg.Name }
func (a *PageAdapter) URL() string  { return a.cfg.URL }

// Fetch retrieves the page and extracts up to MaxItems records.
// Malformed items are skipped; a page yielding nothing extractable is a
// fetch failure, so stale-but-valid prior state is left alone.
func (a *PageAdapter) Fetch(ctx context.Context) ([]record.Record, error) {
	resp, err := get(ctx, a.client, a.cfg.URL)
	if err != nil {
		return nil, &FetchError{Source: a.cfg.Name, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Source: a.cfg.Name, Reason: "HTTP " + resp.Status}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{Source: a.cfg.Name, Reason: "parsing page", Err: err}
	}

	items := a.selectItems(doc)
	if items == nil {
		return nil, &FetchError{Source: a.cfg.Name, Reason: "no items matched any selector"}
	}

	base, _ := url.Parse(a.cfg.URL)
	today := record.Today()
	var records []record.Record

	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if len(records) >= a.cfg.MaxItems {
			return false
		}
		rec, ok := parseItem(item, base, today)
		if ok {
			records = append(records, rec)
		}
		return true
	})

	if len(records) == 0 {
		return nil, &FetchError{Source: a.cfg.Name, Reason: "no extractable items"}
	}
	return records, nil
}

// selectItems tries each configured selector until one matches, the way
// sites tend to shuffle their markup between redesigns.
func (a *PageAdapter) selectItems(doc *goquery.Document) *goquery.Selection {
	for _, sel := range a.cfg.Selectors {
		items := doc.Find(sel)
		if items.Length() > 0 {
			log.Printf("%s: found %d items using selector %q", a.cfg.Name, items.Length(), sel)
			return items
		}
	}
	return nil
}

func parseItem(item *goquery.Selection, base *url.URL, today string) (record.Record, bool) {
	title := strings.TrimSpace(item.Find("h4, h3, h2, a").First().Text())
	if len(title) < minTitleLen {
		return record.Record{}, false
	}

	href, ok := item.Find("a").First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return record.Record{}, false
	}

	var published string
	date := item.Find("time, span.date, span.published, .date, .published").First()
	if date.Length() > 0 {
		published = strings.TrimSpace(date.Text())
	}

	return record.Record{
		Title:         title,
		Link:          resolveLink(base, href),
		PublishedDate: published,
		ScrapedDate:   today,
	}, true
}

func resolveLink(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
