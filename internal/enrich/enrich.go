// Package enrich attaches a short abstract to records whose source
// provides none, by fetching the linked document and extracting its
// readable text.
package enrich

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"github.com/regwatch/regwatch/internal/record"
)

const maxAbstractLen = 280

// Enricher fetches linked documents over HTTP and extracts abstracts.
// It remembers domains that failed within a run and skips further
// requests to them.
type Enricher struct {
	client        *http.Client
	failedDomains map[string]struct{}
}

// New creates an enricher with the given per-request timeout.
func New(timeout time.Duration) *Enricher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Enricher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		failedDomains: make(map[string]struct{}),
	}
}

// Apply fills rec.Extra["abstract"] when the record has none. Failures
// leave the record unchanged; enrichment is strictly best-effort and
// never fails a source.
func (e *Enricher) Apply(ctx context.Context, rec *record.Record) {
	if rec.Link == "" {
		return
	}
	if abstract, ok := rec.Extra["abstract"].(string); ok && abstract != "" {
		return
	}

	u, _ := url.Parse(rec.Link)
	domain := ""
	if u != nil {
		domain = strings.ToLower(u.Host)
	}
	if _, failed := e.failedDomains[domain]; failed {
		return
	}

	text, err := e.extract(ctx, rec.Link)
	if err != nil {
		if domain != "" {
			e.failedDomains[domain] = struct{}{}
			log.Printf("Abstract fetch failed for %s, skipping remaining from %s", rec.Link, domain)
		}
		return
	}
	if text == "" {
		return
	}

	if rec.Extra == nil {
		rec.Extra = make(map[string]any, 1)
	}
	rec.Extra["abstract"] = text
}

func (e *Enricher) extract(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "regwatch/1.0 (compliance monitoring)")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(link)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) < 40 {
		return "", nil
	}
	if len(text) > maxAbstractLen {
		// Cut on a rune boundary so a multi-byte character is never
		// split mid-sequence.
		cut := maxAbstractLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text, nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
