// Package source fetches raw records from the monitored external
// sources. One adapter per source; each encapsulates its transport and
// extraction and reports failures as FetchError values rather than
// aborting the run.
package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/regwatch/regwatch/internal/record"
)

const userAgent = "regwatch/1.0 (compliance monitoring)"

// Titles shorter than this are treated as extraction artifacts
// (navigation links, "Read more" anchors) and skipped.
const minTitleLen = 5

const defaultTimeout = 10 * time.Second

// Adapter fetches the currently visible records from one source.
type Adapter interface {
	// Name is the stable source identifier used as the state key.
	Name() string
	// URL is the address records are fetched from, recorded in state
	// metadata.
	URL() string
	// Fetch returns the records visible in the source right now,
	// capped per adapter. A failed fetch returns a *FetchError; one
	// source failing never concerns another.
	Fetch(ctx context.Context) ([]record.Record, error)
}

// FetchError reports a failed fetch, scoped to one source and one run.
type FetchError struct {
	Source string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetching %s: %s", e.Source, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

func newClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// get issues a GET with the shared User-Agent. The caller owns the
// response body.
func get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return client.Do(req)
}
