package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const pageFixture = `
<html>
	<body>
		<div class="document-wrapper">
			<h4>Security Update One</h4>
			<a href="/news/2026/update-1">Read more</a>
			<span class="date">Aug 20, 2026</span>
		</div>
		<div class="document-wrapper">
			<h4>x</h4>
			<a href="/news/2026/update-2">Read more</a>
		</div>
		<div class="document-wrapper">
			<a href="/news/2026/update-3">Third Advisory Issued</a>
		</div>
	</body>
</html>`

func TestPageFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pageFixture))
	}))
	defer srv.Close()

	adapter := NewPageAdapter(PageConfig{Name: "NIST", URL: srv.URL + "/news"})
	records, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The one-character title is an extraction artifact and is skipped.
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Title != "Security Update One" {
		t.Errorf("expected first title, got %q", records[0].Title)
	}
	if records[0].PublishedDate != "Aug 20, 2026" {
		t.Errorf("expected date extracted, got %q", records[0].PublishedDate)
	}
	if records[0].ScrapedDate == "" {
		t.Error("expected scraped date set")
	}

	// Relative links resolve against the page URL.
	want := srv.URL + "/news/2026/update-1"
	if records[0].Link != want {
		t.Errorf("expected link %q, got %q", want, records[0].Link)
	}

	if records[1].Title != "Third Advisory Issued" {
		t.Errorf("expected anchor text as fallback title, got %q", records[1].Title)
	}
}

func TestPageFetchSelectorFallback(t *testing.T) {
	html := `<html><body>
		<article><h3>Guidance Document Published</h3><a href="/g/1">link</a></article>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer srv.Close()

	adapter := NewPageAdapter(PageConfig{Name: "Test", URL: srv.URL})
	records, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record via article selector, got %d", len(records))
	}
}

func TestPageFetchCapsItems(t *testing.T) {
	html := "<html><body>"
	for i := 0; i < 20; i++ {
		html += `<div class="item"><h4>Regulatory Update Number ` + string(rune('A'+i)) + `</h4><a href="/u/` + string(rune('a'+i)) + `">go</a></div>`
	}
	html += "</body></html>"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer srv.Close()

	adapter := NewPageAdapter(PageConfig{Name: "Test", URL: srv.URL, MaxItems: 10})
	records, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 10 {
		t.Errorf("expected cap of 10 records, got %d", len(records))
	}
}

func TestPageFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := NewPageAdapter(PageConfig{Name: "NIST", URL: srv.URL})
	_, err := adapter.Fetch(context.Background())

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Source != "NIST" {
		t.Errorf("expected source NIST, got %q", fe.Source)
	}
}

func TestPageFetchNoItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
	}))
	defer srv.Close()

	adapter := NewPageAdapter(PageConfig{Name: "Test", URL: srv.URL})
	_, err := adapter.Fetch(context.Background())

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError for zero items, got %v", err)
	}
}

func TestPageFetchUnreachable(t *testing.T) {
	adapter := NewPageAdapter(PageConfig{Name: "Test", URL: "http://127.0.0.1:1/nope"})
	_, err := adapter.Fetch(context.Background())

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError for network failure, got %v", err)
	}
}
