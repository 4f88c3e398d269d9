package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/regwatch/regwatch/internal/record"
)

const fedRegDocumentsURL = "https://www.federalregister.gov/api/v1/documents.json"

const (
	defaultLookbackDays = 7
	defaultPerPage      = 50
	maxPerPage          = 50
)

// FedRegConfig configures the Federal Register API adapter. Agency
// slugs come from https://www.federalregister.gov/agencies.
type FedRegConfig struct {
	Name         string
	Agencies     []string
	LookbackDays int
	PerPage      int
	Timeout      time.Duration

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// FedRegAdapter queries the Federal Register documents API for recent
// regulatory documents published by the configured agencies.
type FedRegAdapter struct {
	cfg    FedRegConfig
	client *http.Client
}

// NewFedRegAdapter creates a Federal Register API adapter.
func NewFedRegAdapter(cfg FedRegConfig) *FedRegAdapter {
	if cfg.Name == "" {
		cfg.Name = "Federal Register"
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = defaultLookbackDays
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	if cfg.PerPage > maxPerPage {
		cfg.PerPage = maxPerPage
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fedRegDocumentsURL
	}
	return &FedRegAdapter{cfg: cfg, client: newClient(cfg.Timeout)}
}

func (a *FedRegAdapter) Name() string { return a.cfg.Name }
func (a *FedRegAdapter) URL() string  { return a.cfg.BaseURL }

// Fetch returns documents published within the lookback window, newest
// first. Documents carry type, abstract and agency names as extra
// fields.
func (a *FedRegAdapter) Fetch(ctx context.Context) ([]record.Record, error) {
	since := time.Now().AddDate(0, 0, -a.cfg.LookbackDays).Format("2006-01-02")

	params := url.Values{}
	for _, f := range []string{"title", "type", "abstract", "html_url", "publication_date", "agencies"} {
		params.Add("fields[]", f)
	}
	params.Set("per_page", strconv.Itoa(a.cfg.PerPage))
	params.Set("order", "newest")
	params.Set("conditions[publication_date][gte]", since)
	for _, agency := range a.cfg.Agencies {
		params.Add("conditions[agencies][]", agency)
	}

	resp, err := get(ctx, a.client, a.cfg.BaseURL+"?"+params.Encode())
	if err != nil {
		return nil, &FetchError{Source: a.cfg.Name, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Source: a.cfg.Name, Reason: "HTTP " + resp.Status}
	}

	var result struct {
		Results []struct {
			Title           string `json:"title"`
			Type            string `json:"type"`
			Abstract        string `json:"abstract"`
			HTMLURL         string `json:"html_url"`
			PublicationDate string `json:"publication_date"`
			Agencies        []struct {
				Name string `json:"name"`
			} `json:"agencies"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &FetchError{Source: a.cfg.Name, Reason: "decoding response", Err: err}
	}

	today := record.Today()
	var records []record.Record
	for _, doc := range result.Results {
		title := strings.TrimSpace(doc.Title)
		if len(title) < minTitleLen || doc.HTMLURL == "" {
			continue
		}

		extra := map[string]any{}
		if doc.Type != "" {
			extra["type"] = doc.Type
		}
		if doc.Abstract != "" {
			extra["abstract"] = doc.Abstract
		}
		if len(doc.Agencies) > 0 {
			names := make([]any, 0, len(doc.Agencies))
			for _, ag := range doc.Agencies {
				if ag.Name != "" {
					names = append(names, ag.Name)
				}
			}
			extra["agencies"] = names
		}

		records = append(records, record.Record{
			Title:         title,
			Link:          doc.HTMLURL,
			PublishedDate: doc.PublicationDate,
			ScrapedDate:   today,
			Extra:         extra,
		})
	}

	if len(records) == 0 {
		return nil, &FetchError{Source: a.cfg.Name, Reason: "no documents in window"}
	}
	return records, nil
}
