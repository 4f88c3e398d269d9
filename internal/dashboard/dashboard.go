// Package dashboard renders the persisted compliance state into a
// single self-contained HTML page.
package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log"
	"os"
	"time"

	"github.com/yuin/goldmark"

	"github.com/regwatch/regwatch/internal/state"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

// Sections show at most this many updates each.
const maxShownPerSource = 15

var md = goldmark.New()

var page = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// Item is one rendered update row.
type Item struct {
	Title         string
	Link          string
	PublishedDate string
	ScrapedDate   string
	Abstract      string
	DocType       string
	Agencies      []string
	IsNew         bool
}

// Section is one source's block on the page.
type Section struct {
	Name     string
	Slug     string
	NewCount int
	Items    []Item
}

// Data is everything the dashboard template needs.
type Data struct {
	GeneratedAt  string
	TotalUpdates int
	TotalNew     int
	SourceCount  int
	Sections     []Section
	DigestHTML   template.HTML
}

// Build assembles dashboard data from the store. digestPath may name a
// markdown digest to render into the page; empty or missing is fine.
func Build(store state.Store, digestPath string) (*Data, error) {
	names, err := store.Sources()
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	data := &Data{
		GeneratedAt: time.Now().Format("January 2, 2006 at 3:04 PM"),
		SourceCount: len(names),
	}

	for _, name := range names {
		st, err := store.Load(name)
		if err != nil || len(st.Updates) == 0 {
			continue
		}

		sec := Section{
			Name:     st.Metadata.SourceName,
			Slug:     state.Slug(name),
			NewCount: st.Metadata.NewUpdates,
		}
		if sec.Name == "" {
			sec.Name = name
		}

		for i, rec := range st.Updates {
			if i >= maxShownPerSource {
				break
			}
			item := Item{
				Title:         rec.Title,
				Link:          rec.Link,
				PublishedDate: rec.PublishedDate,
				ScrapedDate:   rec.ScrapedDate,
				// The first new_updates entries, in insertion order,
				// are the ones new as of the last run.
				IsNew: i < st.Metadata.NewUpdates,
			}
			if s, ok := rec.Extra["abstract"].(string); ok {
				item.Abstract = s
			}
			if s, ok := rec.Extra["type"].(string); ok {
				item.DocType = s
			}
			if list, ok := rec.Extra["agencies"].([]any); ok {
				for _, v := range list {
					if s, ok := v.(string); ok {
						item.Agencies = append(item.Agencies, s)
					}
				}
				if len(item.Agencies) > 2 {
					item.Agencies = item.Agencies[:2]
				}
			}
			sec.Items = append(sec.Items, item)
		}

		data.TotalUpdates += st.Metadata.TotalUpdates
		data.TotalNew += st.Metadata.NewUpdates
		data.Sections = append(data.Sections, sec)
	}

	if digestPath != "" {
		data.DigestHTML = renderDigest(digestPath)
	}
	return data, nil
}

// Render writes the dashboard page for the given data.
func Render(w io.Writer, data *Data) error {
	return page.Execute(w, data)
}

// Generate builds the dashboard from the store and writes it to
// outPath.
func Generate(store state.Store, digestPath, outPath string) error {
	data, err := Build(store, digestPath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Render(&buf, data); err != nil {
		return fmt.Errorf("rendering dashboard: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing dashboard: %w", err)
	}
	return nil
}

func renderDigest(path string) template.HTML {
	src, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		log.Printf("Could not render digest markdown: %v", err)
		return ""
	}
	return template.HTML(buf.String()) //nolint: gosec
}
