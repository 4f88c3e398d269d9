// Package runner orchestrates one monitoring pass over all configured
// sources.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/regwatch/regwatch/internal/dedup"
	"github.com/regwatch/regwatch/internal/enrich"
	"github.com/regwatch/regwatch/internal/record"
	"github.com/regwatch/regwatch/internal/source"
	"github.com/regwatch/regwatch/internal/state"
)

// SourceResult is the per-source outcome of a run.
type SourceResult struct {
	Source     string `json:"source"`
	Success    bool   `json:"success"`
	NewCount   int    `json:"new_count"`
	TotalCount int    `json:"total_count"`
	Error      string `json:"error,omitempty"`
}

// Summary aggregates one run across all sources. It is derived entirely
// from the SourceStates produced during the run and is not persisted
// beyond its output artifact.
type Summary struct {
	RunDate         string         `json:"run_date"`
	TotalNewUpdates int            `json:"total_new_updates"`
	Sources         []SourceResult `json:"sources"`
}

// FailedSources counts sources that did not complete this run.
func (s *Summary) FailedSources() int {
	n := 0
	for _, src := range s.Sources {
		if !src.Success {
			n++
		}
	}
	return n
}

// Options configures run artifacts. Empty paths disable the artifact.
type Options struct {
	// SummaryPath receives the run summary JSON.
	SummaryPath string
	// DigestPath receives a markdown digest of newly observed records.
	DigestPath string
	// ActionsOutputPath receives new_updates/has_updates key=value
	// lines for a CI environment to consume. The caller resolves it;
	// the runner never reads process environment itself.
	ActionsOutputPath string
	// Version is recorded in each source's state metadata.
	Version string
}

// Runner walks the configured sources in order: fetch, reconcile
// against prior state, persist, account. One source's failure never
// blocks another, and a run always produces a complete Summary.
type Runner struct {
	store    state.Store
	adapters []source.Adapter
	enricher *enrich.Enricher
	opts     Options
}

// New creates a runner. enricher may be nil to disable abstract
// enrichment.
func New(store state.Store, adapters []source.Adapter, enricher *enrich.Enricher, opts Options) *Runner {
	return &Runner{store: store, adapters: adapters, enricher: enricher, opts: opts}
}

// Run executes one pass over all sources and returns the summary.
// Failures are represented as data in the summary, never as a returned
// error.
func (r *Runner) Run(ctx context.Context) *Summary {
	summary := &Summary{RunDate: time.Now().Format(time.RFC3339)}
	var digest []digestSection

	for _, adapter := range r.adapters {
		result, fresh := r.runSource(ctx, adapter)
		summary.Sources = append(summary.Sources, result)
		if result.Success {
			summary.TotalNewUpdates += result.NewCount
			if len(fresh) > 0 {
				digest = append(digest, digestSection{source: adapter.Name(), records: fresh})
			}
		}
	}

	log.Printf("Run complete: %d new updates across %d sources (%d failed)",
		summary.TotalNewUpdates, len(summary.Sources), summary.FailedSources())

	r.writeSummary(summary)
	r.writeDigest(summary, digest)
	r.writeActionsOutput(summary)
	return summary
}

func (r *Runner) runSource(ctx context.Context, adapter source.Adapter) (SourceResult, []record.Record) {
	name := adapter.Name()
	log.Printf("Checking %s (%s)", name, adapter.URL())

	incoming, err := adapter.Fetch(ctx)
	if err != nil {
		log.Printf("Fetch failed for %s: %v", name, err)
		return SourceResult{Source: name, Error: err.Error()}, nil
	}
	if len(incoming) == 0 {
		// Adapters report zero extractable items as a FetchError; an
		// empty success must still never wipe prior state.
		log.Printf("No records returned for %s", name)
		return SourceResult{Source: name, Error: "no records returned"}, nil
	}

	prior, err := r.store.Load(name)
	if err != nil {
		// The store contract degrades unreadable state to empty; a
		// returned error here is unexpected but treated the same way.
		log.Printf("Load failed for %s, treating as empty: %v", name, err)
		prior = &state.SourceState{}
	}

	merged, fresh := dedup.Reconcile(prior.Updates, incoming)
	for _, rec := range fresh {
		log.Printf("New update found: %s", rec.Title)
	}

	if r.enricher != nil && len(fresh) > 0 {
		r.enrichFresh(ctx, merged, fresh)
	}

	st := &state.SourceState{
		Metadata: state.Metadata{
			Source:         adapter.URL(),
			SourceName:     name,
			LastChecked:    time.Now().Format(time.RFC3339),
			ScraperVersion: r.opts.Version,
			TotalUpdates:   len(merged),
			NewUpdates:     len(fresh),
		},
		Updates: merged,
	}

	if err := r.store.Save(name, st); err != nil {
		log.Printf("Save failed for %s: %v", name, err)
		return SourceResult{Source: name, Error: err.Error()}, nil
	}

	log.Printf("Saved %d updates (%d new) for %s", len(merged), len(fresh), name)
	return SourceResult{
		Source:     name,
		Success:    true,
		NewCount:   len(fresh),
		TotalCount: len(merged),
	}, fresh
}

// enrichFresh attaches abstracts to the merged copies of newly observed
// records. Only fresh records are fetched; re-fetching the whole window
// every run would hammer the sources for data we already have.
func (r *Runner) enrichFresh(ctx context.Context, merged, fresh []record.Record) {
	freshHashes := make(map[string]struct{}, len(fresh))
	for _, rec := range fresh {
		freshHashes[rec.Hash] = struct{}{}
	}
	for i := range merged {
		if _, ok := freshHashes[merged[i].Hash]; ok {
			r.enricher.Apply(ctx, &merged[i])
		}
	}
}

func (r *Runner) writeSummary(summary *Summary) {
	if r.opts.SummaryPath == "" {
		return
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Printf("Could not encode summary: %v", err)
		return
	}
	if err := os.WriteFile(r.opts.SummaryPath, data, 0o644); err != nil {
		log.Printf("Could not write summary: %v", err)
	}
}

type digestSection struct {
	source  string
	records []record.Record
}

func (r *Runner) writeDigest(summary *Summary, sections []digestSection) {
	if r.opts.DigestPath == "" {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Compliance digest — %s\n", time.Now().Format("January 2, 2006"))

	if len(sections) == 0 {
		b.WriteString("\nNo new updates this run.\n")
	}
	for _, sec := range sections {
		fmt.Fprintf(&b, "\n## %s (%d new)\n\n", sec.source, len(sec.records))
		for _, rec := range sec.records {
			fmt.Fprintf(&b, "- [%s](%s)", rec.Title, rec.Link)
			if rec.PublishedDate != "" {
				fmt.Fprintf(&b, " — %s", rec.PublishedDate)
			}
			b.WriteByte('\n')
		}
	}

	if err := os.WriteFile(r.opts.DigestPath, []byte(b.String()), 0o644); err != nil {
		log.Printf("Could not write digest: %v", err)
	}
}

// writeActionsOutput appends key=value pairs in the format CI runners
// expect from their output files.
func (r *Runner) writeActionsOutput(summary *Summary) {
	if r.opts.ActionsOutputPath == "" {
		return
	}
	f, err := os.OpenFile(r.opts.ActionsOutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("Could not open actions output: %v", err)
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "new_updates=%d\n", summary.TotalNewUpdates)
	fmt.Fprintf(f, "has_updates=%t\n", summary.TotalNewUpdates > 0)
}
