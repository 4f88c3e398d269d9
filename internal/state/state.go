// Package state persists the per-source record sets between runs.
package state

import (
	"fmt"
	"strings"

	"github.com/regwatch/regwatch/internal/record"
)

// Metadata is the per-source run metadata persisted with the records.
type Metadata struct {
	Source         string `json:"source"`
	SourceName     string `json:"source_name"`
	LastChecked    string `json:"last_checked"`
	ScraperVersion string `json:"scraper_version,omitempty"`
	TotalUpdates   int    `json:"total_updates"`
	NewUpdates     int    `json:"new_updates"`
}

// SourceState is the persisted aggregate for one source: the records
// visible in the most recent successful fetch plus run metadata. The
// first NewUpdates entries of Updates, in order, are the ones that were
// new on the last run; downstream consumers rely on that positional
// contract.
type SourceState struct {
	Metadata Metadata        `json:"metadata"`
	Updates  []record.Record `json:"updates"`
}

// Store is the durable mapping from source name to its SourceState.
// At most one writer process is assumed; Save must be atomic per
// source, so a failed write never corrupts the previously persisted
// state.
type Store interface {
	// Load returns the persisted state for a source. Missing or
	// unreadable state degrades to an empty SourceState, never an
	// error: the worst case is that everything classifies as new on
	// the next run.
	Load(source string) (*SourceState, error)

	// Save atomically replaces the state for a source.
	Save(source string, st *SourceState) error

	// Sources lists the names of all sources with persisted state.
	Sources() ([]string, error)

	Close() error
}

// PersistError reports a failed state write. The prior on-disk state is
// still intact when one is returned.
type PersistError struct {
	Source string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("saving state for %s: %v", e.Source, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Slug normalizes a source name into a key usable as a filename
// fragment: "GDPR/EDPB" becomes "gdpr-edpb".
func Slug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
