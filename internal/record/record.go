package record

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Record is one normalized document observed at a monitored source.
type Record struct {
	Title         string
	Link          string
	PublishedDate string // as printed by the source, empty if unknown
	ScrapedDate   string // YYYY-MM-DD date the record was observed
	Hash          string // identity fingerprint, attached during reconciliation
	Extra         map[string]any
}

// Fingerprint returns the identity digest of a record: the MD5 hex of
// Title and Link concatenated in that order. Dates and extra fields do
// not participate, so a later re-fetch that corrects a date never
// produces a spurious new entry. The digest is an identity key only,
// never a security primitive.
func Fingerprint(r Record) string {
	sum := md5.Sum([]byte(r.Title + r.Link))
	return hex.EncodeToString(sum[:])
}

// Today returns the current date in the scraped_date format.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// MarshalJSON flattens Extra into the record object so the persisted
// shape matches the one consumed by the dashboard: title, link,
// published_date, scraped_date, hash plus any source-specific fields.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Extra)+5)
	for k, v := range r.Extra {
		m[k] = v
	}
	m["title"] = r.Title
	m["link"] = r.Link
	if r.PublishedDate != "" {
		m["published_date"] = r.PublishedDate
	} else {
		m["published_date"] = nil
	}
	m["scraped_date"] = r.ScrapedDate
	if r.Hash != "" {
		m["hash"] = r.Hash
	}
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON: known keys fill the
// struct fields, everything else lands in Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	take := func(key string) string {
		raw, ok := m[key]
		if !ok {
			return ""
		}
		delete(m, key)
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "" // null or non-string, treated as absent
		}
		return s
	}

	r.Title = take("title")
	r.Link = take("link")
	r.PublishedDate = take("published_date")
	r.ScrapedDate = take("scraped_date")
	r.Hash = take("hash")

	if len(m) > 0 {
		r.Extra = make(map[string]any, len(m))
		for k, raw := range m {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				continue
			}
			r.Extra[k] = v
		}
	}
	return nil
}
