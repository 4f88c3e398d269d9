// Package dedup decides which freshly fetched records are genuinely new
// relative to a source's previously persisted set.
package dedup

import "github.com/regwatch/regwatch/internal/record"

// Reconcile partitions incoming into the full merged set and the subset
// not present in previous, matching by fingerprint.
//
// merged equals incoming itemwise with the fingerprint attached: records
// that disappeared from the latest fetch are dropped, so persisted state
// is a recency window over the most recent successful fetch, not a
// historical union.
//
// Every incoming record is checked against the fixed pre-run previous
// set only. If a source lists the same document twice in one fetch,
// both copies are kept in merged and both count as new when the
// document is absent from prior state.
func Reconcile(previous, incoming []record.Record) (merged, fresh []record.Record) {
	seen := make(map[string]struct{}, len(previous))
	for _, r := range previous {
		seen[record.Fingerprint(r)] = struct{}{}
	}

	merged = make([]record.Record, 0, len(incoming))
	for _, r := range incoming {
		fp := record.Fingerprint(r)
		r.Hash = fp
		if _, ok := seen[fp]; !ok {
			fresh = append(fresh, r)
		}
		merged = append(merged, r)
	}
	return merged, fresh
}
