package dedup

import (
	"testing"

	"github.com/regwatch/regwatch/internal/record"
)

func rec(title, link string) record.Record {
	return record.Record{Title: title, Link: link}
}

func TestReconcileAllNew(t *testing.T) {
	incoming := []record.Record{
		rec("A", "http://x/1"),
		rec("B", "http://x/2"),
	}

	merged, fresh := Reconcile(nil, incoming)
	if len(fresh) != 2 {
		t.Errorf("expected 2 new records, got %d", len(fresh))
	}
	if len(merged) != 2 {
		t.Errorf("expected 2 merged records, got %d", len(merged))
	}
}

func TestReconcilePartialOverlap(t *testing.T) {
	previous := []record.Record{rec("A", "http://x/1")}
	incoming := []record.Record{
		rec("A", "http://x/1"),
		rec("C", "http://x/3"),
	}

	merged, fresh := Reconcile(previous, incoming)
	if len(fresh) != 1 {
		t.Fatalf("expected 1 new record, got %d", len(fresh))
	}
	if fresh[0].Title != "C" {
		t.Errorf("expected new record C, got %q", fresh[0].Title)
	}
	if len(merged) != 2 {
		t.Errorf("expected 2 merged records, got %d", len(merged))
	}
}

func TestReconcileRecencyWindow(t *testing.T) {
	// Records that vanished from the latest fetch are dropped, not
	// retained as a historical union.
	previous := []record.Record{rec("A", "http://x/1"), rec("B", "http://x/2")}
	incoming := []record.Record{rec("B", "http://x/2"), rec("C", "http://x/3")}

	merged, fresh := Reconcile(previous, incoming)
	if len(merged) != 2 {
		t.Fatalf("expected merged to equal incoming itemwise, got %d records", len(merged))
	}
	if merged[0].Title != "B" || merged[1].Title != "C" {
		t.Errorf("expected merged order B, C, got %q, %q", merged[0].Title, merged[1].Title)
	}
	if len(fresh) != 1 || fresh[0].Title != "C" {
		t.Errorf("expected only C new, got %v", fresh)
	}
}

func TestReconcileAttachesHash(t *testing.T) {
	merged, fresh := Reconcile(nil, []record.Record{rec("A", "http://x/1")})
	if merged[0].Hash == "" {
		t.Error("expected hash attached to merged record")
	}
	if merged[0].Hash != record.Fingerprint(merged[0]) {
		t.Error("expected attached hash to equal the fingerprint")
	}
	if fresh[0].Hash != merged[0].Hash {
		t.Error("expected same hash on the fresh copy")
	}
}

func TestReconcileDuplicatesInOneFetch(t *testing.T) {
	// Each incoming record is checked against the fixed pre-run set
	// only, so a document listed twice in a single fetch counts as new
	// twice when absent from prior state.
	incoming := []record.Record{
		rec("A", "http://x/1"),
		rec("A", "http://x/1"),
	}

	merged, fresh := Reconcile(nil, incoming)
	if len(merged) != 2 {
		t.Errorf("expected both copies retained in merged, got %d", len(merged))
	}
	if len(fresh) != 2 {
		t.Errorf("expected both duplicates counted new, got %d", len(fresh))
	}

	// Present in prior state, neither copy is new.
	_, fresh = Reconcile([]record.Record{rec("A", "http://x/1")}, incoming)
	if len(fresh) != 0 {
		t.Errorf("expected 0 new, got %d", len(fresh))
	}
}

func TestReconcilePure(t *testing.T) {
	previous := []record.Record{rec("A", "http://x/1")}
	incoming := []record.Record{rec("A", "http://x/1"), rec("B", "http://x/2")}

	_, first := Reconcile(previous, incoming)
	_, second := Reconcile(previous, incoming)

	if len(first) != len(second) {
		t.Fatalf("expected identical results, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Hash != second[i].Hash {
			t.Errorf("result %d differs between calls", i)
		}
	}
}

func TestReconcileNoveltyConservation(t *testing.T) {
	previous := []record.Record{rec("A", "http://x/1")}
	incoming := []record.Record{rec("A", "http://x/1"), rec("B", "http://x/2"), rec("C", "http://x/3")}

	merged, fresh := Reconcile(previous, incoming)
	if len(fresh) > len(incoming) {
		t.Error("fresh cannot exceed incoming")
	}

	inMerged := make(map[string]bool, len(merged))
	for _, r := range merged {
		inMerged[r.Hash] = true
	}
	for _, r := range fresh {
		if !inMerged[r.Hash] {
			t.Errorf("new record %q missing from merged", r.Title)
		}
	}
}
