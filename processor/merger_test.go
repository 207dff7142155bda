package processor

import (
	"testing"
	"time"

	"optionflow/models"
)

func batch(source, stamp, label string, n int) models.SnapshotBatch {
	b := models.SnapshotBatch{Source: source, Stamp: stamp, Label: label}
	for i := 0; i < n; i++ {
		b.Rows = append(b.Rows, row(time.Time{}, &obs{strike: 100}, nil))
	}
	return b
}

func TestMergeOrdersChronologically(t *testing.T) {
	batches := []models.SnapshotBatch{
		batch("b_25082026_094500.csv", "25-08-2026 09:45:00", "0945", 2),
		batch("a_25082026_093000.csv", "25-08-2026 09:30:00", "0930", 2),
	}

	merged := Merge(batches)
	if len(merged.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(merged.Rows))
	}
	for i := 1; i < len(merged.Rows); i++ {
		if merged.Rows[i].Timestamp.Before(merged.Rows[i-1].Timestamp) {
			t.Fatalf("rows out of order at %d: %v < %v", i, merged.Rows[i].Timestamp, merged.Rows[i-1].Timestamp)
		}
	}
	if merged.Rows[0].Source != "a_25082026_093000.csv" || merged.Rows[0].TimeLabel != "0930" {
		t.Errorf("earliest batch should come first: %+v", merged.Rows[0])
	}
}

func TestMergeDropsUntaggedBatches(t *testing.T) {
	batches := []models.SnapshotBatch{
		batch("good_25082026_093000.csv", "25-08-2026 09:30:00", "0930", 1),
		batch("untagged.csv", "", "", 3),
	}

	merged := Merge(batches)
	if len(merged.Rows) != 1 {
		t.Fatalf("expected untagged rows dropped, got %d rows", len(merged.Rows))
	}
}

func TestMergeDropsUnparseableStamps(t *testing.T) {
	batches := []models.SnapshotBatch{
		batch("bad.csv", "99-99-2026 09:30:00", "0930", 2),
		batch("good_25082026_093000.csv", "25-08-2026 09:30:00", "0930", 1),
	}

	merged := Merge(batches)
	if len(merged.Rows) != 1 {
		t.Fatalf("expected unparseable stamp dropped, got %d rows", len(merged.Rows))
	}
}

func TestMergeStableAtEqualTimestamps(t *testing.T) {
	b1 := batch("a_25082026_093000.csv", "25-08-2026 09:30:00", "0930", 1)
	b1.Rows[0].Call.Strike = 100
	b2 := batch("b_25082026_093000.csv", "25-08-2026 09:30:00", "0930", 1)
	b2.Rows[0].Call.Strike = 105

	merged := Merge([]models.SnapshotBatch{b1, b2})
	if len(merged.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(merged.Rows))
	}
	if merged.Rows[0].Call.Strike != 100 || merged.Rows[1].Call.Strike != 105 {
		t.Errorf("equal timestamps must keep input order: %v, %v",
			merged.Rows[0].Call.Strike, merged.Rows[1].Call.Strike)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	merged := Merge(nil)
	if len(merged.Rows) != 0 {
		t.Fatalf("expected empty table, got %d rows", len(merged.Rows))
	}
}
