package history

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestHistory_RecordAndQuery(t *testing.T) {
	d := openTestDB(t)

	d.RecordActivation(Activation{SessionTime: 10, Name: "gull_flyby", Category: "ambient", Duration: 8})
	d.RecordActivation(Activation{SessionTime: 40, Name: "gull_flyby", Category: "ambient", Duration: 8})
	d.RecordActivation(Activation{SessionTime: 620, Name: "green_flash", Category: "rare", RareTier: 1, Duration: 6})
	d.Sync()

	total, err := d.TotalActivations()
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 3 {
		t.Fatalf("total %d, want 3", total)
	}

	counts, err := d.EventCounts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["gull_flyby"] != 2 || counts["green_flash"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	last, ok, err := d.LastActivation("gull_flyby")
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if !ok || last != 40 {
		t.Fatalf("last gull_flyby = (%v, %v), want (40, true)", last, ok)
	}

	if _, ok, err := d.LastActivation("never_fired"); err != nil || ok {
		t.Fatalf("missing event must report not found, got ok=%v err=%v", ok, err)
	}
}

func TestHistory_EmptyDB(t *testing.T) {
	d := openTestDB(t)

	total, err := d.TotalActivations()
	if err != nil || total != 0 {
		t.Fatalf("empty db total = (%d, %v)", total, err)
	}
	counts, err := d.EventCounts()
	if err != nil || len(counts) != 0 {
		t.Fatalf("empty db counts = (%v, %v)", counts, err)
	}
}

func TestHistory_CloseIsIdempotentAndSafe(t *testing.T) {
	d := openTestDB(t)
	d.RecordActivation(Activation{SessionTime: 1, Name: "gull_flyby", Category: "ambient", Duration: 8})
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	// Writes after close are silently dropped, never a panic.
	d.RecordActivation(Activation{SessionTime: 2, Name: "gull_flyby", Category: "ambient", Duration: 8})
	d.Sync()
}

func TestHistory_OpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("empty path must fail")
	}
}
