package index

import (
	"path/filepath"
	"testing"
)

func TestWatermarkLoadMissingIsEmpty(t *testing.T) {
	t.Parallel()

	w := NewWatermark(filepath.Join(t.TempDir(), ".last_indexed"))
	got, err := w.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty watermark, got %q", got)
	}
}

func TestWatermarkSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	w := NewWatermark(filepath.Join(t.TempDir(), ".last_indexed"))
	const stamp = "2026-08-20T10:00:01.000000000Z"
	if err := w.Save(stamp); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := w.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != stamp {
		t.Fatalf("got %q, want %q", got, stamp)
	}
}

func TestWatermarkOverwrite(t *testing.T) {
	t.Parallel()

	w := NewWatermark(filepath.Join(t.TempDir(), ".last_indexed"))
	if err := w.Save("2026-08-20T10:00:00.000000000Z"); err != nil {
		t.Fatalf("save: %v", err)
	}
	const newer = "2026-08-21T08:00:00.000000000Z"
	if err := w.Save(newer); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := w.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != newer {
		t.Fatalf("got %q, want %q", got, newer)
	}
}
