package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "stockmon/pkg/logx"
)

func openFileStore(t *testing.T, path string) Store {
	t.Helper()
	s, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")

	s := openFileStore(t, path)
	if err := s.SetState("p1", 12); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	at := time.Now().Truncate(time.Millisecond)
	if err := s.MarkNotified("p1|Black", at); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A fresh open must see everything the previous process wrote.
	s = openFileStore(t, path)
	stock, ok := s.GetState("p1")
	if !ok || stock != 12 {
		t.Fatalf("state not persisted: %d, %v", stock, ok)
	}
	got, ok := s.GetSuppressed("p1|Black")
	if !ok || !got.Equal(at) {
		t.Fatalf("suppression not persisted: %v, %v", got, ok)
	}
	if _, ok := s.GetSuppressed("p2"); ok {
		t.Fatalf("unexpected suppression for unseen key")
	}
}

func TestFileStoreHistoryCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")
	s := openFileStore(t, path)

	base := time.Now()
	for i := 0; i < historyMax+7; i++ {
		e := HistoryEntry{
			At:      base.Add(time.Duration(i) * time.Minute),
			Results: []ProductResult{{ID: "p1", TotalStock: i}},
		}
		if err := s.AppendHistory(e); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	h := s.History()
	if len(h) != historyMax {
		t.Fatalf("expected %d entries, got %d", historyMax, len(h))
	}
	// Oldest evicted first: the remaining head is entry number 7.
	if h[0].Results[0].TotalStock != 7 {
		t.Fatalf("expected oldest surviving entry 7, got %d", h[0].Results[0].TotalStock)
	}
	if h[len(h)-1].Results[0].TotalStock != historyMax+6 {
		t.Fatalf("unexpected newest entry: %d", h[len(h)-1].Results[0].TotalStock)
	}
}

func TestFileStoreCorruptFilesStartEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store")
	if err := os.WriteFile(path+".state.json", []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	s := openFileStore(t, path)
	if _, ok := s.GetState("p1"); ok {
		t.Fatalf("corrupt state file must load as empty")
	}
	// And stay usable.
	if err := s.SetState("p1", 3); err != nil {
		t.Fatalf("SetState after corrupt load: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s, err := Open(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.GetState("p"); ok {
		t.Fatalf("fresh store must be empty")
	}
	if err := s.SetState("p", 5); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if v, ok := s.GetState("p"); !ok || v != 5 {
		t.Fatalf("got %d, %v", v, ok)
	}
	// Empty keys are ignored, not stored.
	if err := s.MarkNotified("", time.Now()); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	if _, ok := s.GetSuppressed(""); ok {
		t.Fatalf("empty key must not be suppressed")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
