//go:build sqlite
// +build sqlite

package storage

import (
	"path/filepath"
	"testing"
	"time"

	logx "stockmon/pkg/logx"
)

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockmon.db")
	s, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, ok := s.GetState("p1"); ok {
		t.Fatalf("fresh db must be empty")
	}
	if err := s.SetState("p1", 4); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if err := s.SetState("p1", 9); err != nil {
		t.Fatalf("SetState upsert: %v", err)
	}
	if v, ok := s.GetState("p1"); !ok || v != 9 {
		t.Fatalf("got %d, %v", v, ok)
	}

	at := time.Now().Truncate(time.Millisecond)
	if err := s.MarkNotified("p1|Black", at); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	if got, ok := s.GetSuppressed("p1|Black"); !ok || !got.Equal(at) {
		t.Fatalf("suppression mismatch: %v, %v", got, ok)
	}
}

func TestSQLiteHistoryCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockmon.db")
	s, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	base := time.Now()
	for i := 0; i < historyMax+3; i++ {
		e := HistoryEntry{
			At:      base.Add(time.Duration(i) * time.Minute),
			Results: []ProductResult{{ID: "p", TotalStock: i}},
		}
		if err := s.AppendHistory(e); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	h := s.History()
	if len(h) != historyMax {
		t.Fatalf("expected %d entries, got %d", historyMax, len(h))
	}
	if h[0].Results[0].TotalStock != 3 {
		t.Fatalf("expected oldest surviving entry 3, got %d", h[0].Results[0].TotalStock)
	}
}
