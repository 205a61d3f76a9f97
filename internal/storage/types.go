package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// historyMax bounds the audit history: newest appended, oldest evicted (FIFO).
const historyMax = 50

// Config configures storage.
//
// Driver values:
//   - "memory": in-process maps, reset every start
//   - "file":   JSON snapshot files (write-to-temp-then-rename)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", the memory driver is used.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// HistoryEntry records one completed poll cycle.
// Keep it compact and schema-stable.
type HistoryEntry struct {
	At      time.Time       `json:"timestamp"`
	Results []ProductResult `json:"results"`
}

// ProductResult is one product's outcome within a cycle.
type ProductResult struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	HasStock   bool            `json:"has_stock"`
	TotalStock int             `json:"total_stock"`
	Variants   []VariantResult `json:"models,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type VariantResult struct {
	Model string `json:"model"`
	Color string `json:"color"`
	Stock int    `json:"stock"`
	Price string `json:"price"`
}
