package storage

import (
	"errors"
	"strings"
	"time"

	logx "stockmon/pkg/logx"
)

// Store is the persistence API used by the monitor.
//
// The polling loop is the only writer, so drivers need no internal ordering
// guarantees beyond surviving a crash mid-write (file driver writes to a
// temp file and renames).
type Store interface {
	// GetState returns the last stock level recorded for a product.
	// ok is false if the product has never been observed.
	GetState(productID string) (stock int, ok bool)
	// SetState records the most recent successfully completed poll.
	SetState(productID string, stock int) error

	// GetSuppressed returns when the given key last produced a delivered
	// notification. ok is false if it never has.
	GetSuppressed(key string) (time.Time, bool)
	// MarkNotified records a confirmed delivery for the key.
	MarkNotified(key string, at time.Time) error

	// AppendHistory appends a cycle record, evicting the oldest beyond the cap.
	AppendHistory(e HistoryEntry) error
	// History returns the retained entries, oldest first.
	History() []HistoryEntry

	Close() error
}

// Open initializes the configured store. An empty driver selects memory.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "none", "memory":
		return newMemory(), nil
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
