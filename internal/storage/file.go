package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "stockmon/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.state.json       (product id -> last known stock)
//   - <prefix>.suppression.json (key -> last notified, unix milli)
//   - <prefix>.history.json     (cycle records, capped, oldest first)
//
// Every write replaces the whole file via temp-file-then-rename so a crash
// mid-write leaves the previous snapshot intact. Unreadable or corrupt files
// load as empty; this fallback is intentional (a lost cooldown map means at
// worst one duplicate alert, never a crash).
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	statePath       string
	suppressionPath string
	historyPath     string

	state       map[string]int
	suppression map[string]int64 // unix milli
	history     []HistoryEntry
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{
		log:             log,
		statePath:       prefix + ".state.json",
		suppressionPath: prefix + ".suppression.json",
		historyPath:     prefix + ".history.json",
		state:           map[string]int{},
		suppression:     map[string]int64{},
	}

	if err := loadJSON(s.statePath, &s.state); err != nil {
		log.Warn("state file unreadable; starting empty", logx.String("path", s.statePath), logx.Err(err))
		s.state = map[string]int{}
	}
	if err := loadJSON(s.suppressionPath, &s.suppression); err != nil {
		log.Warn("suppression file unreadable; starting empty", logx.String("path", s.suppressionPath), logx.Err(err))
		s.suppression = map[string]int64{}
	}
	if err := loadJSON(s.historyPath, &s.history); err != nil {
		log.Warn("history file unreadable; starting empty", logx.String("path", s.historyPath), logx.Err(err))
		s.history = nil
	}
	if len(s.history) > historyMax {
		s.history = s.history[len(s.history)-historyMax:]
	}

	return s, nil
}

func (s *fileStore) GetState(productID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state[productID]
	return v, ok
}

func (s *fileStore) SetState(productID string, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[productID] = stock
	return writeJSONAtomic(s.statePath, s.state)
}

func (s *fileStore) GetSuppressed(key string) (time.Time, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return time.Time{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.suppression[key]
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (s *fileStore) MarkNotified(key string, at time.Time) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppression[key] = at.UnixMilli()
	return writeJSONAtomic(s.suppressionPath, s.suppression)
}

func (s *fileStore) AppendHistory(e HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, e)
	if len(s.history) > historyMax {
		s.history = s.history[len(s.history)-historyMax:]
	}
	return writeJSONAtomic(s.historyPath, s.history)
}

func (s *fileStore) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryEntry(nil), s.history...)
}

func (s *fileStore) Close() error { return nil }

func loadJSON(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

func writeJSONAtomic(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
