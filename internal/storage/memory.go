package storage

import (
	"sync"
	"time"
)

// memoryStore keeps everything in-process. Suited to the long-running loop
// modes where one process owns the whole monitoring session.
type memoryStore struct {
	mu          sync.Mutex
	state       map[string]int
	suppression map[string]int64 // unix milli
	history     []HistoryEntry
}

func newMemory() *memoryStore {
	return &memoryStore{
		state:       map[string]int{},
		suppression: map[string]int64{},
	}
}

func (s *memoryStore) GetState(productID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state[productID]
	return v, ok
}

func (s *memoryStore) SetState(productID string, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[productID] = stock
	return nil
}

func (s *memoryStore) GetSuppressed(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.suppression[key]
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (s *memoryStore) MarkNotified(key string, at time.Time) error {
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppression[key] = at.UnixMilli()
	return nil
}

func (s *memoryStore) AppendHistory(e HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, e)
	if len(s.history) > historyMax {
		s.history = s.history[len(s.history)-historyMax:]
	}
	return nil
}

func (s *memoryStore) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryEntry(nil), s.history...)
}

func (s *memoryStore) Close() error { return nil }
