package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store implementation, sufficient for local
// development and unit tests. Records are copied on the way in and out so
// callers never share memory with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Create(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.SessionID]; exists {
		return ErrDuplicateSession
	}
	s.records[record.SessionID] = copyRecord(record)
	return nil
}

func (s *MemoryStore) Read(_ context.Context, sessionID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[sessionID]
	if !exists {
		return nil, ErrNotFound
	}
	out := copyRecord(&record)
	return &out, nil
}

func (s *MemoryStore) Update(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.SessionID]; !exists {
		return ErrNotFound
	}
	s.records[record.SessionID] = copyRecord(record)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, sessionID)
	return nil
}

func (s *MemoryStore) Healthcheck(_ context.Context) error {
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func copyRecord(record *Record) Record {
	out := *record
	out.History = make([]Turn, len(record.History))
	copy(out.History, record.History)
	out.Context = make(map[string]any, len(record.Context))
	for k, v := range record.Context {
		out.Context[k] = v
	}
	return out
}
