package cache

import (
	"sync"
	"time"
)

// MemoryStore keeps cache entries in a map for the lifetime of the process
type MemoryStore struct {
	data  map[string]*Entry
	mutex sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*Entry),
	}
}

// Load returns the entry for key if one was saved
func (s *MemoryStore) Load(key string) (*Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, exists := s.data[key]
	if !exists {
		return nil, nil
	}

	return entry, nil
}

// Save stores the entry, replacing any previous entry for the same key
func (s *MemoryStore) Save(entry *Entry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data[entry.Key] = entry
	return nil
}

// Stats returns entry counts
func (s *MemoryStore) Stats(expiredBefore time.Time) (Stats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := Stats{TotalEntries: len(s.data)}
	for _, entry := range s.data {
		if !entry.StoredAt.After(expiredBefore) {
			stats.ExpiredEntries++
		}
	}
	stats.ValidEntries = stats.TotalEntries - stats.ExpiredEntries

	return stats, nil
}

// Close drops all entries
func (s *MemoryStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data = make(map[string]*Entry)
	return nil
}
