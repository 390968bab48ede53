package cache

import (
	"time"
)

// Store defines the storage backend behind a Cache. Stores keep every entry
// they are given; expiry is decided by the Cache at read time.
type Store interface {
	// Load returns the entry stored under key, or nil when there is none
	Load(key string) (*Entry, error)

	// Save inserts or replaces the entry for entry.Key
	Save(entry *Entry) error

	// Stats counts stored entries, treating those stored at or before
	// expiredBefore as expired
	Stats(expiredBefore time.Time) (Stats, error)

	// Close releases any resources held by the store
	Close() error
}

// Entry is a single cached value with the time it was stored
type Entry struct {
	Key      string    `json:"key"`
	Value    []byte    `json:"value"` // JSON-encoded value
	StoredAt time.Time `json:"stored_at"`
}

// Stats summarises the content of a store
type Stats struct {
	TotalEntries   int
	ExpiredEntries int
	ValidEntries   int
}

// expired reports whether the entry is too old to be served. An interval of
// zero expires every entry immediately.
func (e *Entry) expired(interval time.Duration, now time.Time) bool {
	return now.Sub(e.StoredAt) >= interval
}
