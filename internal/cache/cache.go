// Package cache provides a key/value cache whose entries expire a fixed
// interval after they were stored.
package cache

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/logging"
)

// Cache serves values stored less than its expiration interval ago. It never
// fails: store errors are logged and reported as a miss.
type Cache struct {
	store      Store
	expiration time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// Option customises a Cache
type Option func(*Cache)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache over store. An expiration of zero disables caching:
// every Get reports a miss.
func New(store Store, expiration time.Duration, opts ...Option) *Cache {
	if expiration < 0 {
		expiration = 0
	}

	c := &Cache{
		store:      store,
		expiration: expiration,
		now:        time.Now,
		logger:     logging.GetLogger("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewMemory creates a cache backed by a MemoryStore
func NewMemory(expiration time.Duration, opts ...Option) *Cache {
	return New(NewMemoryStore(), expiration, opts...)
}

// Expiration returns the configured expiration interval
func (c *Cache) Expiration() time.Duration {
	return c.expiration
}

// Add stores value under key, stamping the current time. A previous entry
// for key is replaced.
func (c *Cache) Add(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to encode cache value")
		return
	}

	entry := &Entry{
		Key:      key,
		Value:    data,
		StoredAt: c.now(),
	}
	if err := c.store.Save(entry); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to store cache entry")
		return
	}

	c.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("Cache entry stored")
}

// Get decodes the value stored under key into value and reports true, as
// long as the entry is younger than the expiration interval.
func (c *Cache) Get(key string, value interface{}) bool {
	entry, err := c.store.Load(key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to load cache entry")
		return false
	}
	if entry == nil {
		c.logger.Debug().Str("key", key).Msg("Cache miss")
		return false
	}

	if entry.expired(c.expiration, c.now()) {
		c.logger.Debug().Str("key", key).Time("stored_at", entry.StoredAt).Msg("Cache entry expired")
		return false
	}

	if err := json.Unmarshal(entry.Value, value); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to decode cache value")
		return false
	}

	c.logger.Debug().Str("key", key).Msg("Cache hit")
	return true
}

// Stats returns entry counts for the underlying store
func (c *Cache) Stats() (Stats, error) {
	return c.store.Stats(c.now().Add(-c.expiration))
}

// Close releases the underlying store
func (c *Cache) Close() error {
	return c.store.Close()
}
