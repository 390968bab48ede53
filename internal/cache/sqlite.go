package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps cache entries in an in-memory SQLite database. The
// database lives only as long as the store is open; nothing is written to disk.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a private in-memory database. An empty name gets a
// random one so that independent stores never share tables.
func NewSQLiteStore(name string) (*SQLiteStore, error) {
	if name == "" {
		name = uuid.NewString()
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// A memory database disappears with its last connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	store := &SQLiteStore{db: db}

	if err := store.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return store, nil
}

// initializeSchema creates the cache table if it doesn't exist
func (s *SQLiteStore) initializeSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		stored_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stored_at ON cache_entries(stored_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// Load returns the entry for key if one was saved
func (s *SQLiteStore) Load(key string) (*Entry, error) {
	query := `SELECT key, value, stored_at FROM cache_entries WHERE key = ?`

	var entry Entry
	var storedAt int64
	err := s.db.QueryRow(query, key).Scan(&entry.Key, &entry.Value, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entry %q: %w", key, err)
	}

	entry.StoredAt = time.Unix(0, storedAt)
	return &entry, nil
}

// Save stores the entry, replacing any previous entry for the same key
func (s *SQLiteStore) Save(entry *Entry) error {
	query := `
	INSERT OR REPLACE INTO cache_entries (key, value, stored_at)
	VALUES (?, ?, ?)
	`

	_, err := s.db.Exec(query, entry.Key, entry.Value, entry.StoredAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save cache entry %q: %w", entry.Key, err)
	}

	return nil
}

// Stats returns entry counts
func (s *SQLiteStore) Stats(expiredBefore time.Time) (Stats, error) {
	var stats Stats

	err := s.db.QueryRow("SELECT COUNT(*) FROM cache_entries").Scan(&stats.TotalEntries)
	if err != nil {
		return stats, fmt.Errorf("failed to get total entries: %w", err)
	}

	err = s.db.QueryRow("SELECT COUNT(*) FROM cache_entries WHERE stored_at <= ?", expiredBefore.UnixNano()).Scan(&stats.ExpiredEntries)
	if err != nil {
		return stats, fmt.Errorf("failed to get expired entries: %w", err)
	}
	stats.ValidEntries = stats.TotalEntries - stats.ExpiredEntries

	return stats, nil
}

// Close closes the database, discarding its content
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
