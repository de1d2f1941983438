package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SharedStore is the cross-process key-value store backing the room
// directory. Values are opaque serialized blobs; ttl 0 means no expiry.
// Multiple worker processes write concurrently, so the database runs in
// WAL mode with a busy timeout and the room index is maintained with
// single-statement set-membership operations instead of read-modify-write.
type SharedStore struct {
	conn *sql.DB
}

// OpenSharedStore opens (or creates) the shared SQLite database
func OpenSharedStore(path string) (*SharedStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, err
		}
	}

	s := &SharedStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection
func (s *SharedStore) Close() error {
	return s.conn.Close()
}

func (s *SharedStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expire_at INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER DEFAULT (strftime('%s', 'now'))
	);
	CREATE INDEX IF NOT EXISTS idx_cache_expire ON cache(expire_at);

	CREATE TABLE IF NOT EXISTS room_index (
		room_id TEXT PRIMARY KEY,
		created_at INTEGER DEFAULT (strftime('%s', 'now'))
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Set stores a value with the given ttl. ttl 0 means no expiry.
func (s *SharedStore) Set(key string, value []byte, ttl time.Duration) error {
	var expireAt int64
	if ttl > 0 {
		expireAt = time.Now().Add(ttl).Unix()
	}
	_, err := s.conn.Exec(
		"INSERT OR REPLACE INTO cache (key, value, expire_at) VALUES (?, ?, ?)",
		key, value, expireAt,
	)
	return err
}

// Get returns the stored value, or ok=false if absent or expired
func (s *SharedStore) Get(key string) ([]byte, bool) {
	row := s.conn.QueryRow(
		"SELECT value FROM cache WHERE key = ? AND (expire_at = 0 OR expire_at > ?)",
		key, time.Now().Unix(),
	)
	var value []byte
	if err := row.Scan(&value); err != nil {
		return nil, false
	}
	return value, true
}

// Has reports whether a live value exists for the key
func (s *SharedStore) Has(key string) bool {
	row := s.conn.QueryRow(
		"SELECT 1 FROM cache WHERE key = ? AND (expire_at = 0 OR expire_at > ?) LIMIT 1",
		key, time.Now().Unix(),
	)
	var one int
	return row.Scan(&one) == nil
}

// Delete removes a key
func (s *SharedStore) Delete(key string) error {
	_, err := s.conn.Exec("DELETE FROM cache WHERE key = ?", key)
	return err
}

// AddRoomToIndex adds a room id to the shared ordered index.
// INSERT OR IGNORE makes the operation idempotent and atomic with
// respect to concurrent registrations from other processes.
func (s *SharedStore) AddRoomToIndex(roomID string) error {
	_, err := s.conn.Exec("INSERT OR IGNORE INTO room_index (room_id) VALUES (?)", roomID)
	return err
}

// RemoveRoomFromIndex removes a room id from the shared index
func (s *SharedStore) RemoveRoomFromIndex(roomID string) error {
	_, err := s.conn.Exec("DELETE FROM room_index WHERE room_id = ?", roomID)
	return err
}

// ListRoomIndex returns every room id in the shared index
func (s *SharedStore) ListRoomIndex() ([]string, error) {
	rows, err := s.conn.Query("SELECT room_id FROM room_index ORDER BY room_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CleanExpired removes expired cache rows
func (s *SharedStore) CleanExpired() {
	s.conn.Exec("DELETE FROM cache WHERE expire_at > 0 AND expire_at <= ?", time.Now().Unix())
}
