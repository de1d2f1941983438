package main

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// DB holds account and stats persistence. It shares the SQLite file
// with the SharedStore but owns its own tables.
type DB struct {
	conn *sql.DB
}

// PlayerRow is an account record
type PlayerRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// StatsRow is the persisted per-account stats
type StatsRow struct {
	PlayerID  int64
	Games     int
	Eaten     int
	BestScore int
}

// OpenDB opens (or creates) the accounts database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, err
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stats (
		player_id INTEGER PRIMARY KEY REFERENCES players(id),
		games INTEGER NOT NULL DEFAULT 0,
		eaten INTEGER NOT NULL DEFAULT 0,
		best_score INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		player_id INTEGER NOT NULL DEFAULT 0,
		room_id TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_players_username ON players(username);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreatePlayer creates an account and its stats row, returning the id
func (db *DB) CreatePlayer(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO players (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	_, err = db.conn.Exec("INSERT INTO stats (player_id) VALUES (?)", id)
	return id, err
}

// GetPlayerByUsername returns an account, or nil if absent
func (db *DB) GetPlayerByUsername(username string) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM players WHERE username = ?",
		username,
	)
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// GetPlayerByID returns an account, or nil if absent
func (db *DB) GetPlayerByID(id int64) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM players WHERE id = ?",
		id,
	)
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// GetStats returns the stats row for an account, or nil if absent
func (db *DB) GetStats(playerID int64) (*StatsRow, error) {
	row := db.conn.QueryRow(
		"SELECT player_id, games, eaten, best_score FROM stats WHERE player_id = ?",
		playerID,
	)
	s := &StatsRow{}
	err := row.Scan(&s.PlayerID, &s.Games, &s.Eaten, &s.BestScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// RecordSession folds one finished play session into the stats row
func (db *DB) RecordSession(playerID int64, eaten, score int) error {
	_, err := db.conn.Exec(`
		UPDATE stats SET
			games = games + 1,
			eaten = eaten + ?,
			best_score = MAX(best_score, ?)
		WHERE player_id = ?`,
		eaten, score, playerID,
	)
	return err
}

// GetSetting returns a settings value, or "" if absent
func (db *DB) GetSetting(key string) string {
	row := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key)
	var value string
	if err := row.Scan(&value); err != nil {
		return ""
	}
	return value
}

// SetSetting upserts a settings value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// InsertEvents writes a batch of analytics events in one transaction
func (db *DB) InsertEvents(events []AnalyticsEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		"INSERT INTO events (type, player_id, room_id, data, created_at) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(e.Type, e.PlayerID, e.RoomID, e.Data, e.Timestamp.Unix()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
