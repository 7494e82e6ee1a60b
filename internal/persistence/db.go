// Package persistence saves and restores the whole game state as one
// versioned document in a key-value store.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a single SQLite table.
type SQLiteStore struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; the simulation saves at explicit boundaries only.
	conn.SetMaxOpenConns(1)

	db := &SQLiteStore{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *SQLiteStore) Close() error {
	return db.conn.Close()
}

func (db *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		key TEXT PRIMARY KEY,
		codec TEXT NOT NULL,
		checksum TEXT NOT NULL,
		data BLOB NOT NULL,
		saved_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS save_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL,
		checksum TEXT NOT NULL,
		size INTEGER NOT NULL,
		saved_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_save_history_key ON save_history(key);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Get returns the record stored under key.
func (db *SQLiteStore) Get(key string) (Record, error) {
	var rec Record
	err := db.conn.Get(&rec, "SELECT data, codec, checksum, saved_at FROM saves WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %q: %w", key, err)
	}
	return rec, nil
}

// Put replaces the record under key and appends a history row.
func (db *SQLiteStore) Put(key string, rec Record) error {
	if rec.SavedAt == 0 {
		rec.SavedAt = time.Now().UnixMilli()
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO saves (key, codec, checksum, data, saved_at) VALUES (?, ?, ?, ?, ?)",
		key, rec.Codec, rec.Checksum, rec.Data, rec.SavedAt,
	); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	if _, err := tx.Exec(
		"INSERT INTO save_history (key, checksum, size, saved_at) VALUES (?, ?, ?, ?)",
		key, rec.Checksum, len(rec.Data), rec.SavedAt,
	); err != nil {
		return fmt.Errorf("history %q: %w", key, err)
	}

	return tx.Commit()
}

// HistoryEntry is one past save of a key.
type HistoryEntry struct {
	Checksum string `db:"checksum" json:"checksum"`
	Size     int    `db:"size" json:"size"`
	SavedAt  int64  `db:"saved_at" json:"saved_at"`
}

// History returns the most recent saves of key, newest first.
func (db *SQLiteStore) History(key string, limit int) ([]HistoryEntry, error) {
	var out []HistoryEntry
	err := db.conn.Select(&out,
		"SELECT checksum, size, saved_at FROM save_history WHERE key = ? ORDER BY id DESC LIMIT ?",
		key, limit,
	)
	return out, err
}
