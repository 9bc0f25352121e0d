// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Current schema version
const SchemaVersion = "1"

const driverName = "sqlite"

// SQLite is a SQLite-backed store.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite creates a new SQLite store at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create metadata: %w", err)
	}

	s := &SQLite{db: db}

	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}

	switch version {
	case "":
		if err := s.migrateToV1(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// migrateToV1 creates the library tables.
func (s *SQLite) migrateToV1() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS libraries (
			name TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			digest TEXT NOT NULL,
			version INTEGER NOT NULL,
			updated TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS library_versions (
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			source TEXT NOT NULL,
			digest TEXT NOT NULL,
			ts TEXT NOT NULL,
			PRIMARY KEY (name, version)
		);
	`)
	return err
}

func scanLibrary(row interface{ Scan(...any) error }) (*Library, error) {
	var lib Library
	var updated string
	if err := row.Scan(&lib.Name, &lib.Source, &lib.Digest, &lib.Version, &updated); err != nil {
		return nil, err
	}
	lib.Updated, _ = time.Parse(time.RFC3339Nano, updated)
	return &lib, nil
}

// Get retrieves a library by name.
func (s *SQLite) Get(name string) (*Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lib, err := scanLibrary(s.db.QueryRow(
		"SELECT name, source, digest, version, updated FROM libraries WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return lib, nil
}

// Put stores a library, appending a version when the source changed.
func (s *SQLite) Put(name, source string) (*Library, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	digest := Digest(source)
	old, err := scanLibrary(tx.QueryRow(
		"SELECT name, source, digest, version, updated FROM libraries WHERE name = ?", name))
	switch {
	case err == nil && old.Digest == digest:
		return old, false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, false, fmt.Errorf("put %s: %w", name, err)
	}

	var version int
	if err := tx.QueryRow("SELECT COALESCE(MAX(version), 0) + 1 FROM library_versions WHERE name = ?", name).Scan(&version); err != nil {
		return nil, false, fmt.Errorf("put %s: %w", name, err)
	}
	now := time.Now().UTC()
	ts := now.Format(time.RFC3339Nano)

	_, err = tx.Exec(`
		INSERT INTO libraries (name, source, digest, version, updated) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET source = excluded.source, digest = excluded.digest,
			version = excluded.version, updated = excluded.updated
	`, name, source, digest, version, ts)
	if err != nil {
		return nil, false, fmt.Errorf("put %s: %w", name, err)
	}
	_, err = tx.Exec(`
		INSERT INTO library_versions (name, version, source, digest, ts) VALUES (?, ?, ?, ?, ?)
	`, name, version, source, digest, ts)
	if err != nil {
		return nil, false, fmt.Errorf("put %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	updated, _ := time.Parse(time.RFC3339Nano, ts)
	return &Library{Name: name, Source: source, Digest: digest, Version: version, Updated: updated}, true, nil
}

// Delete removes a library and its history.
func (s *SQLite) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM libraries WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if _, err := s.db.Exec("DELETE FROM library_versions WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// List returns every library sorted by name.
func (s *SQLite) List() ([]*Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT name, source, digest, version, updated FROM libraries ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var libs []*Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, rows.Err()
}

// History returns versions newest first.
func (s *SQLite) History(name string, limit int) ([]VersionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "SELECT version, digest, source, ts FROM library_versions WHERE name = ? ORDER BY version DESC"
	args := []any{name}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []VersionEntry
	for rows.Next() {
		var e VersionEntry
		var ts string
		if err := rows.Scan(&e.Version, &e.Digest, &e.Source, &ts); err != nil {
			return nil, err
		}
		e.Ts, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQLite) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata stores a metadata value by key.
func (s *SQLite) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setMetadataUnlocked(key, value)
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
