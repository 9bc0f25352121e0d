// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

type historyStore interface {
	Store
	HistoryStore
}

func openStores(t *testing.T) map[string]historyStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "emark.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return map[string]historyStore{"memory": NewMemory(), "sqlite": s}
}

func TestStorePutGet(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get("lib"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			lib, changed, err := s.Put("lib", "[-var a|1;]")
			if err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if !changed || lib.Version != 1 || lib.Digest != Digest("[-var a|1;]") {
				t.Errorf("unexpected first put: %+v changed=%v", lib, changed)
			}

			got, err := s.Get("lib")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Source != "[-var a|1;]" || got.Version != 1 {
				t.Errorf("Get = %+v", got)
			}

			if err := s.Delete("lib"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := s.Get("lib"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStoreVersioning(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			s.Put("X", "first")
			s.Put("X", "second")

			// Same source is a no-op
			lib, changed, err := s.Put("X", "second")
			if err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if changed || lib.Version != 2 {
				t.Errorf("expected unchanged v2, got v%d changed=%v", lib.Version, changed)
			}

			entries, err := s.History("X", 0)
			if err != nil {
				t.Fatalf("History failed: %v", err)
			}
			if len(entries) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(entries))
			}
			if entries[0].Version != 2 || entries[0].Source != "second" {
				t.Errorf("entry[0]: expected v2 'second', got v%d '%s'", entries[0].Version, entries[0].Source)
			}
			if entries[1].Version != 1 || entries[1].Source != "first" {
				t.Errorf("entry[1]: expected v1 'first', got v%d '%s'", entries[1].Version, entries[1].Source)
			}
			if entries[0].Ts.IsZero() {
				t.Error("expected a timestamp")
			}

			entries, _ = s.History("X", 1)
			if len(entries) != 1 || entries[0].Version != 2 {
				t.Errorf("expected only v2 with limit, got %+v", entries)
			}

			entries, _ = s.History("nope", 0)
			if entries != nil {
				t.Errorf("expected nil for nonexistent, got %v", entries)
			}

			s.Delete("X")
			entries, _ = s.History("X", 0)
			if len(entries) != 0 {
				t.Errorf("expected 0 after delete, got %d", len(entries))
			}

			// Versions restart after delete
			lib, _, _ = s.Put("X", "third")
			if lib.Version != 1 {
				t.Errorf("expected v1 after delete, got v%d", lib.Version)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			s.Put("b", "2")
			s.Put("a", "1")
			libs, err := s.List()
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(libs) != 2 || libs[0].Name != "a" || libs[1].Name != "b" {
				t.Errorf("expected [a b], got %+v", libs)
			}
		})
	}
}

func TestSQLitePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emark.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	s.Put("lib", "world")
	s.Close()

	s2, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("Failed to reopen SQLite store: %v", err)
	}
	defer s2.Close()

	got, err := s2.Get("lib")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.Source != "world" {
		t.Errorf("expected 'world' after reopen, got '%s'", got.Source)
	}
	if v, _ := s2.GetMetadata("schema_version"); v != SchemaVersion {
		t.Errorf("schema_version = %q", v)
	}
}

func TestSQLiteRejectsUnknownSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emark.db")
	db, err := sql.Open(driverName, path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	_, err = db.Exec(`
		CREATE TABLE metadata (key TEXT PRIMARY KEY, value TEXT NOT NULL);
		INSERT INTO metadata (key, value) VALUES ('schema_version', '99');
	`)
	db.Close()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if _, err := NewSQLite(path); err == nil {
		t.Error("expected an error for an unsupported schema")
	}
}

func TestDigest(t *testing.T) {
	a, b := Digest("x"), Digest("y")
	if len(a) != 64 || a == b || a != Digest("x") {
		t.Errorf("unexpected digests %s %s", a, b)
	}
}
