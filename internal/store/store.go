// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package store persists named library sources: markup files whose
// definitions and modules are parsed into a runtime before documents.
package store

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/zeebo/blake3"
)

// ErrNotFound is returned when a library does not exist.
var ErrNotFound = errors.New("library not found")

// Library is one stored library source.
type Library struct {
	Name    string
	Source  string
	Digest  string // hex BLAKE3-256 of Source
	Version int
	Updated time.Time
}

// VersionEntry is a single past version of a library.
type VersionEntry struct {
	Version int
	Digest  string
	Source  string
	Ts      time.Time
}

// Store is the interface for library persistence.
type Store interface {
	// Get retrieves a library by name, or ErrNotFound.
	Get(name string) (*Library, error)
	// Put stores a library. Storing an identical source is a no-op and
	// reports changed=false.
	Put(name, source string) (lib *Library, changed bool, err error)
	// Delete removes a library and its history.
	Delete(name string) error
	// List returns every library sorted by name.
	List() ([]*Library, error)
	// Close releases resources.
	Close() error
}

// HistoryStore extends Store with version history queries.
type HistoryStore interface {
	// History returns versions newest first. limit <= 0 returns all.
	History(name string, limit int) ([]VersionEntry, error)
}

// Digest returns the hex BLAKE3-256 digest of a library source.
func Digest(source string) string {
	sum := blake3.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
