// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory store.
type Memory struct {
	mu       sync.RWMutex
	libs     map[string]*Library
	history  map[string][]VersionEntry
	metadata map[string]string
	now      func() time.Time
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		libs:     make(map[string]*Library),
		history:  make(map[string][]VersionEntry),
		metadata: make(map[string]string),
		now:      time.Now,
	}
}

// Get retrieves a library by name.
func (m *Memory) Get(name string) (*Library, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lib, ok := m.libs[name]
	if !ok {
		return nil, ErrNotFound
	}
	c := *lib
	return &c, nil
}

// Put stores a library, appending a version when the source changed.
func (m *Memory) Put(name, source string) (*Library, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	digest := Digest(source)
	if old, ok := m.libs[name]; ok && old.Digest == digest {
		c := *old
		return &c, false, nil
	}

	version := len(m.history[name]) + 1
	lib := &Library{Name: name, Source: source, Digest: digest, Version: version, Updated: m.now().UTC()}
	m.libs[name] = lib
	m.history[name] = append(m.history[name], VersionEntry{Version: version, Digest: digest, Source: source, Ts: lib.Updated})
	c := *lib
	return &c, true, nil
}

// Delete removes a library and its history.
func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.libs, name)
	delete(m.history, name)
	return nil
}

// List returns every library sorted by name.
func (m *Memory) List() ([]*Library, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Library, 0, len(m.libs))
	for _, lib := range m.libs {
		c := *lib
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// History returns versions newest first.
func (m *Memory) History(name string, limit int) ([]VersionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.history[name]
	if len(versions) == 0 {
		return nil, nil
	}
	var out []VersionEntry
	for i := len(versions) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, versions[i])
	}
	return out, nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

// GetMetadata retrieves a metadata value by key.
func (m *Memory) GetMetadata(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[key], nil
}

// SetMetadata stores a metadata value by key.
func (m *Memory) SetMetadata(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
	return nil
}
