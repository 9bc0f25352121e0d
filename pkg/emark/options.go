// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package emark

import (
	"log/slog"

	"nickandperla.net/emark/internal/store"
)

// Option configures a Runtime.
type Option func(*Runtime)

// Store interface for custom stores.
type Store = store.Store

// WithStore uses a custom library store.
func WithStore(s Store) Option {
	return func(r *Runtime) {
		r.store = s
	}
}

// WithSQLiteStore configures SQLite persistence at the given path. An
// error opening it is reported by Err and the runtime falls back to
// memory.
func WithSQLiteStore(path string) Option {
	return func(r *Runtime) {
		s, err := store.NewSQLite(path)
		if err != nil {
			r.err = err
			return
		}
		r.store = s
	}
}

// WithMemoryStore configures an in-memory store.
func WithMemoryStore() Option {
	return func(r *Runtime) {
		r.store = store.NewMemory()
	}
}

// WithPrelude sets a custom prelude source to be loaded on startup.
// A stored library named PreludeName still takes precedence.
func WithPrelude(source string) Option {
	return func(r *Runtime) {
		r.prelude = source
	}
}

// WithNoStdlib disables loading the prelude.
func WithNoStdlib() Option {
	return func(r *Runtime) {
		r.noStdlib = true
	}
}

// WithReparseDepthLimit bounds nested expansion.
func WithReparseDepthLimit(n int) Option {
	return func(r *Runtime) {
		r.depthLimit = n
	}
}

// WithArgumentSeparator replaces the "|" argument separator.
func WithArgumentSeparator(sep string) Option {
	return func(r *Runtime) {
		r.separator = sep
	}
}

// WithLibraries preloads stored libraries, in order, after the prelude.
func WithLibraries(names ...string) Option {
	return func(r *Runtime) {
		r.libraries = append(r.libraries, names...)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}
