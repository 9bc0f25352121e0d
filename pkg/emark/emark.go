// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package emark provides the public API for parsing emark documents.
package emark

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"nickandperla.net/emark/internal/builtin"
	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/logging"
	"nickandperla.net/emark/internal/markup"
	"nickandperla.net/emark/internal/source"
	"nickandperla.net/emark/internal/stdlib"
	"nickandperla.net/emark/internal/store"
)

// PreludeName is the stored library name that overrides the prelude.
const PreludeName = stdlib.Name

// Document is a parsed document.
type Document = markup.Document

// Library is a stored library source.
type Library = store.Library

// Loaded describes one prelude or library parsed into the base context.
type Loaded struct {
	Name     string
	Digest   string
	Messages diag.List
}

// Runtime parses documents against a base context built from the
// prelude and the preloaded libraries. It is safe for concurrent use.
type Runtime struct {
	mu       sync.RWMutex
	base     *markup.Context
	loaded   []Loaded
	store    store.Store
	err      error
	logger   *slog.Logger
	prelude  string
	noStdlib bool

	depthLimit int
	separator  string
	libraries  []string
}

// New creates a runtime with the given options and builds its base context.
func New(opts ...Option) *Runtime {
	r := &Runtime{}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = store.NewMemory()
	}
	if r.logger == nil {
		r.logger = logging.GetLogger()
	}
	if err := r.rebuild(); err != nil && r.err == nil {
		r.err = err
	}
	return r
}

// Err returns the first error met while configuring the runtime: an
// unopenable store or a missing preloaded library.
func (r *Runtime) Err() error {
	return r.err
}

// rebuild parses the prelude and the preloaded libraries into a fresh
// base context.
func (r *Runtime) rebuild() error {
	cfg := builtin.DefaultConfiguration()
	if r.depthLimit > 0 {
		cfg.ReparseDepthLimit = r.depthLimit
	}
	if r.separator != "" {
		cfg.ArgumentSeparator = r.separator
	}
	cxt := markup.NewContext(cfg)

	var loaded []Loaded
	load := func(name, text string) {
		doc := markup.Parse(source.New(name, text), cxt)
		l := Loaded{Name: name, Digest: store.Digest(text), Messages: doc.Messages}
		logging.LibraryLoaded(r.logger, l.Name, l.Digest, len(l.Messages))
		loaded = append(loaded, l)
	}

	var errs []error
	if !r.noStdlib {
		text := r.prelude
		if text == "" {
			text = stdlib.Prelude
		}
		if lib, err := r.store.Get(PreludeName); err == nil {
			text = lib.Source
		} else if !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, fmt.Errorf("load prelude: %w", err))
		}
		load(PreludeName, text)
	}
	for _, name := range r.libraries {
		lib, err := r.store.Get(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("load library %s: %w", name, err))
			continue
		}
		load(name, lib.Source)
	}

	r.mu.Lock()
	r.base, r.loaded = cxt, loaded
	r.mu.Unlock()
	return errors.Join(errs...)
}

// Loaded returns the prelude and libraries the base context was built from.
func (r *Runtime) Loaded() []Loaded {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Loaded(nil), r.loaded...)
}

// Messages returns the diagnostics of the prelude and libraries.
func (r *Runtime) Messages() diag.List {
	var out diag.List
	for _, l := range r.Loaded() {
		out = append(out, l.Messages...)
	}
	return out
}

// Reload rebuilds the base context when a loaded source changed in the
// store. It reports whether a rebuild happened.
func (r *Runtime) Reload() (bool, error) {
	current := make(map[string]string)
	for _, l := range r.Loaded() {
		current[l.Name] = l.Digest
	}

	changed := false
	names := append([]string(nil), r.libraries...)
	if !r.noStdlib {
		names = append(names, PreludeName)
	}
	for _, name := range names {
		lib, err := r.store.Get(name)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// A removed prelude override falls back to the embedded one.
			if name == PreludeName && current[name] != store.Digest(r.defaultPrelude()) {
				changed = true
			}
		case err != nil:
			return false, err
		case lib.Digest != current[name]:
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	return true, r.rebuild()
}

func (r *Runtime) defaultPrelude() string {
	if r.prelude != "" {
		return r.prelude
	}
	return stdlib.Prelude
}

// context returns an isolated copy of the base context.
func (r *Runtime) context() *markup.Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.base.Clone()
}

// Parse parses text against a copy of the base context.
func (r *Runtime) Parse(name, text string) *Document {
	start := time.Now()
	doc := markup.Parse(source.New(name, text), r.context())
	logging.DocumentParsed(r.logger, name, len(text), len(doc.Messages), time.Since(start))
	return doc
}

// ParseReader parses a document read from reader.
func (r *Runtime) ParseReader(name string, reader io.Reader) (*Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return r.Parse(name, string(data)), nil
}

// ParseFile parses a document file.
func (r *Runtime) ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.Parse(path, string(data)), nil
}

// Inspect parses text and returns a snapshot of the context as it was when
// the parser reached offset. Offsets past the end see the final context.
func (r *Runtime) Inspect(name, text string, offset int) *markup.Context {
	var seen *markup.Context
	markup.Parse(source.New(name, text), r.context(), markup.Inspector{
		Offset:  offset,
		Inspect: func(cxt *markup.Context) { seen = cxt },
	})
	return seen
}

// Session parses a sequence of inputs against one shared context, so
// definitions made by one input are visible to the next.
type Session struct {
	r     *Runtime
	cxt   *markup.Context
	count int
}

// NewSession starts a session from a copy of the base context.
func (r *Runtime) NewSession() *Session {
	return &Session{r: r, cxt: r.context()}
}

// Parse parses the next input of the session.
func (s *Session) Parse(text string) *Document {
	s.count++
	name := fmt.Sprintf("<input %d>", s.count)
	start := time.Now()
	doc := markup.Parse(source.New(name, text), s.cxt)
	logging.DocumentParsed(s.r.logger, name, len(text), len(doc.Messages), time.Since(start))
	return doc
}

// AddLibrary stores a library source and returns the diagnostics of parsing
// it on top of the current base context. A preloaded library that changed
// is reloaded.
func (r *Runtime) AddLibrary(name, text string) (*Library, diag.List, error) {
	doc := markup.Parse(source.New(name, text), r.context())
	lib, changed, err := r.store.Put(name, text)
	if err != nil {
		return nil, doc.Messages, err
	}
	if changed && r.isLoaded(name) {
		if err := r.rebuild(); err != nil {
			return lib, doc.Messages, err
		}
	}
	return lib, doc.Messages, nil
}

// RemoveLibrary deletes a stored library.
func (r *Runtime) RemoveLibrary(name string) error {
	if _, err := r.store.Get(name); err != nil {
		return err
	}
	if err := r.store.Delete(name); err != nil {
		return err
	}
	if r.isLoaded(name) {
		// The removed library itself is now missing.
		if err := r.rebuild(); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}

// Library returns a stored library.
func (r *Runtime) Library(name string) (*Library, error) {
	return r.store.Get(name)
}

// Libraries lists the stored libraries.
func (r *Runtime) Libraries() ([]*Library, error) {
	return r.store.List()
}

// History returns the stored versions of a library, newest first. It
// returns nil when the store keeps no history.
func (r *Runtime) History(name string, limit int) ([]store.VersionEntry, error) {
	if h, ok := r.store.(store.HistoryStore); ok {
		return h.History(name, limit)
	}
	return nil, nil
}

// isLoaded reports whether name is part of the base context.
func (r *Runtime) isLoaded(name string) bool {
	if name == PreludeName {
		return !r.noStdlib
	}
	for _, l := range r.libraries {
		if l == name {
			return true
		}
	}
	return false
}

// Close releases resources.
func (r *Runtime) Close() error {
	return r.store.Close()
}
