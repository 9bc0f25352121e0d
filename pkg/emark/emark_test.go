// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package emark

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/markup"
	"nickandperla.net/emark/internal/store"
)

func plain(doc *Document) string {
	return markup.PlainText(doc.ToStripped().Root.Content)
}

func TestPreludeLoaded(t *testing.T) {
	r := New(WithMemoryStore())
	defer r.Close()

	if len(r.Messages()) != 0 {
		t.Fatalf("prelude diagnostics: %v", r.Messages())
	}
	doc := r.Parse("doc", "Press [/kbd Ctrl;]")
	if len(doc.Messages) != 0 {
		t.Fatalf("unexpected messages: %v", doc.Messages)
	}
	if got := plain(doc); got != "Press Ctrl" {
		t.Errorf("got %q", got)
	}
}

func TestNoStdlibOption(t *testing.T) {
	r := New(WithMemoryStore(), WithNoStdlib())
	defer r.Close()

	doc := r.Parse("doc", "[/kbd Ctrl;]")
	if got := doc.Messages.Count(diag.UnknownModifier); got != 1 {
		t.Errorf("expected kbd to be unknown without the prelude, got %v", doc.Messages)
	}
	if len(r.Loaded()) != 0 {
		t.Errorf("expected nothing loaded, got %v", r.Loaded())
	}
}

func TestCustomPrelude(t *testing.T) {
	r := New(WithMemoryStore(), WithPrelude("[-var greeting|hi;]"))
	defer r.Close()

	if got := plain(r.Parse("doc", "[/$ greeting;]")); got != "hi" {
		t.Errorf("expected 'hi', got %q", got)
	}
}

func TestDatabasePreludeOverride(t *testing.T) {
	s := store.NewMemory()
	s.Put(PreludeName, "[-var who|db;]")

	r := New(WithStore(s), WithPrelude("[-var who|option;]"))
	defer r.Close()

	if got := plain(r.Parse("doc", "[/$ who;]")); got != "db" {
		t.Errorf("expected the stored prelude to win, got %q", got)
	}
}

func TestDocumentsIsolated(t *testing.T) {
	r := New()
	defer r.Close()

	r.Parse("one", "[-var x|1;]\n\n[-define-block p]\nbody")
	doc := r.Parse("two", "[/$ x;]\n\n[.p;]")
	if doc.Messages.Count(diag.UndefinedVariable) != 1 || doc.Messages.Count(diag.UnknownModifier) != 1 {
		t.Errorf("state leaked between documents: %v", doc.Messages)
	}
}

func TestLibraries(t *testing.T) {
	r := New(WithLibraries("docs"))
	defer r.Close()

	if !errors.Is(r.Err(), store.ErrNotFound) {
		t.Fatalf("expected a missing library error, got %v", r.Err())
	}

	lib, msgs, err := r.AddLibrary("docs", "[-define-inline hi]\nhello")
	if err != nil {
		t.Fatalf("AddLibrary failed: %v", err)
	}
	if len(msgs) != 0 || lib.Version != 1 {
		t.Errorf("unexpected add result %+v %v", lib, msgs)
	}
	if got := plain(r.Parse("doc", "[/hi;]")); got != "hello" {
		t.Errorf("expected the library to be loaded, got %q", got)
	}

	libs, err := r.Libraries()
	if err != nil || len(libs) != 1 || libs[0].Name != "docs" {
		t.Errorf("Libraries = %v, %v", libs, err)
	}

	if err := r.RemoveLibrary("docs"); err != nil {
		t.Fatalf("RemoveLibrary failed: %v", err)
	}
	if doc := r.Parse("doc", "[/hi;]"); doc.Messages.Count(diag.UnknownModifier) != 1 {
		t.Errorf("removed library still active: %v", doc.Messages)
	}
	if err := r.RemoveLibrary("docs"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddLibraryReportsDiagnostics(t *testing.T) {
	r := New()
	defer r.Close()

	_, msgs, err := r.AddLibrary("broken", "[.nope;]")
	if err != nil {
		t.Fatalf("AddLibrary failed: %v", err)
	}
	if msgs.Count(diag.UnknownModifier) != 1 {
		t.Errorf("expected the unknown modifier to be reported, got %v", msgs)
	}
}

func TestReload(t *testing.T) {
	s := store.NewMemory()
	s.Put("vars", "[-var v|1;]")
	r := New(WithStore(s), WithLibraries("vars"))
	defer r.Close()

	if changed, err := r.Reload(); err != nil || changed {
		t.Fatalf("Reload without changes = %v, %v", changed, err)
	}

	s.Put("vars", "[-var v|2;]")
	changed, err := r.Reload()
	if err != nil || !changed {
		t.Fatalf("Reload after a change = %v, %v", changed, err)
	}
	if got := plain(r.Parse("doc", "[/$ v;]")); got != "2" {
		t.Errorf("expected the new value, got %q", got)
	}
}

func TestInspect(t *testing.T) {
	r := New()
	defer r.Close()

	text := "[-var x|1;]\n\nafter"
	cxt := r.Inspect("doc", text, strings.Index(text, "after"))
	if cxt == nil || cxt.Variables["x"] != "1" {
		t.Fatalf("expected x to be visible, got %v", cxt)
	}
	cxt = r.Inspect("doc", text, 0)
	if _, ok := cxt.Variables["x"]; ok {
		t.Error("x should not be visible at the start")
	}
}

func TestParseFileAndOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.emk")
	if err := os.WriteFile(path, []byte("[/print a,b;]"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(WithArgumentSeparator(","), WithNoStdlib())
	defer r.Close()

	doc, err := r.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if got := plain(doc); got != "ab" {
		t.Errorf("expected 'ab', got %q (%v)", got, doc.Messages)
	}

	if _, err := r.ParseFile(filepath.Join(t.TempDir(), "missing.emk")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestSQLiteStoreOption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emark.db")
	r := New(WithSQLiteStore(path))
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}
	r.AddLibrary("a", "[-var a|1;]")
	r.AddLibrary("a", "[-var a|2;]")
	entries, err := r.History("a", 0)
	if err != nil || len(entries) != 2 {
		t.Errorf("History = %v, %v", entries, err)
	}
	r.Close()

	r = New(WithSQLiteStore(path), WithLibraries("a"))
	defer r.Close()
	if got := plain(r.Parse("doc", "[/$ a;]")); got != "2" {
		t.Errorf("expected the persisted library, got %q", got)
	}
}

func TestSessionKeepsDefinitions(t *testing.T) {
	r := New()
	defer r.Close()

	s := r.NewSession()
	s.Parse("[-define-inline hi]\nhello")
	doc := s.Parse("[/hi;]")
	if len(doc.Messages) != 0 {
		t.Fatalf("unexpected messages: %v", doc.Messages)
	}
	if got := plain(doc); got != "hello" {
		t.Errorf("expected the session definition, got %q", got)
	}

	if doc := r.Parse("doc", "[/hi;]"); doc.Messages.Count(diag.UnknownModifier) != 1 {
		t.Errorf("session definitions leaked into the runtime: %v", doc.Messages)
	}
}
