// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"nickandperla.net/emark/internal/config"
	"nickandperla.net/emark/internal/markup"
	"nickandperla.net/emark/pkg/emark"
)

// isolate points the CLI at an empty config in a temp dir.
func isolate(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "emark.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvVar, path)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "emark v"+Version) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestParseTree(t *testing.T) {
	dir := isolate(t, "")
	doc := writeFile(t, dir, "doc.emk", "Hello [/print a|b;]")

	out, _, err := run(t, "", "parse", doc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	for _, want := range []string{"root", "paragraph", "inline print [a|b]", "=>", `text "ab"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseStdinYAML(t *testing.T) {
	isolate(t, "")
	out, _, err := run(t, "[-var x|1;]\n\n[/$ x;]", "parse", "--format", "yaml", "--stripped", "-")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	var outline markup.Outline
	if err := yaml.Unmarshal([]byte(out), &outline); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, out)
	}
	if outline.Type != "root" || len(outline.Children) != 1 {
		t.Fatalf("unexpected outline %+v", outline)
	}
	if got := outline.Children[0].Children[0].Text; got != "1" {
		t.Errorf("expected the variable value, got %q", got)
	}
}

func TestStripText(t *testing.T) {
	dir := isolate(t, "")
	doc := writeFile(t, dir, "doc.emk", "[-var x|1;]\n\nvalue [/$ x;]\n\n> quoted")

	out, stderr, err := run(t, "", "strip", doc)
	if err != nil {
		t.Fatalf("strip failed: %v", err)
	}
	if out != "value 1\n\nquoted\n" {
		t.Errorf("unexpected output %q", out)
	}
	if stderr != "" {
		t.Errorf("unexpected diagnostics %q", stderr)
	}
}

func TestCheck(t *testing.T) {
	dir := isolate(t, "")
	good := writeFile(t, dir, "good.emk", "fine")
	bad := writeFile(t, dir, "bad.emk", "[.nope;]")

	if _, _, err := run(t, "", "check", good); err != nil {
		t.Errorf("check of a clean file failed: %v", err)
	}

	out, _, err := run(t, "", "check", bad)
	var exit *exitError
	if !errors.As(err, &exit) || exit.code != 1 {
		t.Fatalf("expected exit status 1, got %v", err)
	}
	if !strings.Contains(out, `unknown block modifier "nope"`) {
		t.Errorf("unexpected output %q", out)
	}

	out, _, _ = run(t, "", "check", "--format", "json", good, bad)
	var reports []FileReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(reports) != 2 || reports[0].Errors != 0 || reports[1].Errors != 1 {
		t.Fatalf("unexpected reports %+v", reports)
	}
	d := reports[1].Diagnostics[0]
	if d.Line != 1 || d.Column != 1 || d.Severity != "error" {
		t.Errorf("unexpected diagnostic %+v", d)
	}
}

func TestLibCommands(t *testing.T) {
	dir := isolate(t, "")
	db := filepath.Join(dir, "emark.db")
	lib := writeFile(t, dir, "lib.emk", "[-define-inline hi]\nhello")

	out, _, err := run(t, "", "--db", db, "lib", "add", "docs", lib)
	if err != nil {
		t.Fatalf("lib add failed: %v", err)
	}
	if !strings.HasPrefix(out, "docs v1 ") {
		t.Errorf("unexpected add output %q", out)
	}

	out, _, _ = run(t, "", "--db", db, "lib", "list")
	if !strings.Contains(out, "docs") {
		t.Errorf("list missing docs: %q", out)
	}
	out, _, _ = run(t, "", "--db", db, "lib", "show", "docs")
	if out != "[-define-inline hi]\nhello" {
		t.Errorf("unexpected show output %q", out)
	}
	out, _, _ = run(t, "", "--db", db, "lib", "history", "docs")
	if !strings.HasPrefix(out, "v1 ") {
		t.Errorf("unexpected history %q", out)
	}

	// A config preloading the library makes its definitions available.
	cfg := writeFile(t, dir, "preload.toml", "[store]\npath = \""+filepath.ToSlash(db)+"\"\n\n[libraries]\npreload = [\"docs\"]\n")
	doc := writeFile(t, dir, "doc.emk", "[/hi;]")
	out, _, err = run(t, "", "--config", cfg, "strip", doc)
	if err != nil || out != "hello\n" {
		t.Errorf("preloaded strip = %q, %v", out, err)
	}

	if _, _, err := run(t, "", "--db", db, "lib", "rm", "docs"); err != nil {
		t.Fatalf("lib rm failed: %v", err)
	}
	if _, _, err := run(t, "", "--db", db, "lib", "show", "docs"); err == nil {
		t.Error("expected an error showing a removed library")
	}
}

func TestReplBasic(t *testing.T) {
	isolate(t, "")
	out, _, err := run(t, "[-define-inline hi]\\\nhello\n[/hi;] there\n", "repl")
	if err != nil {
		t.Fatalf("repl failed: %v", err)
	}
	if !strings.Contains(out, "hello there\n") {
		t.Errorf("definition did not persist between inputs:\n%s", out)
	}
	if !strings.Contains(out, "... ") {
		t.Errorf("expected a continuation prompt:\n%s", out)
	}
}

func TestReadLineRawAltKeys(t *testing.T) {
	// "a", Alt+/, "b", Left, Backspace, Enter
	in := bytes.NewReader([]byte("a\x1b/b\x1b[D\x7f\r"))
	var out bytes.Buffer
	line, eof := readLineRaw(in, &out)
	if eof {
		t.Fatal("unexpected EOF")
	}
	if line != "a[b" {
		t.Errorf("line = %q, want %q", line, "a[b")
	}
}

func TestWatchReportsOnce(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.emk", "[.nope;]")

	var out bytes.Buffer
	a := &app{out: &out, cfg: config.Default(), runtime: emark.New()}
	defer a.runtime.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.watch(ctx, doc, ""); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "== doc.emk: 1 error(s), 0 warning(s)\n") {
		t.Errorf("unexpected report %q", out.String())
	}
}
