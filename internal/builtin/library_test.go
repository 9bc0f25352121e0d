// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package builtin

import (
	"testing"

	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/markup"
)

func TestHeadingNumbers(t *testing.T) {
	doc := parseDoc(t, "# One\n\n## A\n\n## B\n\n# Two\n\n### Deep")
	expectClean(t, doc)

	want := []struct {
		label string
		text  string
		level int
	}{
		{"1", "One", 1},
		{"1.1", "A", 2},
		{"1.2", "B", 2},
		{"2", "Two", 1},
		{"2.0.1", "Deep", 3},
	}
	got := Headings(doc.Context)
	if len(got) != len(want) {
		t.Fatalf("expected %d headings, got %d", len(want), len(got))
	}
	for i, w := range want {
		h := got[i]
		if h.Label() != w.label || h.Text != w.text || h.Level != w.level {
			t.Errorf("heading %d = %s %q level %d, want %s %q level %d",
				i, h.Label(), h.Text, h.Level, w.label, w.text, w.level)
		}
	}
}

func TestHeadingLevelArgument(t *testing.T) {
	doc := parseDoc(t, "[.heading 2] Sub\n\n[.heading] Top")
	expectClean(t, doc)

	got := Headings(doc.Context)
	if len(got) != 2 || got[0].Level != 2 || got[1].Level != 1 {
		t.Fatalf("unexpected headings %+v", got)
	}

	doc = parseDoc(t, "[.heading 9] Bad")
	if got := doc.Messages.Count(diag.InvalidArgument); got != 1 {
		t.Errorf("expected one invalid level error, got %v", doc.Messages)
	}
}

func TestListItems(t *testing.T) {
	doc := parseDoc(t, "- a\n- b\n\n> quoted")
	expectClean(t, doc)
	expectBlocks(t, doc, "a", "b", "quoted")

	names := []string{"item", "item", "quote"}
	for i, n := range doc.Root.Content {
		m, ok := n.(*markup.Modifier)
		if !ok || m.Name != names[i] {
			t.Errorf("block %d: expected %s, got %#v", i, names[i], n)
		}
	}
}

func TestInlineShorthands(t *testing.T) {
	doc := parseDoc(t, "a *b* **c** `[.d]`")
	expectClean(t, doc)

	p := doc.Root.Content[0].(*markup.Paragraph)
	var got []string
	for _, n := range p.Content {
		if m, ok := n.(*markup.Modifier); ok {
			got = append(got, m.Name+":"+markup.PlainText(m.Content))
		}
	}
	want := []string{"emphasis:b", "strong:c", "code:[.d]"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("modifier %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNotesCaptured(t *testing.T) {
	doc := parseDoc(t, "[.note] A footnote\n\n[.note b] Second\n\nText[/note 1;]")
	expectClean(t, doc)
	expectBlocks(t, doc, "Text")

	notes := Notes(doc.Context)
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].ID != "1" || markup.PlainText(notes[0].Content) != "A footnote" {
		t.Errorf("first note = %q %q", notes[0].ID, markup.PlainText(notes[0].Content))
	}
	if notes[1].ID != "b" {
		t.Errorf("second note id = %q", notes[1].ID)
	}
}

func TestLinkRequiresURL(t *testing.T) {
	doc := parseDoc(t, "[/link] text[;]")
	if got := doc.Messages.Count(diag.ArgumentCount); got != 1 {
		t.Errorf("expected one argument count error, got %v", doc.Messages)
	}
}
