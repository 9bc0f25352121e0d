// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package builtin

import (
	"testing"

	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/markup"
)

const tildeModule = `[-module m]
[-define-inline-shorthand ~|(s)|~]
[/strong] [/slot;][;]
`

func hasModifier(n markup.Node) bool {
	found := false
	for _, c := range markup.Children(n) {
		if _, ok := c.(*markup.Modifier); ok {
			found = true
		}
	}
	return found
}

func TestModuleRoundTrip(t *testing.T) {
	doc := parseDoc(t, tildeModule+`
~x~ before

[-use m;]

~y~ after`)
	expectClean(t, doc)

	root := doc.Root.Content
	if len(root) != 4 {
		t.Fatalf("expected 4 blocks, got %d:\n%s", len(root), markup.Dump(doc.Root))
	}
	if hasModifier(root[1]) {
		t.Error("shorthand resolved before use")
	}
	if !hasModifier(root[3]) {
		t.Error("shorthand not resolved after use")
	}
	expectBlocks(t, doc, "~x~ before", "y after")
}

func TestModuleMerge(t *testing.T) {
	doc := parseDoc(t, tildeModule+`
[-module m]
[-define-inline-shorthand %|(s)|%]
[/emphasis] [/slot;][;]

[-use m;]

~a~ %b%`)
	expectClean(t, doc)

	p := doc.Root.Content[len(doc.Root.Content)-1].(*markup.Paragraph)
	var names []string
	for _, n := range p.Content {
		if m, ok := n.(*markup.Modifier); ok && m.Expanded {
			names = append(names, m.Name)
		}
	}
	if len(names) != 2 {
		t.Fatalf("expected both shorthands to expand, got %v", names)
	}

	stored, ok := doc.Context.Config.Modules.Get("m")
	if !ok || stored.InlineShorthands.Len() != 2 {
		t.Errorf("stored module should hold both shorthands")
	}
}

func TestUseInsideUncalledDefinition(t *testing.T) {
	doc := parseDoc(t, tildeModule+`
[-define-block never]
[-use m;]

~x~ after`)
	expectClean(t, doc)
	expectBlocks(t, doc, "~x~ after")

	if doc.Context.Config.InlineShorthands.Has("~") {
		t.Error("module m is active after a definition that was never called")
	}
}

func TestUseInsideDefinitionBody(t *testing.T) {
	doc := parseDoc(t, tildeModule+`
[-define-block wrap]
<<<
[-use m;]

~in~
>>>

[.wrap;]`)
	expectClean(t, doc)
	expectBlocks(t, doc, "in")

	wrap, ok := doc.Root.Content[len(doc.Root.Content)-1].(*markup.Modifier)
	if !ok || wrap.Name != "wrap" || !wrap.Expanded {
		t.Fatalf("expected an expanded wrap call, got %#v", doc.Root.Content[len(doc.Root.Content)-1])
	}
	found := false
	markup.Walk(wrap, func(n markup.Node) bool {
		if m, ok := n.(*markup.Modifier); ok && m.Name == "strong" {
			found = true
		}
		return true
	})
	if !found {
		t.Errorf("shorthand from the used module did not resolve in the body:\n%s", markup.Dump(wrap))
	}
}

func TestModuleRestoresRegistry(t *testing.T) {
	doc := parseDoc(t, `[-module m]
[-define-block p]
inside

[.p;]`)
	if got := doc.Messages.Count(diag.UnknownModifier); got != 1 {
		t.Errorf("definition leaked out of its module: %v", doc.Messages)
	}
}

func TestUseBlockScope(t *testing.T) {
	doc := parseDoc(t, tildeModule+`
[.use m] ~a~

~b~`)
	expectClean(t, doc)

	root := doc.Root.Content
	use, ok := root[1].(*markup.Modifier)
	if !ok || use.Name != "use" {
		t.Fatalf("expected use block, got %#v", root[1])
	}
	if !hasModifier(use.Content[0]) {
		t.Error("shorthand not active inside use block")
	}
	if hasModifier(root[2]) {
		t.Error("shorthand leaked out of use block")
	}
	expectBlocks(t, doc, "a", "~b~")
}

func TestModuleErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  diag.Code
	}{
		{"self use", "[-module m]\n[-use m;]", diag.ModuleSelfUse},
		{"nested", "[-module a]\n[-module b]\n[-var x|1;]", diag.NestedModule},
		{"unknown", "[-use zzz;]", diag.UnknownModule},
		{"unknown block", "[.use zzz] x", diag.UnknownModule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, tt.input)
			if got := doc.Messages.Count(tt.code); got != 1 {
				t.Errorf("expected one %d diagnostic, got %v", tt.code, doc.Messages)
			}
		})
	}
}

func TestUseWarnsOnCollision(t *testing.T) {
	doc := parseDoc(t, tildeModule+`
[-define-inline-shorthand ~|(s)|~]
[/emphasis] [/slot;][;]

[-use m;]`)
	if got := doc.Messages.Count(diag.Overwrite); got != 1 {
		t.Errorf("expected one overwrite warning, got %v", doc.Messages)
	}
}
