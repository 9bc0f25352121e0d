// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package builtin

import (
	"testing"

	"nickandperla.net/emark/internal/diag"
)

func TestVariables(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"reference", "[-var who|World;]\n\nHello [/$ who;]", []string{"Hello World"}},
		{"print", "[/print a|b|c;]", []string{"abc"}},
		{"interpolation", "[-var who|World;]\n\nHello [/print $(who);]", []string{"Hello World"}},
		{"interpolation spaces", "[-var who|World;]\n\n[/print <$( who )>;]", []string{"<World>"}},
		{"ifdef", "[-var x|1;]\n\n[.ifdef x] yes\n\n[.ifndef x] no\n\n[.ifdef y] nope\n\n[.ifndef y] fine", []string{"yes", "fine"}},
		{"reassign", "[-var x|1;]\n\n[-var x|1;]\n\n[/$ x;]", []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, tt.input)
			expectClean(t, doc)
			expectBlocks(t, doc, tt.want...)
		})
	}
}

func TestVariableDiagnostics(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  diag.Code
	}{
		{"undefined", "[/$ nope;]", diag.UndefinedVariable},
		{"bad name", "[-var a b|1;]", diag.InvalidArgument},
		{"redefined", "[-var x|1;]\n\n[-var x|2;]", diag.Overwrite},
		{"unresolved interpolation", "[/print $(nope);]", diag.CannotExpandArgument},
		{"missing value", "[-var x;]", diag.ArgumentCount},
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

func TestUndefinedVariableIsWarning(t *testing.T) {
	doc := parseDoc(t, "[/$ nope;] text")
	if doc.Messages.HasErrors() {
		t.Errorf("an undefined variable should only warn: %v", doc.Messages)
	}
	expectBlocks(t, doc, " text")
}

func TestConditionalSeesArguments(t *testing.T) {
	doc := parseDoc(t, `[-define-block p|x]
[.ifdef x] has x

[.p 1;]`)
	expectClean(t, doc)
	expectBlocks(t, doc, "has x")
}
