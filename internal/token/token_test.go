// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package token

import "testing"

func TestSigilRoundTrip(t *testing.T) {
	tests := []struct {
		tok   Token
		sigil string
		open  bool
	}{
		{BLOCK_OPEN, "[.", true},
		{INLINE_OPEN, "[/", true},
		{SYSTEM_OPEN, "[-", true},
		{TAG_CLOSE, "]", false},
		{MARKER_CLOSE, ";]", false},
		{INLINE_END, "[;]", false},
		{GROUP_OPEN, "<<<", false},
		{GROUP_CLOSE, ">>>", false},
		{ESCAPE, "\\", false},
		{NAMED, "=", false},
		{TEXT, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.tok.String(), func(t *testing.T) {
			if got := tt.tok.Sigil(); got != tt.sigil {
				t.Errorf("Sigil() = %q, want %q", got, tt.sigil)
			}
			if got := tt.tok.IsTagOpen(); got != tt.open {
				t.Errorf("IsTagOpen() = %v, want %v", got, tt.open)
			}
		})
	}
}

func TestRuneClasses(t *testing.T) {
	for _, r := range "az09_-é" {
		if !IsIdentRune(r) {
			t.Errorf("expected %q to be an identifier rune", r)
		}
	}
	for _, r := range " ]|;$(\n" {
		if IsIdentRune(r) {
			t.Errorf("expected %q not to be an identifier rune", r)
		}
	}
	if !IsSpace(' ') || !IsSpace('\t') || IsSpace('\n') {
		t.Error("IsSpace must accept space and tab only")
	}
}
