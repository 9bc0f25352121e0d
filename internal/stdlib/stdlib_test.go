// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package stdlib

import (
	"testing"

	"nickandperla.net/emark/internal/builtin"
	"nickandperla.net/emark/internal/markup"
	"nickandperla.net/emark/internal/source"
)

func TestPreludeParsesClean(t *testing.T) {
	cxt := markup.NewContext(builtin.DefaultConfiguration())
	doc := markup.Parse(source.New(Name, Prelude), cxt)
	if len(doc.Messages) != 0 {
		t.Fatalf("prelude has diagnostics: %v", doc.Messages)
	}

	for _, name := range []string{"kbd", "cite"} {
		if !cxt.Config.InlineModifiers.Has(name) {
			t.Errorf("prelude should define inline %q", name)
		}
	}
	if !cxt.Config.BlockModifiers.Has("warning") {
		t.Error("prelude should define block warning")
	}
	if !cxt.Config.Modules.Has("typography") {
		t.Error("prelude should define module typography")
	}
	if cxt.Config.InlineShorthands.Has("__") {
		t.Error("module shorthands should not leak into the prelude scope")
	}
}
