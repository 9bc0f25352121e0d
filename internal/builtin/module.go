// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package builtin

import (
	"strings"

	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/markup"
)

// modules tracks the module definitions that are open in a context.
type modules struct {
	open []string
}

var modulesKey = markup.NewStateKey("modules", func() *modules { return &modules{} }, func(m *modules) *modules {
	return &modules{open: append([]string(nil), m.open...)}
})

func (m *modules) isOpen(name string) bool {
	for _, o := range m.open {
		if o == name {
			return true
		}
	}
	return false
}

// frame is the state of a module or block use instance.
type frame struct {
	name     string
	baseline *markup.DefinitionSet
}

var nameParam = markup.Params{Names: []string{"name"}}

func registerModules(cfg *markup.Configuration) {
	cfg.Add(moduleDef(), useMarkerDef(), useBlockDef())
}

func overwriteWarning(n *markup.Modifier, what string, collisions []string) []diag.Message {
	if len(collisions) == 0 {
		return nil
	}
	return []diag.Message{diag.Warnf(diag.Overwrite, n.Head, "%s overwrites %s", what, strings.Join(collisions, ", "))}
}

// moduleDef records the definitions made in its body under a name. The
// registry is restored once the body is parsed.
func moduleDef() *markup.Definition {
	return &markup.Definition{
		Name: "module",
		Kind: markup.KindSystem,
		Slot: markup.SlotNormal,

		BeforeParseContent: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			b, msgs := nameParam.Bind(n, cxt, immediate)
			if b == nil {
				return msgs
			}
			name := b.Get("name")
			mods := modulesKey.Get(cxt)
			if len(mods.open) > 0 {
				return append(msgs, diag.Errorf(diag.NestedModule, n.Head,
					"module %q cannot be defined inside module %q", name, mods.open[len(mods.open)-1]))
			}

			f := &frame{name: name, baseline: cxt.Config.Snapshot()}
			if stored, ok := cxt.Config.Modules.Get(name); ok {
				msgs = append(msgs, overwriteWarning(n, "module "+name, cxt.Config.Merge(stored))...)
			}
			mods.open = append(mods.open, name)
			n.State = f
			return msgs
		},

		AfterParseContent: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			f, ok := n.State.(*frame)
			if !ok {
				return nil
			}
			mods := modulesKey.Get(cxt)
			if len(mods.open) == 0 || mods.open[len(mods.open)-1] != f.name {
				panic("unbalanced module stack")
			}
			mods.open = mods.open[:len(mods.open)-1]

			cxt.Config.Modules.Set(f.name, cxt.Config.Snapshot().Diff(f.baseline))
			cxt.Config.Restore(f.baseline)
			return nil
		},
	}
}

// useModule merges a stored module into the registry.
func useModule(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
	b, msgs := nameParam.Bind(n, cxt, immediate)
	if b == nil {
		return msgs
	}
	name := b.Get("name")
	if modulesKey.Get(cxt).isOpen(name) {
		if !immediate {
			return nil
		}
		return []diag.Message{diag.Errorf(diag.ModuleSelfUse, n.Head, "module %q cannot be used inside its own definition", name)}
	}
	stored, ok := cxt.Config.Modules.Get(name)
	if !ok {
		if !immediate {
			return nil
		}
		return []diag.Message{diag.Errorf(diag.UnknownModule, n.Head, "unknown module %q", name)}
	}
	if !immediate {
		// Inside a definition body the module is visible until the body
		// ends. The call re-runs the use on its own clone.
		sig := scopeOf(cxt).innermostSignature()
		if sig == nil {
			return nil
		}
		if sig.baseline == nil {
			sig.baseline = cxt.Config.Snapshot()
		}
		cxt.Config.Merge(stored)
		return nil
	}
	return overwriteWarning(n, "use of "+name, cxt.Config.Merge(stored))
}

// useMarkerDef merges a module for the rest of the enclosing scope.
func useMarkerDef() *markup.Definition {
	def := &markup.Definition{
		Name:            "use",
		Kind:            markup.KindSystem,
		Slot:            markup.SlotNone,
		AlwaysTryExpand: true,
	}
	return staged(def, func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool, []diag.Message) {
		msgs := useModule(n, cxt, immediate)
		if !immediate {
			return later()
		}
		return []markup.Node{}, true, msgs
	})
}

// useBlockDef merges a module while its body is parsed.
func useBlockDef() *markup.Definition {
	return &markup.Definition{
		Name:            "use",
		Kind:            markup.KindBlock,
		Slot:            markup.SlotNormal,
		AlwaysTryExpand: true,

		BeforeParseContent: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			n.State = &frame{baseline: cxt.Config.Snapshot()}
			return useModule(n, cxt, immediate)
		},

		AfterParseContent: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			if f, ok := n.State.(*frame); ok {
				cxt.Config.Restore(f.baseline)
			}
			return nil
		},

		Expand: func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool) {
			if !immediate {
				return nil, false
			}
			if n.Content == nil {
				return []markup.Node{}, true
			}
			return n.Content, true
		},
	}
}
