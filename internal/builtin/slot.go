// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package builtin

import (
	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/markup"
)

func registerSlots(cfg *markup.Configuration) {
	for _, kind := range []markup.Kind{markup.KindBlock, markup.KindInline} {
		cfg.Add(
			slotDef("slot", kind, slotNormal, false),
			slotDef("pre-slot", kind, slotPre, false),
			slotDef("inject-pre-slot", kind, slotPre, true),
		)
	}
}

// slotDef builds a slot marker. Inside a definition body it fixes the
// definition's slot kind and waits; inside an instantiation it expands to a
// copy of the call's content.
func slotDef(name string, kind markup.Kind, mode slotMode, inject bool) *markup.Definition {
	params := markup.Params{Names: []string{"id"}, Optional: 1}
	if inject {
		params = markup.Params{Names: []string{"id", "modifier"}}
	}

	def := &markup.Definition{
		Name:            name,
		Kind:            kind,
		Slot:            markup.SlotNone,
		AlwaysTryExpand: true,
	}
	return staged(def, func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool, []diag.Message) {
		b, msgs := params.Bind(n, cxt, immediate)
		if b == nil {
			return failed(immediate, msgs)
		}
		id := b.Get("id")

		sig, inst := scopeOf(cxt).target(kind, id)
		switch {
		case sig != nil:
			if sig.mode == slotUnset {
				sig.mode = mode
			} else if sig.mode != mode && sig.immediate {
				return later(diag.Errorf(diag.MixedSlotKind, n.Head,
					"%s mixes preformatted and normal slots in the definition of %q", name, sig.name))
			}
			return later()
		case inst != nil && immediate:
			content := markup.CopyNodes(inst.content, n.Loc)
			if !inject {
				return content, true, msgs
			}
			target := b.Get("modifier")
			wrap, ok := cxt.Config.Modifiers(kind).Get(target)
			if !ok {
				return failed(immediate, append(msgs, diag.Errorf(diag.UnknownModifier, n.Head,
					"unknown %s modifier %q", kind, target)))
			}
			return []markup.Node{&markup.Modifier{
				Kind:    kind,
				Loc:     n.Loc,
				Head:    n.Head,
				Def:     wrap,
				Name:    target,
				Args:    &markup.Arguments{},
				Content: content,
			}}, true, msgs
		case !immediate:
			return later()
		case id != "":
			return failed(immediate, []diag.Message{diag.Errorf(diag.UnknownSlot, n.Head, "no %s slot named %q", kind, id)})
		}
		return failed(immediate, []diag.Message{diag.Errorf(diag.SlotOutsideDefinition, n.Head,
			"%s used outside of a %s definition", name, kind)})
	})
}
