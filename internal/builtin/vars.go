// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package builtin

import (
	"strings"

	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/markup"
)

var idParam = markup.Params{Names: []string{"id"}}

func registerVariables(cfg *markup.Configuration) {
	cfg.Add(varDef(), refDef(), printDef())
	for _, kind := range []markup.Kind{markup.KindBlock, markup.KindInline} {
		cfg.Add(conditionalDef("ifdef", kind, true), conditionalDef("ifndef", kind, false))
	}
	cfg.AddInterpolator(&markup.Interpolator{
		Prefix:          "$(",
		Postfix:         ")",
		AlwaysTryExpand: true,
		Expand: func(inner string, cxt *markup.Context, immediate bool) (string, bool) {
			v, found, blocked := lookup(cxt, strings.TrimSpace(inner))
			if blocked || !found {
				return "", false
			}
			return v, true
		},
	})
}

// varDef binds a global variable: [-var id|value;].
func varDef() *markup.Definition {
	params := markup.Params{Names: []string{"id", "value"}}
	def := &markup.Definition{Name: "var", Kind: markup.KindSystem, Slot: markup.SlotNone}
	return staged(def, func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool, []diag.Message) {
		b, msgs := params.Bind(n, cxt, immediate)
		if b == nil {
			return failed(immediate, msgs)
		}
		id, value := b.Get("id"), b.Get("value")
		if !isName(id) {
			return failed(immediate, []diag.Message{diag.Errorf(diag.InvalidArgument, b.Nodes["id"].Loc, "invalid variable name %q", id)})
		}
		if old, ok := cxt.Variables[id]; ok && old != value {
			msgs = append(msgs, diag.Warnf(diag.Overwrite, n.Head, "variable %q redefined", id))
		}
		cxt.Variables[id] = value
		return []markup.Node{}, true, msgs
	})
}

// refDef substitutes a variable or argument: [/$ id;].
func refDef() *markup.Definition {
	def := &markup.Definition{
		Name:            "$",
		Kind:            markup.KindInline,
		Slot:            markup.SlotNone,
		AlwaysTryExpand: true,
	}
	return staged(def, func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool, []diag.Message) {
		b, msgs := idParam.Bind(n, cxt, immediate)
		if b == nil {
			return failed(immediate, msgs)
		}
		id := b.Get("id")
		v, found, blocked := lookup(cxt, id)
		switch {
		case blocked:
			return later()
		case !found && immediate:
			return []markup.Node{}, true, []diag.Message{diag.Warnf(diag.UndefinedVariable, n.Head, "undefined variable %q", id)}
		case !found:
			return later()
		}
		return literal(n, v), true, msgs
	})
}

// printDef concatenates its arguments: [/print a|b;].
func printDef() *markup.Definition {
	params := markup.Params{Rest: true}
	def := &markup.Definition{Name: "print", Kind: markup.KindInline, Slot: markup.SlotNone}
	return staged(def, func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool, []diag.Message) {
		b, msgs := params.Bind(n, cxt, immediate)
		if b == nil {
			return failed(immediate, msgs)
		}
		return literal(n, strings.Join(b.Rest, "")), true, msgs
	})
}

// conditionalDef keeps its body when the identifier is (or is not) defined.
func conditionalDef(name string, kind markup.Kind, want bool) *markup.Definition {
	def := &markup.Definition{
		Name:                  name,
		Kind:                  kind,
		Slot:                  markup.SlotNormal,
		DelayContentExpansion: true,
	}
	return staged(def, func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool, []diag.Message) {
		b, msgs := idParam.Bind(n, cxt, immediate)
		if b == nil {
			return failed(immediate, msgs)
		}
		_, found, blocked := lookup(cxt, b.Get("id"))
		if blocked {
			return later()
		}
		if found != want || len(n.Content) == 0 {
			return []markup.Node{}, true, msgs
		}
		return n.Content, true, msgs
	})
}
