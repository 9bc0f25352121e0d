// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package builtin provides the macro modifiers of the markup language
// (custom definitions, slots, modules and variables) and the default
// library of document modifiers.
package builtin

import (
	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/markup"
	"nickandperla.net/emark/internal/token"
)

// reserved names cannot be taken by custom definitions.
var reserved = map[string]bool{
	"slot":            true,
	"pre-slot":        true,
	"inject-pre-slot": true,
	"use":             true,
	"ifdef":           true,
	"ifndef":          true,
	"$":               true,
	"print":           true,
}

// DefaultConfiguration returns a fresh configuration holding the macro
// modifiers and the default document library.
func DefaultConfiguration() *markup.Configuration {
	cfg := markup.NewConfiguration()
	RegisterMacros(cfg)
	RegisterLibrary(cfg)
	return cfg
}

// RegisterMacros adds the definition, slot, module and variable modifiers.
func RegisterMacros(cfg *markup.Configuration) {
	registerCustom(cfg)
	registerSlots(cfg)
	registerModules(cfg)
	registerVariables(cfg)
}

// outcome is what PrepareExpand decided for the instance's Expand.
type outcome struct {
	nodes []markup.Node
	ready bool
}

// decide is the body of a staged definition. It returns the expansion,
// whether the instance is ready, and any diagnostics.
type decide func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool, []diag.Message)

// staged wires fn as the PrepareExpand of def and replays its result from
// Expand, so diagnostics can be reported while deciding.
func staged(def *markup.Definition, fn decide) *markup.Definition {
	def.PrepareExpand = func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
		nodes, ready, msgs := fn(n, cxt, immediate)
		n.State = outcome{nodes: nodes, ready: ready}
		return msgs
	}
	def.Expand = func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool) {
		o, ok := n.State.(outcome)
		if !ok || !o.ready {
			return nil, false
		}
		if o.nodes == nil {
			return []markup.Node{}, true
		}
		return o.nodes, true
	}
	return def
}

// nothing is the result of a construct that contributes no nodes.
func nothing() ([]markup.Node, bool, []diag.Message) {
	return []markup.Node{}, true, nil
}

// later is the result of a construct that cannot expand yet.
func later(msgs ...diag.Message) ([]markup.Node, bool, []diag.Message) {
	return nil, false, msgs
}

// failed reports msgs and contributes nothing when immediate, or waits
// silently otherwise.
func failed(immediate bool, msgs []diag.Message) ([]markup.Node, bool, []diag.Message) {
	if !immediate {
		return nil, false, nil
	}
	return []markup.Node{}, true, msgs
}

// resolveAll resolves every positional argument. ok is false if any of
// them is blocked.
func resolveAll(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]string, bool) {
	if n.Args == nil {
		return nil, true
	}
	values := make([]string, 0, len(n.Args.Positional))
	for _, a := range n.Args.Positional {
		v, ok := a.Resolve(cxt, immediate)
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !token.IsIdentRune(r) {
			return false
		}
	}
	return true
}

func literal(n *markup.Modifier, s string) []markup.Node {
	return []markup.Node{&markup.Text{Loc: n.Loc, Content: s}}
}
