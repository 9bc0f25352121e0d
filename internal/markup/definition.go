// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package markup

import "nickandperla.net/emark/internal/diag"

// SlotKind describes how the body of a modifier is parsed.
type SlotKind int

const (
	// SlotNormal bodies are parsed recursively.
	SlotNormal SlotKind = iota
	// SlotPreformatted bodies are taken verbatim.
	SlotPreformatted
	// SlotNone modifiers are markers and never have a body.
	SlotNone
)

// String returns the name of the slot kind.
func (s SlotKind) String() string {
	switch s {
	case SlotNormal:
		return "normal"
	case SlotPreformatted:
		return "preformatted"
	case SlotNone:
		return "none"
	}
	return "unknown"
}

// Callback is a lifecycle hook. immediate is false while the instance sits
// inside content whose expansion is delayed.
type Callback func(n *Modifier, cxt *Context, immediate bool) []diag.Message

// ExpandFunc produces the expansion of an instance. ok is false when the
// instance is not ready to expand yet.
type ExpandFunc func(n *Modifier, cxt *Context, immediate bool) (nodes []Node, ok bool)

// Definition is the shared behaviour behind every instance of a modifier.
// Definitions are immutable once registered.
type Definition struct {
	Name string
	Kind Kind
	Slot SlotKind

	// DelayContentExpansion parses the body structurally without expanding
	// the modifiers in it.
	DelayContentExpansion bool
	// AlwaysTryExpand runs the lifecycle even inside delayed content.
	AlwaysTryExpand bool

	BeforeParseContent     Callback
	AfterParseContent      Callback
	PrepareExpand          Callback
	Expand                 ExpandFunc
	BeforeProcessExpansion Callback
	AfterProcessExpansion  Callback

	unknown bool
}

// IsUnknown returns true for the stand-in used when a name is not registered.
func (d *Definition) IsUnknown() bool {
	return d.unknown
}

var standIns = [...]*Definition{
	KindBlock:  {Kind: KindBlock, Slot: SlotNormal, unknown: true},
	KindInline: {Kind: KindInline, Slot: SlotNormal, unknown: true},
	KindSystem: {Kind: KindSystem, Slot: SlotNormal, unknown: true},
}

// StandIn returns the no-op definition used for unknown modifiers of a kind.
func StandIn(kind Kind) *Definition {
	return standIns[kind]
}

// Shorthand is an alternative surface syntax for a definition: a literal
// prefix, one argument before each part, then the body up to the postfix.
type Shorthand struct {
	Prefix  string
	Parts   []string
	Postfix string
	Mod     *Definition
}

// Interpolator substitutes text inside arguments, written as Prefix inner Postfix.
type Interpolator struct {
	Prefix          string
	Postfix         string
	AlwaysTryExpand bool
	Expand          func(inner string, cxt *Context, immediate bool) (string, bool)
}
