// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package markup implements the emark document model, parser and macro
// expansion engine.
package markup

import (
	"nickandperla.net/emark/internal/source"
	"nickandperla.net/emark/internal/token"
)

// Node is a document node. The set of implementations is closed: Text,
// Escaped, Preformatted, Paragraph, Group, Root, Modifier and Interpolation.
type Node interface {
	Location() source.Range
	node()
}

// Text is a run of literal characters.
type Text struct {
	Loc     source.Range
	Content string
}

// Escaped is a single backslash-escaped character.
type Escaped struct {
	Loc     source.Range
	Content string
}

// Preformatted is verbatim text that was not parsed.
type Preformatted struct {
	Loc     source.Range
	Content string
}

// Paragraph holds inline content.
type Paragraph struct {
	Loc     source.Range
	Content []Node
}

// Group is an explicitly delimited run of block content.
type Group struct {
	Loc     source.Range
	Content []Node
}

// Root is the top-level block container of a document.
type Root struct {
	Loc     source.Range
	Source  *source.Source
	Content []Node
}

// Kind distinguishes block, inline and system modifiers.
type Kind int

const (
	KindBlock Kind = iota
	KindInline
	KindSystem
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindInline:
		return "inline"
	case KindSystem:
		return "system"
	}
	return "unknown"
}

// Open returns the tag opener for the kind.
func (k Kind) Open() token.Token {
	switch k {
	case KindInline:
		return token.INLINE_OPEN
	case KindSystem:
		return token.SYSTEM_OPEN
	}
	return token.BLOCK_OPEN
}

// Modifier is an instance of a block, inline or system modifier.
//
// Def is shared with every other instance of the same definition. State is
// private to the instance and owned by the definition's callbacks. Content is
// filled once while parsing. Expansion is only meaningful when Expanded is
// set; an expanded instance with no nodes expanded to nothing.
type Modifier struct {
	Kind      Kind
	Loc       source.Range
	Head      source.Range
	Def       *Definition
	Name      string
	State     any
	Args      *Arguments
	Content   []Node
	Expansion []Node
	Expanded  bool

	done bool // lifecycle finished with immediate set
}

// SetExpansion records the expansion of the instance.
func (m *Modifier) SetExpansion(nodes []Node) {
	if nodes == nil {
		nodes = []Node{}
	}
	m.Expansion = nodes
	m.Expanded = true
}

// Interpolation is an interpolator escape inside an argument.
type Interpolation struct {
	Loc source.Range
	Def *Interpolator
	Arg *Argument

	value    string
	resolved bool
}

func (n *Text) Location() source.Range          { return n.Loc }
func (n *Escaped) Location() source.Range       { return n.Loc }
func (n *Preformatted) Location() source.Range  { return n.Loc }
func (n *Paragraph) Location() source.Range     { return n.Loc }
func (n *Group) Location() source.Range         { return n.Loc }
func (n *Root) Location() source.Range          { return n.Loc }
func (n *Modifier) Location() source.Range      { return n.Loc }
func (n *Interpolation) Location() source.Range { return n.Loc }

func (*Text) node()          {}
func (*Escaped) node()       {}
func (*Preformatted) node()  {}
func (*Paragraph) node()     {}
func (*Group) node()         {}
func (*Root) node()          {}
func (*Modifier) node()      {}
func (*Interpolation) node() {}

// Children returns the child nodes of containers, or nil.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Paragraph:
		return n.Content
	case *Group:
		return n.Content
	case *Root:
		return n.Content
	case *Modifier:
		return n.Content
	}
	return nil
}

// Walk calls fn for n and its descendants in document order, including
// modifier expansions. Returning false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
	if m, ok := n.(*Modifier); ok && m.Expanded {
		for _, c := range m.Expansion {
			Walk(c, fn)
		}
	}
}

// PlainText concatenates the literal text under nodes, ignoring modifiers
// that have not expanded.
func PlainText(nodes []Node) string {
	var b []byte
	var visit func([]Node)
	visit = func(ns []Node) {
		for _, n := range ns {
			switch n := n.(type) {
			case *Text:
				b = append(b, n.Content...)
			case *Escaped:
				b = append(b, n.Content...)
			case *Preformatted:
				b = append(b, n.Content...)
			case *Paragraph:
				visit(n.Content)
			case *Group:
				visit(n.Content)
			case *Root:
				visit(n.Content)
			case *Modifier:
				if n.Expanded {
					visit(n.Expansion)
				} else {
					visit(n.Content)
				}
			case *Interpolation:
			}
		}
	}
	visit(nodes)
	return string(b)
}
