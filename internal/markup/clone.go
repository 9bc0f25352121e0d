// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package markup

import "nickandperla.net/emark/internal/source"

// CloneNodes deep-copies a stored macro body for reuse at an instantiation
// site. Every range in the copy points at at and links back to the range it
// was copied from. Instance state, expansions and cached argument values are
// dropped so the copy expands afresh.
func CloneNodes(nodes []Node, at source.Range) []Node {
	c := cloner{at: at}
	return c.nodes(nodes)
}

// CopyNodes is CloneNodes for content that has already been expanded in its
// own scope, such as the body a call site passes to a slot. Expansions and
// instance state are kept so nothing expands twice.
func CopyNodes(nodes []Node, at source.Range) []Node {
	c := cloner{at: at, keep: true}
	return c.nodes(nodes)
}

type cloner struct {
	at   source.Range
	keep bool
}

func (c cloner) loc(r source.Range) source.Range {
	return r.Relocate(c.at)
}

func (c cloner) nodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, c.node(n))
	}
	return out
}

func (c cloner) node(n Node) Node {
	switch n := n.(type) {
	case *Text:
		return &Text{Loc: c.loc(n.Loc), Content: n.Content}
	case *Escaped:
		return &Escaped{Loc: c.loc(n.Loc), Content: n.Content}
	case *Preformatted:
		return &Preformatted{Loc: c.loc(n.Loc), Content: n.Content}
	case *Paragraph:
		return &Paragraph{Loc: c.loc(n.Loc), Content: c.nodes(n.Content)}
	case *Group:
		return &Group{Loc: c.loc(n.Loc), Content: c.nodes(n.Content)}
	case *Root:
		return &Root{Loc: c.loc(n.Loc), Source: n.Source, Content: c.nodes(n.Content)}
	case *Modifier:
		m := &Modifier{
			Kind:    n.Kind,
			Loc:     c.loc(n.Loc),
			Head:    c.loc(n.Head),
			Def:     n.Def,
			Name:    n.Name,
			Args:    c.args(n.Args),
			Content: c.nodes(n.Content),
		}
		if c.keep {
			m.State = n.State
			m.done = n.done
			if n.Expanded {
				m.SetExpansion(c.nodes(n.Expansion))
			}
		}
		return m
	case *Interpolation:
		ip := &Interpolation{Loc: c.loc(n.Loc), Def: n.Def, Arg: c.arg(n.Arg)}
		if c.keep {
			ip.value, ip.resolved = n.value, n.resolved
		}
		return ip
	}
	panic("markup: clone of unknown node type")
}

func (c cloner) arg(a *Argument) *Argument {
	if a == nil {
		return nil
	}
	out := &Argument{Loc: c.loc(a.Loc), Content: c.nodes(a.Content)}
	if c.keep {
		out.value, out.resolved = a.value, a.resolved
	}
	return out
}

func (c cloner) args(a *Arguments) *Arguments {
	if a == nil {
		return nil
	}
	out := &Arguments{order: append([]string(nil), a.order...)}
	for _, p := range a.Positional {
		out.Positional = append(out.Positional, c.arg(p))
	}
	if a.Named != nil {
		out.Named = make(map[string]*Argument, len(a.Named))
		for k, v := range a.Named {
			out.Named[k] = c.arg(v)
		}
	}
	return out
}
