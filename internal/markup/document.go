// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package markup

import "nickandperla.net/emark/internal/diag"

// Document is the result of a parse.
type Document struct {
	Root     *Root
	Context  *Context
	Messages diag.List
}

// ToStripped returns a copy of the tree with every expanded instance
// replaced by its expansion and every system instance removed. The
// original document is not modified.
func (d *Document) ToStripped() *Document {
	root := &Root{Loc: d.Root.Loc, Source: d.Root.Source, Content: strip(d.Root.Content)}
	return &Document{Root: root, Context: d.Context, Messages: d.Messages}
}

func strip(nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		switch n := n.(type) {
		case *Modifier:
			if n.Kind == KindSystem {
				continue
			}
			if n.Expanded {
				out = append(out, strip(n.Expansion)...)
				continue
			}
			m := *n
			m.Content = strip(n.Content)
			m.Expansion = nil
			out = append(out, &m)
		case *Paragraph:
			out = append(out, &Paragraph{Loc: n.Loc, Content: strip(n.Content)})
		case *Group:
			out = append(out, &Group{Loc: n.Loc, Content: strip(n.Content)})
		case *Root:
			out = append(out, &Root{Loc: n.Loc, Source: n.Source, Content: strip(n.Content)})
		case *Text:
			t := *n
			out = append(out, &t)
		case *Escaped:
			e := *n
			out = append(out, &e)
		case *Preformatted:
			pre := *n
			out = append(out, &pre)
		default:
			out = append(out, n)
		}
	}
	return out
}

// ResolvePosition returns the chain of nodes, from the root down, whose
// written range covers offset. Only content written in the document itself
// is considered; expansions are not entered.
func (d *Document) ResolvePosition(offset int) []Node {
	path := []Node{d.Root}
	nodes := d.Root.Content
	for {
		next := childAt(nodes, d.Root, offset)
		if next == nil {
			return path
		}
		path = append(path, next)
		nodes = Children(next)
	}
}

func childAt(nodes []Node, root *Root, offset int) Node {
	var touching Node
	for _, n := range nodes {
		loc := n.Location()
		if loc.Source != root.Source || loc.Original != nil {
			continue
		}
		if loc.Start <= offset && offset < loc.End {
			return n
		}
		if offset == loc.End {
			touching = n
		}
	}
	return touching
}
