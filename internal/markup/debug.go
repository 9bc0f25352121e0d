// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package markup

import (
	"fmt"
	"strings"
)

// Outline is a serializable view of a node tree.
type Outline struct {
	Type      string     `json:"type" yaml:"type"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Text      string     `json:"text,omitempty" yaml:"text,omitempty"`
	Args      []string   `json:"args,omitempty" yaml:"args,omitempty"`
	Start     int        `json:"start" yaml:"start"`
	End       int        `json:"end" yaml:"end"`
	Children  []*Outline `json:"children,omitempty" yaml:"children,omitempty"`
	Expanded  bool       `json:"expanded,omitempty" yaml:"expanded,omitempty"`
	Expansion []*Outline `json:"expansion,omitempty" yaml:"expansion,omitempty"`
}

// Describe builds the outline of n.
func Describe(n Node) *Outline {
	loc := n.Location()
	o := &Outline{Start: loc.Start, End: loc.End}
	switch n := n.(type) {
	case *Text:
		o.Type, o.Text = "text", n.Content
	case *Escaped:
		o.Type, o.Text = "escaped", n.Content
	case *Preformatted:
		o.Type, o.Text = "preformatted", n.Content
	case *Paragraph:
		o.Type = "paragraph"
	case *Group:
		o.Type = "group"
	case *Root:
		o.Type = "root"
	case *Interpolation:
		o.Type, o.Text = "interpolation", n.Def.Prefix+n.Arg.Raw()+n.Def.Postfix
	case *Modifier:
		o.Type, o.Name = n.Kind.String(), n.Name
		o.Args = describeArgs(n.Args)
		if n.Expanded {
			o.Expanded = true
			o.Expansion = describeAll(n.Expansion)
		}
	}
	o.Children = describeAll(Children(n))
	return o
}

func describeAll(nodes []Node) []*Outline {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Outline, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Describe(n))
	}
	return out
}

func describeArgs(args *Arguments) []string {
	if args == nil {
		return nil
	}
	var out []string
	for _, a := range args.Positional {
		out = append(out, argText(a))
	}
	for _, name := range args.order {
		out = append(out, name+"="+argText(args.Named[name]))
	}
	return out
}

func argText(a *Argument) string {
	if a.resolved {
		return a.value
	}
	return a.Raw()
}

// Dump renders the tree under n as indented text, one node per line.
func Dump(n Node) string {
	var b strings.Builder
	dumpOutline(&b, Describe(n), 0)
	return b.String()
}

func dumpOutline(b *strings.Builder, o *Outline, depth int) {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent)
	b.WriteString(o.Type)
	if o.Name != "" {
		b.WriteString(" " + o.Name)
	}
	if len(o.Args) > 0 {
		b.WriteString(" [" + strings.Join(o.Args, "|") + "]")
	}
	if o.Text != "" {
		fmt.Fprintf(b, " %q", o.Text)
	}
	b.WriteByte('\n')
	for _, c := range o.Children {
		dumpOutline(b, c, depth+1)
	}
	if o.Expanded {
		b.WriteString(indent + "=>\n")
		for _, c := range o.Expansion {
			dumpOutline(b, c, depth+1)
		}
	}
}
