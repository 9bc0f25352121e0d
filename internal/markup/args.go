// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package markup

import (
	"fmt"
	"strings"

	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/source"
)

// Argument is one argument of a modifier: text, escapes and interpolations.
// The resolved string is computed lazily and cached.
type Argument struct {
	Loc     source.Range
	Content []Node

	value    string
	resolved bool
}

// Resolve concatenates the argument. It returns false, without a diagnostic,
// when an interpolation inside it cannot resolve yet.
func (a *Argument) Resolve(cxt *Context, immediate bool) (string, bool) {
	if a.resolved {
		return a.value, true
	}
	var b strings.Builder
	for _, part := range a.Content {
		switch part := part.(type) {
		case *Text:
			b.WriteString(part.Content)
		case *Escaped:
			b.WriteString(part.Content)
		case *Interpolation:
			v, ok := part.resolve(cxt, immediate)
			if !ok {
				return "", false
			}
			b.WriteString(v)
		}
	}
	a.value, a.resolved = b.String(), true
	return a.value, true
}

// Raw returns the argument as written, without resolving interpolations.
func (a *Argument) Raw() string {
	return a.Loc.Root().Text()
}

func (ip *Interpolation) resolve(cxt *Context, immediate bool) (string, bool) {
	if ip.resolved {
		return ip.value, true
	}
	inner, ok := ip.Arg.Resolve(cxt, immediate)
	if !ok {
		return "", false
	}
	if !immediate && !ip.Def.AlwaysTryExpand {
		return "", false
	}
	if ip.Def.Expand == nil {
		return "", false
	}
	v, ok := ip.Def.Expand(inner, cxt, immediate)
	if !ok {
		return "", false
	}
	ip.value, ip.resolved = v, true
	return v, true
}

// Arguments is the parsed argument list of an instance.
type Arguments struct {
	Positional []*Argument
	Named      map[string]*Argument

	order []string
}

// NamedOrder returns the named argument names in first-seen order.
func (a *Arguments) NamedOrder() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.order...)
}

func (a *Arguments) setNamed(name string, arg *Argument) bool {
	if a.Named == nil {
		a.Named = make(map[string]*Argument)
	}
	_, dup := a.Named[name]
	if !dup {
		a.order = append(a.order, name)
	}
	a.Named[name] = arg
	return dup
}

// Params declares the positional parameters a definition binds.
type Params struct {
	Names    []string // required names first
	Optional int      // trailing names that may be omitted
	Rest     bool     // accept extra positional arguments
}

func (p Params) arity() string {
	least := len(p.Names) - p.Optional
	switch {
	case p.Rest:
		return fmt.Sprintf("at least %d", least)
	case p.Optional > 0:
		return fmt.Sprintf("%d to %d", least, len(p.Names))
	}
	return fmt.Sprintf("%d", least)
}

// Bound is the result of binding an instance's arguments.
type Bound struct {
	Values    map[string]string
	Nodes     map[string]*Argument
	Rest      []string
	RestNodes []*Argument
}

// Get returns a bound value or "".
func (b *Bound) Get(name string) string {
	return b.Values[name]
}

// Has returns true if name was bound.
func (b *Bound) Has(name string) bool {
	_, ok := b.Values[name]
	return ok
}

// Bind checks arity and resolves every argument of n. Named arguments bind
// by name and may stand in for missing positional ones. The result is nil
// when the arguments are unusable; diagnostics are only produced when
// immediate is set.
func (p Params) Bind(n *Modifier, cxt *Context, immediate bool) (*Bound, []diag.Message) {
	args := n.Args
	if args == nil {
		args = &Arguments{}
	}
	var msgs []diag.Message

	count := len(args.Positional)
	required := len(p.Names) - p.Optional
	missing := false
	for i := count; i < required; i++ {
		if _, ok := args.Named[p.Names[i]]; !ok {
			missing = true
		}
	}
	if missing || (!p.Rest && count > len(p.Names)) {
		if immediate {
			msgs = append(msgs, diag.Errorf(diag.ArgumentCount, n.Head,
				"%s expects %s argument(s), got %d", describe(n), p.arity(), count))
		}
		return nil, msgs
	}

	b := &Bound{Values: make(map[string]string), Nodes: make(map[string]*Argument)}
	failed := false
	bind := func(arg *Argument) (string, bool) {
		v, ok := arg.Resolve(cxt, immediate)
		if !ok {
			failed = true
			if immediate {
				msgs = append(msgs, diag.Errorf(diag.CannotExpandArgument, arg.Loc,
					"cannot expand argument %q", arg.Raw()))
			}
		}
		return v, ok
	}

	for i, arg := range args.Positional {
		v, ok := bind(arg)
		if !ok {
			continue
		}
		if i < len(p.Names) {
			b.Values[p.Names[i]] = v
			b.Nodes[p.Names[i]] = arg
		} else {
			b.Rest = append(b.Rest, v)
			b.RestNodes = append(b.RestNodes, arg)
		}
	}
	for _, name := range args.order {
		arg := args.Named[name]
		if v, ok := bind(arg); ok {
			b.Values[name] = v
			b.Nodes[name] = arg
		}
	}
	if failed {
		return nil, msgs
	}
	return b, msgs
}

func describe(n *Modifier) string {
	return n.Kind.Open().Sigil() + n.Name
}
