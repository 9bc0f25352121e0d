// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package builtin

import (
	"strings"

	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/markup"
)

// defining is the state of a define-* instance.
type defining struct {
	sig     *signature
	parts   []string
	postfix string
}

func registerCustom(cfg *markup.Configuration) {
	cfg.Add(
		defineDef("define-block", markup.KindBlock, false),
		defineDef("define-inline", markup.KindInline, false),
		defineDef("define-block-shorthand", markup.KindBlock, true),
		defineDef("define-inline-shorthand", markup.KindInline, true),
	)
}

// defineDef builds one of the define-* system modifiers. Their bodies are
// parsed without expansion; only slots and variable references inside
// probe the open signature.
func defineDef(name string, kind markup.Kind, shorthand bool) *markup.Definition {
	return &markup.Definition{
		Name:                  name,
		Kind:                  markup.KindSystem,
		Slot:                  markup.SlotNormal,
		DelayContentExpansion: true,
		AlwaysTryExpand:       true,

		BeforeParseContent: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			var (
				d    *defining
				msgs []diag.Message
			)
			if shorthand {
				d, msgs = parseShorthandSignature(n, cxt, kind, immediate)
			} else {
				d, msgs = parseSignature(n, cxt, kind, immediate)
			}
			scopeOf(cxt).pushSignature(d.sig)
			n.State = d
			return msgs
		},

		AfterParseContent: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			d, _ := n.State.(*defining)
			if d == nil {
				return nil
			}
			scopeOf(cxt).popSignature(d.sig)
			if d.sig.baseline != nil {
				cxt.Config.Restore(d.sig.baseline)
				d.sig.baseline = nil
			}
			return nil
		},

		PrepareExpand: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			d, _ := n.State.(*defining)
			if !immediate || d == nil || !d.sig.valid {
				return nil
			}
			body, msgs := definitionBody(n, kind)
			if msgs != nil {
				return msgs
			}
			def := newCustom(d.sig, body)
			if shorthand {
				return registerShorthand(cxt, n, d, def)
			}
			if cxt.Config.Modifiers(kind).Set(def.Name, def) {
				return []diag.Message{diag.Warnf(diag.Overwrite, n.Head, "redefining %s modifier %q", kind, def.Name)}
			}
			return nil
		},

		Expand: func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool) {
			if !immediate {
				return nil, false
			}
			return []markup.Node{}, true
		},
	}
}

func registerShorthand(cxt *markup.Context, n *markup.Modifier, d *defining, def *markup.Definition) []diag.Message {
	sh := &markup.Shorthand{Prefix: d.sig.name, Parts: d.parts, Postfix: d.postfix, Mod: def}
	var msgs []diag.Message
	if cxt.Config.Shorthands(def.Kind).Has(sh.Prefix) {
		msgs = append(msgs, diag.Warnf(diag.Overwrite, n.Head, "redefining %s shorthand %q", def.Kind, sh.Prefix))
	}
	cxt.Config.AddShorthand(sh)
	return msgs
}

// slotID extracts the name from a "(name)" argument.
func slotID(s string) (string, bool) {
	if len(s) < 3 || !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return "", false
	}
	id := s[1 : len(s)-1]
	return id, isName(id)
}

// parseSignature reads "name|arg...|(slot)".
func parseSignature(n *markup.Modifier, cxt *markup.Context, kind markup.Kind, immediate bool) (*defining, []diag.Message) {
	d := &defining{sig: &signature{kind: kind, immediate: immediate}}
	report := func(code diag.Code, format string, args ...any) (*defining, []diag.Message) {
		if !immediate {
			return d, nil
		}
		return d, []diag.Message{diag.Errorf(code, n.Head, format, args...)}
	}

	values, ok := resolveAll(n, cxt, immediate)
	if !ok {
		return report(diag.CannotExpandArgument, "cannot expand the arguments of %s", n.Name)
	}
	if len(values) == 0 {
		return report(diag.ArgumentCount, "%s expects a name", n.Name)
	}

	sig := d.sig
	sig.name = values[0]
	rest := values[1:]
	if k := len(rest); k > 0 {
		if id, ok := slotID(rest[k-1]); ok {
			sig.slot = id
			rest = rest[:k-1]
		}
	}
	if !isName(sig.name) {
		return report(diag.InvalidArgument, "invalid modifier name %q", sig.name)
	}
	for _, a := range rest {
		if !isName(a) {
			return report(diag.InvalidArgument, "invalid argument name %q", a)
		}
	}
	if reserved[sig.name] {
		return report(diag.AlreadyDefined, "%q is a builtin modifier and cannot be redefined", sig.name)
	}
	if scopeOf(cxt).opened(sig.name) {
		return report(diag.AlreadyDefined, "%q is already being defined", sig.name)
	}
	sig.args = rest
	sig.valid = true
	return d, nil
}

// parseShorthandSignature reads "prefix|arg|part|...|(slot)|postfix", or
// "prefix|arg|part|..." for a shorthand without content.
func parseShorthandSignature(n *markup.Modifier, cxt *markup.Context, kind markup.Kind, immediate bool) (*defining, []diag.Message) {
	d := &defining{sig: &signature{kind: kind, immediate: immediate}}
	report := func(code diag.Code, format string, args ...any) (*defining, []diag.Message) {
		if !immediate {
			return d, nil
		}
		return d, []diag.Message{diag.Errorf(code, n.Head, format, args...)}
	}

	values, ok := resolveAll(n, cxt, immediate)
	if !ok {
		return report(diag.CannotExpandArgument, "cannot expand the arguments of %s", n.Name)
	}
	if len(values) == 0 || values[0] == "" {
		return report(diag.ArgumentCount, "%s expects a prefix", n.Name)
	}

	sig := d.sig
	sig.name = values[0]
	pairs := values[1:]
	for i, v := range pairs {
		id, ok := slotID(v)
		if !ok || i%2 != 0 {
			continue
		}
		tail := pairs[i+1:]
		if len(tail) > 1 {
			return report(diag.ArgumentCount, "%s expects at most a postfix after the slot", n.Name)
		}
		if len(tail) == 1 {
			d.postfix = tail[0]
		}
		sig.slot = id
		pairs = pairs[:i]
		break
	}
	if len(pairs)%2 != 0 {
		return report(diag.ArgumentCount, "%s expects argument and part pairs", n.Name)
	}
	for i := 0; i < len(pairs); i += 2 {
		if !isName(pairs[i]) {
			return report(diag.InvalidArgument, "invalid argument name %q", pairs[i])
		}
		if pairs[i+1] == "" {
			return report(diag.InvalidArgument, "empty shorthand part after %q", pairs[i])
		}
		sig.args = append(sig.args, pairs[i])
		d.parts = append(d.parts, pairs[i+1])
	}
	sig.valid = true
	return d, nil
}

// definitionBody returns the nodes a definition clones at each call. An
// inline definition takes the inline content of its paragraph.
func definitionBody(n *markup.Modifier, kind markup.Kind) ([]markup.Node, []diag.Message) {
	if kind != markup.KindInline || len(n.Content) == 0 {
		return n.Content, nil
	}
	if p, ok := n.Content[0].(*markup.Paragraph); ok && len(n.Content) == 1 {
		return p.Content, nil
	}
	return nil, []diag.Message{diag.Errorf(diag.InvalidArgument, n.Head, "the body of %s must be a paragraph", n.Name)}
}

// newCustom creates the definition registered by define-*. Each call binds
// its arguments, clones the stored body to the call site and keeps an
// instantiation record on the scope while the clone is re-parsed.
func newCustom(sig *signature, body []markup.Node) *markup.Definition {
	slot := markup.SlotNone
	switch {
	case sig.mode == slotPre:
		slot = markup.SlotPreformatted
	case sig.mode == slotNormal, sig.slot != "":
		slot = markup.SlotNormal
	}
	params := markup.Params{Names: sig.args}

	return &markup.Definition{
		Name: sig.name,
		Kind: sig.kind,
		Slot: slot,

		PrepareExpand: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			b, msgs := params.Bind(n, cxt, immediate)
			if b == nil {
				n.State = nil
				return msgs
			}
			n.State = &instantiation{sig: sig, args: b.Values, content: n.Content}
			return msgs
		},

		Expand: func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool) {
			if _, ok := n.State.(*instantiation); !ok {
				return []markup.Node{}, true
			}
			return markup.CloneNodes(body, n.Loc), true
		},

		BeforeProcessExpansion: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			if inst, ok := n.State.(*instantiation); ok {
				scopeOf(cxt).pushInstance(inst)
			}
			return nil
		},

		AfterProcessExpansion: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			if inst, ok := n.State.(*instantiation); ok {
				scopeOf(cxt).popInstance(inst)
			}
			return nil
		},
	}
}
