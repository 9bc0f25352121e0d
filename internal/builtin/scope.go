// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package builtin

import (
	"nickandperla.net/emark/internal/markup"
)

// slotMode records which slot kind a definition's body uses.
type slotMode int

const (
	slotUnset slotMode = iota
	slotNormal
	slotPre
)

// signature is a custom definition whose body is still being parsed.
type signature struct {
	name      string
	kind      markup.Kind // kind of the modifier being defined
	args      []string
	slot      string
	mode      slotMode
	immediate bool
	valid     bool
	seq       int

	// baseline is the registry before a module was used in the body.
	baseline *markup.DefinitionSet
}

// instantiation is one call of a custom definition while its cloned body
// is re-parsed.
type instantiation struct {
	sig     *signature
	args    map[string]string
	content []markup.Node
	seq     int
}

// scope holds the open signatures and live instantiations of one context.
type scope struct {
	signatures []*signature
	blocks     []*instantiation
	inlines    []*instantiation
	seq        int
}

var scopeKey = markup.NewStateKey("custom", func() *scope { return &scope{} }, func(s *scope) *scope {
	return &scope{
		signatures: append([]*signature(nil), s.signatures...),
		blocks:     append([]*instantiation(nil), s.blocks...),
		inlines:    append([]*instantiation(nil), s.inlines...),
		seq:        s.seq,
	}
})

func scopeOf(cxt *markup.Context) *scope {
	return scopeKey.Get(cxt)
}

func (s *scope) next() int {
	s.seq++
	return s.seq
}

func (s *scope) pushSignature(sig *signature) {
	sig.seq = s.next()
	s.signatures = append(s.signatures, sig)
}

func (s *scope) popSignature(sig *signature) {
	if len(s.signatures) == 0 || s.signatures[len(s.signatures)-1] != sig {
		panic("unbalanced signature stack")
	}
	s.signatures = s.signatures[:len(s.signatures)-1]
}

func (s *scope) innermostSignature() *signature {
	if len(s.signatures) == 0 {
		return nil
	}
	return s.signatures[len(s.signatures)-1]
}

func (s *scope) stack(kind markup.Kind) *[]*instantiation {
	if kind == markup.KindInline {
		return &s.inlines
	}
	return &s.blocks
}

func (s *scope) pushInstance(inst *instantiation) {
	inst.seq = s.next()
	st := s.stack(inst.sig.kind)
	*st = append(*st, inst)
}

func (s *scope) popInstance(inst *instantiation) {
	st := s.stack(inst.sig.kind)
	if len(*st) == 0 || (*st)[len(*st)-1] != inst {
		panic("unbalanced instantiation stack")
	}
	*st = (*st)[:len(*st)-1]
}

// target finds the innermost open signature or live instantiation of kind,
// optionally restricted to the slot named id. At most one result is set.
func (s *scope) target(kind markup.Kind, id string) (*signature, *instantiation) {
	var (
		sig  *signature
		inst *instantiation
		best int
	)
	for _, cand := range s.signatures {
		if cand.kind == kind && (id == "" || cand.slot == id) && cand.seq > best {
			sig, inst, best = cand, nil, cand.seq
		}
	}
	for _, cand := range *s.stack(kind) {
		if (id == "" || cand.sig.slot == id) && cand.seq > best {
			sig, inst, best = nil, cand, cand.seq
		}
	}
	return sig, inst
}

func (s *scope) opened(name string) bool {
	for _, sig := range s.signatures {
		if sig.name == name {
			return true
		}
	}
	return false
}

// lookup resolves an identifier. blocked is set when the name is a formal
// argument of a definition still being parsed.
func lookup(cxt *markup.Context, name string) (value string, found, blocked bool) {
	s := scopeOf(cxt)
	for _, sig := range s.signatures {
		for _, a := range sig.args {
			if a == name {
				return "", false, true
			}
		}
	}
	for _, insts := range [][]*instantiation{s.inlines, s.blocks} {
		for i := len(insts) - 1; i >= 0; i-- {
			if v, ok := insts[i].args[name]; ok {
				return v, true, false
			}
		}
	}
	v, ok := cxt.Variables[name]
	return v, ok, false
}
