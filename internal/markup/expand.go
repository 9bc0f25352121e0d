// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package markup

import "nickandperla.net/emark/internal/diag"

// parseContent runs the first half of an instance's lifecycle: the
// before/after content callbacks around the body. body is nil for markers.
func (p *Parser) parseContent(n *Modifier, body func() []Node) {
	immediate := p.delayDepth == 0
	active := immediate || n.Def.AlwaysTryExpand

	if active {
		p.invoke(n, "beforeParseContent", n.Def.BeforeParseContent, immediate)
	}
	if body != nil && n.Def.Slot != SlotNone {
		if n.Def.DelayContentExpansion {
			p.delayDepth++
		}
		n.Content = body()
		if n.Def.DelayContentExpansion {
			p.delayDepth--
		}
	}
	if active {
		p.invoke(n, "afterParseContent", n.Def.AfterParseContent, immediate)
	}
}

// finish tries to expand a freshly parsed instance.
func (p *Parser) finish(n *Modifier) {
	immediate := p.delayDepth == 0
	if immediate || n.Def.AlwaysTryExpand {
		p.expand(n, 0)
	}
	if immediate {
		n.done = true
	}
}

// expand asks the definition for an expansion and re-parses it. It returns
// false when the re-parse ran past the depth limit; at depth 0 that failure
// is reported once and the instance expands to nothing.
func (p *Parser) expand(n *Modifier, depth int) bool {
	if n.Expanded {
		return true
	}
	immediate := p.delayDepth == 0
	if !immediate && !n.Def.AlwaysTryExpand {
		return true
	}

	p.invoke(n, "prepareExpand", n.Def.PrepareExpand, immediate)
	nodes, ok := p.invokeExpand(n, immediate)
	if !ok {
		return true
	}
	n.SetExpansion(nodes)
	if len(n.Expansion) == 0 {
		return true
	}

	p.invoke(n, "beforeProcessExpansion", n.Def.BeforeProcessExpansion, immediate)
	ok = p.reparse(n.Expansion, depth+1)
	p.invoke(n, "afterProcessExpansion", n.Def.AfterProcessExpansion, immediate)
	if ok {
		return true
	}
	if depth > 0 {
		return false
	}
	n.SetExpansion(nil)
	p.report(n, diag.Errorf(diag.RecursionLimit, n.Loc,
		"reached the recursion limit (%d) while expanding %s", p.cxt.Config.depthLimit(), describe(n)))
	return true
}

// reparse replays the lifecycle of the instances in an expansion.
func (p *Parser) reparse(nodes []Node, depth int) bool {
	if depth > p.cxt.Config.depthLimit() {
		return false
	}
	for _, n := range nodes {
		switch n := n.(type) {
		case *Paragraph:
			if !p.reparse(n.Content, depth) {
				return false
			}
		case *Group:
			if !p.reparse(n.Content, depth) {
				return false
			}
		case *Root:
			if !p.reparse(n.Content, depth) {
				return false
			}
		case *Modifier:
			if !p.reparseModifier(n, depth) {
				return false
			}
		}
	}
	return true
}

func (p *Parser) reparseModifier(n *Modifier, depth int) bool {
	if n.done || n.Expanded {
		return true
	}
	immediate := p.delayDepth == 0

	// Names that were unknown when the body was stored may exist now.
	if n.Def.IsUnknown() && immediate {
		if def, ok := p.cxt.Config.Modifiers(n.Kind).Get(n.Name); ok {
			n.Def = def
		} else {
			p.report(n, diag.Errorf(diag.UnknownModifier, n.Head, "unknown %s modifier %q", n.Kind, n.Name))
		}
	}

	active := immediate || n.Def.AlwaysTryExpand
	if active {
		p.invoke(n, "beforeParseContent", n.Def.BeforeParseContent, immediate)
	}
	if n.Def.DelayContentExpansion {
		p.delayDepth++
	}
	ok := p.reparse(n.Content, depth)
	if n.Def.DelayContentExpansion {
		p.delayDepth--
	}
	if active {
		p.invoke(n, "afterParseContent", n.Def.AfterParseContent, immediate)
	}
	if ok && active {
		ok = p.expand(n, depth)
	}
	if immediate {
		n.done = true
	}
	return ok
}

// report attaches a message to the document. Messages raised on nodes that
// were produced by expansion point back to where the node was written.
func (p *Parser) report(n *Modifier, m diag.Message) {
	if m.Range.Original == nil && n.Loc.Original != nil {
		m.Range.Original = n.Loc.Original
	}
	p.messages = append(p.messages, m)
}

func (p *Parser) invoke(n *Modifier, stage string, cb Callback, immediate bool) {
	if cb == nil {
		return
	}
	defer p.recoverStage(n, stage)
	for _, m := range cb(n, p.cxt, immediate) {
		p.report(n, m)
	}
}

func (p *Parser) recoverStage(n *Modifier, stage string) {
	if r := recover(); r != nil {
		p.report(n, diag.Errorf(diag.InternalError, n.Head, "internal error in %s of %s: %v", stage, describe(n), r))
	}
}

// invokeExpand calls the definition's expand hook. A hook that panics is
// treated as having expanded to nothing.
func (p *Parser) invokeExpand(n *Modifier, immediate bool) (nodes []Node, ok bool) {
	if n.Def.Expand == nil {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			p.report(n, diag.Errorf(diag.InternalError, n.Head, "internal error in expand of %s: %v", describe(n), r))
			nodes, ok = []Node{}, true
		}
	}()
	return n.Def.Expand(n, p.cxt, immediate)
}
