// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package markup

import (
	"strings"

	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/scanner"
	"nickandperla.net/emark/internal/source"
	"nickandperla.net/emark/internal/token"
)

// Inspector observes the parse the first time it reaches Offset. Inspect
// receives a snapshot of the context at that point.
type Inspector struct {
	Offset  int
	Inspect func(snapshot *Context)
}

// Parser is the recursive-descent parser of one document. It drives the
// expansion engine as modifiers are recognized.
type Parser struct {
	cxt         *Context
	src         *source.Source
	scanner     *scanner.Scanner
	messages    diag.List
	delayDepth  int      // Nesting of delaying ancestors
	groupDepth  int      // Open <<< groups
	terminators []string // Closers of the enclosing inline bodies
}

// Parse parses src against cxt. cxt is mutated; callers that reuse a base
// context pass a clone. Parse never fails: problems are reported in the
// document's messages.
func Parse(src *source.Source, cxt *Context, inspectors ...Inspector) *Document {
	p := &Parser{cxt: cxt, src: src}
	probes := make([]scanner.Probe, 0, len(inspectors))
	for _, ins := range inspectors {
		ins := ins
		probes = append(probes, scanner.Probe{
			Offset: ins.Offset,
			Fire:   func() { ins.Inspect(p.cxt.Clone()) },
		})
	}
	p.scanner = scanner.New(src, probes...)

	root := &Root{Source: src}
	root.Content = p.blocks()
	p.scanner.Finish()
	root.Loc = source.NewRange(src, 0, src.Len())

	return &Document{Root: root, Context: cxt, Messages: p.messages}
}

func (p *Parser) pos() int {
	return p.scanner.Position()
}

func (p *Parser) rangeFrom(start int) source.Range {
	return p.scanner.Range(start)
}

func (p *Parser) errorf(code diag.Code, r source.Range, format string, args ...any) {
	p.messages = append(p.messages, diag.Errorf(code, r, format, args...))
}

func (p *Parser) warnf(code diag.Code, r source.Range, format string, args ...any) {
	p.messages = append(p.messages, diag.Warnf(code, r, format, args...))
}

// restOfLine returns the unconsumed text up to the next newline.
func (p *Parser) restOfLine() string {
	rest := p.scanner.Remaining()
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// nextLine returns the line after the current one.
func (p *Parser) nextLine() (string, bool) {
	rest := p.scanner.Remaining()
	i := strings.IndexByte(rest, '\n')
	if i < 0 {
		return "", false
	}
	rest = rest[i+1:]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		return rest[:j], true
	}
	return rest, true
}

func (p *Parser) skipLine() {
	for !p.scanner.IsEOF() && !p.scanner.Peek("\n") {
		p.scanner.Consume()
	}
}

func blank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func (p *Parser) isGroupClose(line string) bool {
	return p.groupDepth > 0 && strings.HasPrefix(strings.TrimLeft(line, " \t"), token.SigilGroupClose)
}

func (p *Parser) atGroupClose() bool {
	return p.groupDepth > 0 && p.scanner.Peek(token.SigilGroupClose)
}

// blocks parses block entities up to EOF or the close of the current group.
func (p *Parser) blocks() []Node {
	var nodes []Node
	for {
		p.scanner.SkipWhitespace()
		if !p.scanner.Accept("\n") {
			break
		}
	}
	for !p.scanner.IsEOF() {
		if p.atGroupClose() {
			break
		}
		start := p.pos()
		if n := p.blockEntity(); n != nil {
			nodes = append(nodes, n)
		}
		if p.pos() == start {
			p.scanner.Consume()
			continue
		}
		p.blockSeparator()
	}
	return nodes
}

// blockSeparator consumes the newlines after a block entity and applies the
// newline policy.
func (p *Parser) blockSeparator() {
	start := p.pos()
	newlines := 0
	for {
		p.scanner.SkipWhitespace()
		if !p.scanner.Accept("\n") {
			break
		}
		newlines++
	}
	switch {
	case p.scanner.IsEOF():
	case newlines == 0:
		p.warnf(diag.ExpectedNewline, p.rangeFrom(start), "expected a newline before the next block")
	case newlines > 2:
		p.warnf(diag.SuperfluousNewline, p.rangeFrom(start), "superfluous newlines")
	}
}

func (p *Parser) blockEntity() Node {
	switch {
	case p.scanner.Peek(token.SigilBlockOpen):
		return p.modifier(KindBlock)
	case p.scanner.Peek(token.SigilSystemOpen):
		return p.modifier(KindSystem)
	}
	if sh, ok := p.matchShorthand(KindBlock); ok {
		return p.shorthand(sh, KindBlock)
	}
	if p.scanner.Peek(token.SigilGroupOpen) {
		return p.group()
	}
	return p.paragraph()
}

func (p *Parser) matchShorthand(kind Kind) (*Shorthand, bool) {
	_, sh, ok := p.cxt.Config.Shorthands(kind).LongestPrefix(p.scanner.Remaining(), nil)
	return sh, ok
}

func (p *Parser) matchInterpolator() (*Interpolator, bool) {
	_, ip, ok := p.cxt.Config.Interpolators.LongestPrefix(p.scanner.Remaining(), nil)
	return ip, ok
}

func (p *Parser) group() Node {
	start := p.pos()
	p.scanner.Accept(token.SigilGroupOpen)
	if !blank(p.restOfLine()) {
		p.warnf(diag.ExpectedNewline, p.rangeFrom(start), "expected a newline after %s", token.SigilGroupOpen)
	}

	p.groupDepth++
	content := p.blocks()
	p.groupDepth--

	end := p.pos()
	if !p.scanner.Accept(token.SigilGroupClose) {
		p.errorf(diag.MissingClosing, source.NewRange(p.src, start, start+len(token.SigilGroupOpen)),
			"group is not closed with %s", token.SigilGroupClose)
	}
	loc := p.rangeFrom(start)
	loc.ActualEnd = end
	return &Group{Loc: loc, Content: content}
}

func (p *Parser) paragraph() Node {
	start := p.pos()
	content := trimNodes(p.inlines())
	if len(content) == 0 {
		return nil
	}
	return &Paragraph{Loc: p.rangeFrom(start), Content: content}
}

// paragraphEnds is called at a newline and decides whether the next line
// still belongs to the paragraph.
func (p *Parser) paragraphEnds() bool {
	line, ok := p.nextLine()
	if !ok || blank(line) {
		return true
	}
	line = strings.TrimLeft(line, " \t")
	for _, lit := range []string{token.SigilBlockOpen, token.SigilSystemOpen, token.SigilGroupOpen} {
		if strings.HasPrefix(line, lit) {
			return true
		}
	}
	if p.isGroupClose(line) {
		return true
	}
	_, _, isShorthand := p.cxt.Config.BlockShorthands.LongestPrefix(line, nil)
	return isShorthand
}

func (p *Parser) atTerminator() bool {
	for i := len(p.terminators) - 1; i >= 0; i-- {
		if p.scanner.Peek(p.terminators[i]) {
			return true
		}
	}
	return false
}

// inlines parses inline entities up to the end of the paragraph or the
// closer of an enclosing inline body.
func (p *Parser) inlines() []Node {
	var (
		nodes     []Node
		text      strings.Builder
		textStart int
	)
	add := func(s string, at int) {
		if text.Len() == 0 {
			textStart = at
		}
		text.WriteString(s)
	}
	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, &Text{Loc: p.rangeFrom(textStart), Content: text.String()})
			text.Reset()
		}
	}

loop:
	for !p.scanner.IsEOF() {
		if p.atTerminator() {
			break
		}
		at := p.pos()
		switch {
		case p.scanner.Peek("\n"):
			if p.paragraphEnds() {
				break loop
			}
			p.scanner.Accept("\n")
			add("\n", at)
			p.scanner.SkipWhitespace()
			continue
		case p.scanner.Peek(token.SigilInlineOpen):
			flush()
			nodes = append(nodes, p.modifier(KindInline))
			continue
		case p.scanner.Peek(token.SigilBlockOpen), p.scanner.Peek(token.SigilSystemOpen):
			break loop
		}
		if sh, ok := p.matchShorthand(KindInline); ok {
			flush()
			nodes = append(nodes, p.shorthand(sh, KindInline))
			continue
		}
		if p.scanner.Accept(token.SigilEscape) {
			flush()
			r, err := p.scanner.Consume()
			if err != nil {
				add(token.SigilEscape, at)
				continue
			}
			nodes = append(nodes, &Escaped{Loc: p.rangeFrom(at), Content: string(r)})
			continue
		}
		if p.scanner.AcceptWhitespace() {
			p.scanner.SkipWhitespace()
			add(" ", at)
			continue
		}
		r, _ := p.scanner.Consume()
		add(string(r), at)
	}
	flush()
	return nodes
}

// trimNodes trims the outer whitespace of the first and last text nodes.
func trimNodes(nodes []Node) []Node {
	if len(nodes) > 0 {
		if t, ok := nodes[0].(*Text); ok {
			t.Content = strings.TrimLeft(t.Content, " \t\n")
			if t.Content == "" {
				nodes = nodes[1:]
			}
		}
	}
	if len(nodes) > 0 {
		if t, ok := nodes[len(nodes)-1].(*Text); ok {
			t.Content = strings.TrimRight(t.Content, " \t\n")
			if t.Content == "" {
				nodes = nodes[:len(nodes)-1]
			}
		}
	}
	return nodes
}

func (p *Parser) modifier(kind Kind) Node {
	start := p.pos()
	p.scanner.Accept(kind.Open().Sigil())
	def, name := p.modifierName(kind)
	p.scanner.SkipWhitespace()
	args := p.arguments(token.SigilTagClose, token.SigilMarkerClose)

	marker := false
	switch {
	case p.scanner.Accept(token.SigilMarkerClose):
		marker = true
	case p.scanner.Accept(token.SigilTagClose):
	default:
		p.errorf(diag.UnclosedTag, p.rangeFrom(start), "tag %s%s is not closed with %s",
			kind.Open().Sigil(), name, token.SigilTagClose)
	}

	head := p.rangeFrom(start)
	n := &Modifier{Kind: kind, Loc: head, Head: head, Def: def, Name: name, Args: args}
	if def.IsUnknown() && p.delayDepth == 0 {
		p.errorf(diag.UnknownModifier, head, "unknown %s modifier %q", kind, name)
	}

	contentEnd := -1
	var body func() []Node
	if !marker {
		body = func() []Node {
			var nodes []Node
			nodes, contentEnd = p.tagBody(n)
			return nodes
		}
	}
	p.parseContent(n, body)

	n.Loc = p.rangeFrom(start)
	if contentEnd >= 0 {
		n.Loc.ActualEnd = contentEnd
	}
	p.finish(n)
	return n
}

func (p *Parser) modifierName(kind Kind) (*Definition, string) {
	rest := p.scanner.Remaining()
	name, def, ok := p.cxt.Config.Modifiers(kind).LongestPrefix(rest, func(name string) bool {
		return nameBoundary(rest, name)
	})
	if ok {
		p.scanner.Accept(name)
		return def, name
	}
	return StandIn(kind), p.scanner.ScanName()
}

func (p *Parser) tagBody(n *Modifier) ([]Node, int) {
	switch {
	case n.Kind == KindInline && n.Def.Slot == SlotPreformatted:
		return p.verbatimUntil(n, token.SigilInlineEnd)
	case n.Kind == KindInline:
		return p.inlineBody(n, token.SigilInlineEnd)
	case n.Def.Slot == SlotPreformatted:
		return p.preformattedBlock()
	}
	return p.blockBody()
}

func (p *Parser) inlineBody(n *Modifier, end string) ([]Node, int) {
	if end != "" {
		p.terminators = append(p.terminators, end)
	}
	content := trimNodes(p.inlines())
	if end != "" {
		p.terminators = p.terminators[:len(p.terminators)-1]
	}
	contentEnd := p.pos()
	if end != "" && !p.scanner.Accept(end) {
		p.errorf(diag.MissingClosing, n.Head, "%s is not closed with %q", describe(n), end)
	}
	return content, contentEnd
}

func (p *Parser) verbatimUntil(n *Modifier, end string) ([]Node, int) {
	start := p.pos()
	for !p.scanner.IsEOF() {
		if end != "" && p.scanner.Peek(end) {
			break
		}
		if p.scanner.Peek("\n") && p.paragraphEnds() {
			break
		}
		p.scanner.Consume()
	}
	contentEnd := p.pos()
	pre := &Preformatted{Loc: p.rangeFrom(start), Content: p.src.Text[start:contentEnd]}
	if end != "" && !p.scanner.Accept(end) {
		p.errorf(diag.MissingClosing, n.Head, "%s is not closed with %q", describe(n), end)
	}
	return []Node{pre}, contentEnd
}

// bodyLineEmpty is called at the newline ending a tag line. It reports
// whether the body is empty because no content follows.
func (p *Parser) bodyLineEmpty() bool {
	line, ok := p.nextLine()
	return !ok || blank(line) || p.isGroupClose(line)
}

// blockBody parses the single block entity that forms a block modifier's
// body, either on the rest of the tag line or on the next line.
func (p *Parser) blockBody() ([]Node, int) {
	p.scanner.SkipWhitespace()
	if p.scanner.IsEOF() {
		return nil, p.pos()
	}
	if p.scanner.Peek("\n") {
		if p.bodyLineEmpty() {
			return nil, p.pos()
		}
		p.scanner.Accept("\n")
		p.scanner.SkipWhitespace()
	}
	n := p.blockEntity()
	end := p.pos()
	if n == nil {
		return nil, end
	}
	return []Node{n}, end
}

// preformattedBlock takes a verbatim body: a <<< >>> delimited run of lines,
// or the lines up to the next blank line.
func (p *Parser) preformattedBlock() ([]Node, int) {
	p.scanner.SkipWhitespace()
	if p.scanner.Peek("\n") {
		if p.bodyLineEmpty() {
			return nil, p.pos()
		}
		p.scanner.Accept("\n")
	}
	if p.scanner.IsEOF() {
		return nil, p.pos()
	}

	start := p.pos()
	if strings.TrimSpace(p.restOfLine()) == token.SigilGroupOpen {
		p.skipLine()
		p.scanner.Accept("\n")
		bodyStart, bodyEnd := p.pos(), p.pos()
		closed := false
		for !p.scanner.IsEOF() {
			if strings.TrimSpace(p.restOfLine()) == token.SigilGroupClose {
				p.skipLine()
				closed = true
				break
			}
			p.skipLine()
			bodyEnd = p.pos()
			p.scanner.Accept("\n")
		}
		if !closed {
			p.errorf(diag.MissingClosing, source.NewRange(p.src, start, start+len(token.SigilGroupOpen)),
				"preformatted group is not closed with %s", token.SigilGroupClose)
		}
		loc := p.rangeFrom(start)
		loc.ActualEnd = bodyEnd
		return []Node{&Preformatted{Loc: loc, Content: p.src.Text[bodyStart:bodyEnd]}}, bodyEnd
	}

	end := start
	for !p.scanner.IsEOF() {
		line := p.restOfLine()
		if blank(line) || p.isGroupClose(line) {
			break
		}
		p.skipLine()
		end = p.pos()
		if next, ok := p.nextLine(); !ok || blank(next) || p.isGroupClose(next) {
			break
		}
		p.scanner.Accept("\n")
	}
	pre := &Preformatted{Loc: source.NewRange(p.src, start, end), Content: p.src.Text[start:end]}
	return []Node{pre}, end
}

func (p *Parser) shorthand(sh *Shorthand, kind Kind) Node {
	start := p.pos()
	p.scanner.Accept(sh.Prefix)
	args := &Arguments{}
	for _, part := range sh.Parts {
		arg, _ := p.argument("", []string{part}, false)
		args.Positional = append(args.Positional, arg)
		if !p.scanner.Accept(part) {
			p.errorf(diag.MissingClosing, p.rangeFrom(start), "shorthand %s expects %q", sh.Prefix, part)
		}
	}

	head := p.rangeFrom(start)
	n := &Modifier{Kind: kind, Loc: head, Head: head, Def: sh.Mod, Name: sh.Mod.Name, Args: args}

	contentEnd := -1
	var body func() []Node
	if sh.Mod.Slot != SlotNone {
		body = func() []Node {
			var nodes []Node
			switch {
			case kind == KindInline && sh.Mod.Slot == SlotPreformatted:
				nodes, contentEnd = p.verbatimUntil(n, sh.Postfix)
			case kind == KindInline:
				nodes, contentEnd = p.inlineBody(n, sh.Postfix)
			default:
				if sh.Mod.Slot == SlotPreformatted {
					nodes, contentEnd = p.preformattedBlock()
				} else {
					nodes, contentEnd = p.blockBody()
				}
				if sh.Postfix != "" {
					p.scanner.SkipWhitespace()
					if !p.scanner.Accept(sh.Postfix) {
						p.errorf(diag.MissingClosing, n.Head, "shorthand %s is not closed with %q", sh.Prefix, sh.Postfix)
					}
				}
			}
			return nodes
		}
	}
	p.parseContent(n, body)

	n.Loc = p.rangeFrom(start)
	if contentEnd >= 0 {
		n.Loc.ActualEnd = contentEnd
	}
	p.finish(n)
	return n
}

func (p *Parser) atArgumentEnd(terms []string) bool {
	if p.scanner.IsEOF() || p.scanner.Peek("\n") {
		return true
	}
	for _, t := range terms {
		if p.scanner.Peek(t) {
			return true
		}
	}
	return false
}

// arguments parses a separated argument list up to one of terms.
func (p *Parser) arguments(terms ...string) *Arguments {
	args := &Arguments{}
	if p.atArgumentEnd(terms) {
		return args
	}
	sep := p.cxt.Config.separator()
	for {
		arg, name := p.argument(sep, terms, true)
		if name != "" {
			if args.setNamed(name, arg) {
				p.errorf(diag.DuplicateArgument, arg.Loc, "duplicate argument %q, the last value is used", name)
			}
		} else {
			args.Positional = append(args.Positional, arg)
		}
		if !p.scanner.Accept(sep) {
			break
		}
	}
	return args
}

// argument parses one argument. When named is set, a name followed by "="
// before any escape or interpolation makes it a named argument.
func (p *Parser) argument(sep string, terms []string, named bool) (*Argument, string) {
	start := p.pos()
	arg := &Argument{}
	var (
		text      strings.Builder
		textStart = start
		name      string
		plain     = named
	)
	flush := func() {
		if text.Len() > 0 {
			arg.Content = append(arg.Content, &Text{Loc: p.rangeFrom(textStart), Content: text.String()})
			text.Reset()
		}
	}

	for !p.atArgumentEnd(terms) && !(sep != "" && p.scanner.Peek(sep)) {
		at := p.pos()
		if p.scanner.Accept(token.SigilEscape) {
			plain = false
			flush()
			r, err := p.scanner.Consume()
			if err != nil {
				break
			}
			arg.Content = append(arg.Content, &Escaped{Loc: p.rangeFrom(at), Content: string(r)})
			continue
		}
		if ip, ok := p.matchInterpolator(); ok {
			plain = false
			flush()
			arg.Content = append(arg.Content, p.interpolation(ip))
			continue
		}
		if plain && p.scanner.Peek(token.SigilNamed) {
			plain = false
			if candidate := strings.TrimSpace(text.String()); isName(candidate) {
				p.scanner.Accept(token.SigilNamed)
				p.scanner.SkipWhitespace()
				name = candidate
				text.Reset()
				continue
			}
		}
		r, _ := p.scanner.Consume()
		if text.Len() == 0 {
			textStart = at
		}
		text.WriteRune(r)
	}
	flush()
	arg.Loc = p.rangeFrom(start)
	arg.Content = trimNodes(arg.Content)
	return arg, name
}

func (p *Parser) interpolation(ip *Interpolator) Node {
	start := p.pos()
	p.scanner.Accept(ip.Prefix)
	inner, _ := p.argument("", []string{ip.Postfix}, false)
	if !p.scanner.Accept(ip.Postfix) {
		p.errorf(diag.MissingClosing, p.rangeFrom(start), "interpolation %s is not closed with %q", ip.Prefix, ip.Postfix)
	}
	return &Interpolation{Loc: p.rangeFrom(start), Def: ip, Arg: inner}
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
