// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package builtin

import (
	"strconv"
	"strings"

	"nickandperla.net/emark/internal/diag"
	"nickandperla.net/emark/internal/markup"
	"nickandperla.net/emark/internal/source"
)

// MaxHeadingLevel is the deepest heading level.
const MaxHeadingLevel = 6

// Heading is one entry of the heading table a document builds.
type Heading struct {
	Level  int
	Number []int // Section number, one entry per level
	Text   string
	Loc    source.Range
}

// Label formats the section number as "1.2.3".
func (h Heading) Label() string {
	parts := make([]string, len(h.Number))
	for i, n := range h.Number {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Note is a captured note body.
type Note struct {
	ID      string
	Content []markup.Node
	Loc     source.Range
}

type headings struct {
	entries  []Heading
	counters [MaxHeadingLevel]int
}

type notes struct {
	entries []Note
}

var headingsKey = markup.NewStateKey("headings", func() *headings { return &headings{} }, func(h *headings) *headings {
	c := *h
	c.entries = append([]Heading(nil), h.entries...)
	return &c
})

var notesKey = markup.NewStateKey("notes", func() *notes { return &notes{} }, func(n *notes) *notes {
	return &notes{entries: append([]Note(nil), n.entries...)}
})

// Headings returns the headings recorded in cxt, in document order.
func Headings(cxt *markup.Context) []Heading {
	return append([]Heading(nil), headingsKey.Get(cxt).entries...)
}

// Notes returns the notes captured in cxt, in document order.
func Notes(cxt *markup.Context) []Note {
	return append([]Note(nil), notesKey.Get(cxt).entries...)
}

func (h *headings) add(level int, text string, loc source.Range) Heading {
	h.counters[level-1]++
	for i := level; i < MaxHeadingLevel; i++ {
		h.counters[i] = 0
	}
	num := make([]int, level)
	copy(num, h.counters[:level])
	entry := Heading{Level: level, Number: num, Text: text, Loc: loc}
	h.entries = append(h.entries, entry)
	return entry
}

// RegisterLibrary adds the document modifiers and their shorthands.
func RegisterLibrary(cfg *markup.Configuration) {
	heading := headingDef(0)
	quote := leafDef("quote", markup.KindBlock, markup.SlotNormal, markup.Params{})
	item := leafDef("item", markup.KindBlock, markup.SlotNormal, markup.Params{})
	emphasis := leafDef("emphasis", markup.KindInline, markup.SlotNormal, markup.Params{})
	strong := leafDef("strong", markup.KindInline, markup.SlotNormal, markup.Params{})
	inlineCode := leafDef("code", markup.KindInline, markup.SlotPreformatted, markup.Params{})

	cfg.Add(
		heading,
		quote,
		leafDef("list", markup.KindBlock, markup.SlotNormal, markup.Params{}),
		leafDef("numbered-list", markup.KindBlock, markup.SlotNormal, markup.Params{Names: []string{"start"}, Optional: 1}),
		item,
		leafDef("table", markup.KindBlock, markup.SlotNormal, markup.Params{Names: []string{"columns"}, Optional: 1}),
		leafDef("row", markup.KindBlock, markup.SlotNormal, markup.Params{}),
		leafDef("cell", markup.KindBlock, markup.SlotNormal, markup.Params{}),
		leafDef("code", markup.KindBlock, markup.SlotPreformatted, markup.Params{Names: []string{"language"}, Optional: 1}),
		inlineCode,
		emphasis,
		strong,
		leafDef("link", markup.KindInline, markup.SlotNormal, markup.Params{Names: []string{"url"}}),
		noteDef(),
		leafDef("note", markup.KindInline, markup.SlotNone, idParam),
	)

	for level := 1; level <= MaxHeadingLevel; level++ {
		cfg.AddShorthand(&markup.Shorthand{Prefix: strings.Repeat("#", level) + " ", Mod: headingDef(level)})
	}
	cfg.AddShorthand(&markup.Shorthand{Prefix: "> ", Mod: quote})
	cfg.AddShorthand(&markup.Shorthand{Prefix: "- ", Mod: item})
	cfg.AddShorthand(&markup.Shorthand{Prefix: "*", Postfix: "*", Mod: emphasis})
	cfg.AddShorthand(&markup.Shorthand{Prefix: "**", Postfix: "**", Mod: strong})
	cfg.AddShorthand(&markup.Shorthand{Prefix: "`", Postfix: "`", Mod: inlineCode})
}

// leafDef builds a modifier that only checks its arguments. Renderers
// interpret it; it never expands.
func leafDef(name string, kind markup.Kind, slot markup.SlotKind, params markup.Params) *markup.Definition {
	return &markup.Definition{
		Name: name,
		Kind: kind,
		Slot: slot,
		PrepareExpand: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			_, msgs := params.Bind(n, cxt, immediate)
			return msgs
		},
	}
}

// headingDef builds the heading modifier. A fixed level is used by the
// "#" shorthands; level 0 reads it from the optional argument.
func headingDef(level int) *markup.Definition {
	params := markup.Params{Names: []string{"level"}, Optional: 1}
	if level > 0 {
		params = markup.Params{}
	}
	return &markup.Definition{
		Name: "heading",
		Kind: markup.KindBlock,
		Slot: markup.SlotNormal,
		PrepareExpand: func(n *markup.Modifier, cxt *markup.Context, immediate bool) []diag.Message {
			b, msgs := params.Bind(n, cxt, immediate)
			if b == nil {
				return msgs
			}
			lvl := level
			if lvl == 0 {
				lvl = 1
				if b.Has("level") {
					v, err := strconv.Atoi(b.Get("level"))
					if err != nil || v < 1 || v > MaxHeadingLevel {
						return append(msgs, diag.Errorf(diag.InvalidArgument, b.Nodes["level"].Loc,
							"heading level must be between 1 and %d", MaxHeadingLevel))
					}
					lvl = v
				}
			}
			entry := headingsKey.Get(cxt).add(lvl, markup.PlainText(n.Content), n.Loc)
			n.State = entry
			return msgs
		},
	}
}

// noteDef captures a note body into the notes table. The note itself
// contributes nothing to the document flow.
func noteDef() *markup.Definition {
	params := markup.Params{Names: []string{"id"}, Optional: 1}
	def := &markup.Definition{Name: "note", Kind: markup.KindBlock, Slot: markup.SlotNormal}
	return staged(def, func(n *markup.Modifier, cxt *markup.Context, immediate bool) ([]markup.Node, bool, []diag.Message) {
		b, msgs := params.Bind(n, cxt, immediate)
		if b == nil {
			return failed(immediate, msgs)
		}
		st := notesKey.Get(cxt)
		id := b.Get("id")
		if id == "" {
			id = strconv.Itoa(len(st.entries) + 1)
		}
		st.entries = append(st.entries, Note{ID: id, Content: n.Content, Loc: n.Loc})
		return []markup.Node{}, true, msgs
	})
}
