// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package source holds named markup sources and the ranges that point into them.
package source

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Source is a named, immutable piece of markup text.
type Source struct {
	Name string
	Text string

	lineStarts []int
}

// New creates a Source and indexes its line starts.
func New(name, text string) *Source {
	s := &Source{Name: name, Text: text, lineStarts: []int{0}}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			s.lineStarts = append(s.lineStarts, i+1)
		}
	}
	return s
}

// Len returns the length of the text in bytes.
func (s *Source) Len() int {
	return len(s.Text)
}

// LineCount returns the number of lines, counting a trailing empty line.
func (s *Source) LineCount() int {
	return len(s.lineStarts)
}

// Position returns the zero-based line and column (in runes) of a byte offset.
// Offsets past the end are clamped.
func (s *Source) Position(offset int) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.Text) {
		offset = len(s.Text)
	}
	line = sort.Search(len(s.lineStarts), func(i int) bool {
		return s.lineStarts[i] > offset
	}) - 1
	col = utf8.RuneCountInString(s.Text[s.lineStarts[line]:offset])
	return line, col
}

// LineStart returns the byte offset where a zero-based line begins.
func (s *Source) LineStart(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(s.lineStarts) {
		return len(s.Text)
	}
	return s.lineStarts[line]
}

// Range is a span of a Source. ActualEnd marks where the content ends when a
// trailing delimiter follows it; it equals End otherwise. Original links a
// range synthesized during macro expansion back to the range it was cloned from.
type Range struct {
	Source    *Source
	Start     int
	End       int
	ActualEnd int
	Original  *Range
}

// NewRange creates a range without a separate content end.
func NewRange(src *Source, start, end int) Range {
	return Range{Source: src, Start: start, End: end, ActualEnd: end}
}

// Contains reports whether offset lies within the range, ends inclusive.
func (r Range) Contains(offset int) bool {
	return r.Start <= offset && offset <= r.End
}

// Text returns the covered source text.
func (r Range) Text() string {
	if r.Source == nil || r.Start < 0 || r.End > len(r.Source.Text) || r.Start > r.End {
		return ""
	}
	return r.Source.Text[r.Start:r.End]
}

// Relocate returns a copy of at that remembers r as its original. When at
// was itself relocated, its own chain comes first, so the result lists every
// call site from the outermost down to where r was written.
func (r Range) Relocate(at Range) Range {
	orig := r
	return at.chain(&orig)
}

// chain returns a copy of r with tail appended to the end of its Original
// chain. The links of r are copied, never shared.
func (r Range) chain(tail *Range) Range {
	if r.Original == nil {
		r.Original = tail
		return r
	}
	next := r.Original.chain(tail)
	r.Original = &next
	return r
}

// Root follows the Original chain to the range the text was first written at.
func (r Range) Root() Range {
	for r.Original != nil {
		r = *r.Original
	}
	return r
}

// String formats the range as name:line:col for diagnostics.
func (r Range) String() string {
	if r.Source == nil {
		return "<unknown>"
	}
	line, col := r.Source.Position(r.Start)
	return fmt.Sprintf("%s:%d:%d", r.Source.Name, line+1, col+1)
}
