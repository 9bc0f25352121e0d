// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner provides a forward-only, Unicode-aware cursor over a markup source.
package scanner

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"nickandperla.net/emark/internal/source"
	"nickandperla.net/emark/internal/token"
)

// ErrEOF is returned by Consume at the end of input.
var ErrEOF = errors.New("scanner: unexpected end of input")

// Probe is a callback fired the first time the scanner reaches or passes Offset.
type Probe struct {
	Offset int
	Fire   func()
}

// Scanner walks a Source rune-by-rune.
type Scanner struct {
	src    *source.Source
	pos    int
	probes []Probe
	next   int // Index of the first probe that has not fired
}

// New creates a Scanner over src. Probes are sorted by offset; those at
// offset 0 fire immediately.
func New(src *source.Source, probes ...Probe) *Scanner {
	ps := append([]Probe(nil), probes...)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Offset < ps[j].Offset })
	s := &Scanner{src: src, probes: ps}
	s.fire()
	return s
}

// NewFromString creates a Scanner over an anonymous source.
func NewFromString(text string) *Scanner {
	return New(source.New("<string>", text))
}

// Source returns the scanned source.
func (s *Scanner) Source() *source.Source {
	return s.src
}

// Position returns the current byte offset.
func (s *Scanner) Position() int {
	return s.pos
}

// IsEOF returns true when all input has been consumed.
func (s *Scanner) IsEOF() bool {
	return s.pos >= len(s.src.Text)
}

// Remaining returns the unconsumed text. Callers use it for multi-line lookahead.
func (s *Scanner) Remaining() string {
	return s.src.Text[s.pos:]
}

// Peek returns true if the input continues with lit.
func (s *Scanner) Peek(lit string) bool {
	return strings.HasPrefix(s.src.Text[s.pos:], lit)
}

// PeekRune returns the next rune without consuming it, or utf8.RuneError at EOF.
func (s *Scanner) PeekRune() rune {
	if s.IsEOF() {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(s.src.Text[s.pos:])
	return r
}

// Accept consumes lit if the input continues with it.
func (s *Scanner) Accept(lit string) bool {
	if lit == "" || !s.Peek(lit) {
		return false
	}
	s.advance(len(lit))
	return true
}

// Consume consumes and returns the next rune.
func (s *Scanner) Consume() (rune, error) {
	if s.IsEOF() {
		return 0, ErrEOF
	}
	r, size := utf8.DecodeRuneInString(s.src.Text[s.pos:])
	s.advance(size)
	return r, nil
}

// AcceptWhitespace consumes the next rune if it is a space or tab.
func (s *Scanner) AcceptWhitespace() bool {
	if s.IsEOF() {
		return false
	}
	if c := s.src.Text[s.pos]; c == ' ' || c == '\t' {
		s.advance(1)
		return true
	}
	return false
}

// SkipWhitespace consumes a run of spaces and tabs and returns it.
func (s *Scanner) SkipWhitespace() string {
	start := s.pos
	for s.AcceptWhitespace() {
	}
	return s.src.Text[start:s.pos]
}

// ScanName consumes a run of identifier runes and returns it.
func (s *Scanner) ScanName() string {
	start := s.pos
	for !s.IsEOF() {
		r, size := utf8.DecodeRuneInString(s.src.Text[s.pos:])
		if !token.IsIdentRune(r) {
			break
		}
		s.advance(size)
	}
	return s.src.Text[start:s.pos]
}

// Range returns a range from start to the current position.
func (s *Scanner) Range(start int) source.Range {
	return source.NewRange(s.src, start, s.pos)
}

func (s *Scanner) advance(n int) {
	s.pos += n
	if s.pos > len(s.src.Text) {
		s.pos = len(s.src.Text)
	}
	s.fire()
}

func (s *Scanner) fire() {
	for s.next < len(s.probes) && s.probes[s.next].Offset <= s.pos {
		p := s.probes[s.next]
		s.next++
		if p.Fire != nil {
			p.Fire()
		}
	}
}

// Finish fires every probe that is still pending, for offsets past the end.
func (s *Scanner) Finish() {
	for s.next < len(s.probes) {
		p := s.probes[s.next]
		s.next++
		if p.Fire != nil {
			p.Fire()
		}
	}
}
