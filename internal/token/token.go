// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines the fixed sigils of the emark markup syntax.
package token

import "unicode"

// Token represents a fixed piece of markup syntax.
type Token int

const (
	EOF Token = iota
	TEXT

	BLOCK_OPEN   // [.  - Opens a block modifier tag
	INLINE_OPEN  // [/  - Opens an inline modifier tag
	SYSTEM_OPEN  // [-  - Opens a system modifier tag
	TAG_CLOSE    // ]   - Closes a tag head, body follows
	MARKER_CLOSE // ;]  - Closes a tag head as a zero-content marker
	INLINE_END   // [;] - Ends the body of an inline modifier
	GROUP_OPEN   // <<< - Opens a block group
	GROUP_CLOSE  // >>> - Closes a block group
	ESCAPE       // \   - Escapes the next character
	NAMED        // =   - Separates a named argument from its value
)

// Literal spellings for each sigil.
const (
	SigilBlockOpen   = "[."
	SigilInlineOpen  = "[/"
	SigilSystemOpen  = "[-"
	SigilTagClose    = "]"
	SigilMarkerClose = ";]"
	SigilInlineEnd   = "[;]"
	SigilGroupOpen   = "<<<"
	SigilGroupClose  = ">>>"
	SigilEscape      = "\\"
	SigilNamed       = "="
)

// DefaultSeparator separates arguments unless a configuration overrides it.
const DefaultSeparator = "|"

// Sigil returns the literal spelling of a token, or "" for EOF and TEXT.
func (t Token) Sigil() string {
	switch t {
	case BLOCK_OPEN:
		return SigilBlockOpen
	case INLINE_OPEN:
		return SigilInlineOpen
	case SYSTEM_OPEN:
		return SigilSystemOpen
	case TAG_CLOSE:
		return SigilTagClose
	case MARKER_CLOSE:
		return SigilMarkerClose
	case INLINE_END:
		return SigilInlineEnd
	case GROUP_OPEN:
		return SigilGroupOpen
	case GROUP_CLOSE:
		return SigilGroupClose
	case ESCAPE:
		return SigilEscape
	case NAMED:
		return SigilNamed
	}
	return ""
}

// String returns the string representation of a token.
func (t Token) String() string {
	switch t {
	case EOF:
		return "EOF"
	case TEXT:
		return "TEXT"
	case BLOCK_OPEN:
		return "BLOCK_OPEN"
	case INLINE_OPEN:
		return "INLINE_OPEN"
	case SYSTEM_OPEN:
		return "SYSTEM_OPEN"
	case TAG_CLOSE:
		return "TAG_CLOSE"
	case MARKER_CLOSE:
		return "MARKER_CLOSE"
	case INLINE_END:
		return "INLINE_END"
	case GROUP_OPEN:
		return "GROUP_OPEN"
	case GROUP_CLOSE:
		return "GROUP_CLOSE"
	case ESCAPE:
		return "ESCAPE"
	case NAMED:
		return "NAMED"
	}
	return "UNKNOWN"
}

// IsTagOpen returns true for the three tag openers.
func (t Token) IsTagOpen() bool {
	switch t {
	case BLOCK_OPEN, INLINE_OPEN, SYSTEM_OPEN:
		return true
	}
	return false
}

// IsIdentRune returns true if the rune may continue a modifier or variable name.
func IsIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

// IsSpace returns true for the in-line whitespace runes. Newlines are grammar
// significant and never count.
func IsSpace(r rune) bool {
	return r == ' ' || r == '\t'
}
