// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package diag defines the diagnostics reported while parsing and expanding markup.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"nickandperla.net/emark/internal/source"
)

// Severity of a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns the lower-case name of the severity.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

// Code identifies the kind of a diagnostic.
type Code int

// Structural problems. The parser recovers with a stand-in and continues.
const (
	UnknownModifier Code = 1 + iota
	UnclosedTag
	MissingClosing
	ArgumentCount
	DuplicateArgument
	CannotExpandArgument
	InvalidArgument
)

// Macro-semantic problems. The construct contributes nothing to the tree.
const (
	SlotOutsideDefinition Code = 100 + iota
	AlreadyDefined
	RecursionLimit
	ModuleSelfUse
	NestedModule
	UnknownModule
	MixedSlotKind
	UnknownSlot
	InternalError
)

// Soft problems, parsed as if the input had been corrected.
const (
	SuperfluousNewline Code = 200 + iota
	ExpectedNewline
	Overwrite
	UndefinedVariable
	UnmatchedDelimiter
)

// Message is one diagnostic.
type Message struct {
	Severity Severity
	Code     Code
	Range    source.Range
	Text     string
}

// New creates a message.
func New(sev Severity, code Code, r source.Range, format string, args ...any) Message {
	return Message{Severity: sev, Code: code, Range: r, Text: fmt.Sprintf(format, args...)}
}

// Errorf creates an error-severity message.
func Errorf(code Code, r source.Range, format string, args ...any) Message {
	return New(Error, code, r, format, args...)
}

// Warnf creates a warning-severity message.
func Warnf(code Code, r source.Range, format string, args ...any) Message {
	return New(Warning, code, r, format, args...)
}

// Error implements the error interface so messages can be wrapped by callers.
func (m Message) Error() string {
	return m.String()
}

// String formats the message with its location, followed by the chain of
// original locations when it was reported on expanded text.
func (m Message) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s[%d]: %s", m.Range, m.Severity, m.Code, m.Text)
	for o := m.Range.Original; o != nil; o = o.Original {
		fmt.Fprintf(&b, "\n\tfrom %s", o)
	}
	return b.String()
}

// List is an ordered list of messages.
type List []Message

// HasErrors returns true if any message has error severity.
func (l List) HasErrors() bool {
	for _, m := range l {
		if m.Severity == Error {
			return true
		}
	}
	return false
}

// Count returns how many messages carry the given code.
func (l List) Count(code Code) int {
	n := 0
	for _, m := range l {
		if m.Code == code {
			n++
		}
	}
	return n
}

// Sorted returns a copy ordered by source offset, keeping emission order for ties.
func (l List) Sorted() List {
	out := append(List(nil), l...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Range.Start < out[j].Range.Start
	})
	return out
}
