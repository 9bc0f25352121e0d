// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package markup

import (
	"strings"
	"sync"
	"unicode/utf8"

	"nickandperla.net/emark/internal/token"
)

// DefaultReparseDepthLimit bounds nested re-parsing of expansions.
const DefaultReparseDepthLimit = 10

// NameSet is a thread-safe, insertion-ordered map of named entries.
type NameSet[T comparable] struct {
	mu    sync.RWMutex
	names []string
	items map[string]T
}

// NewNameSet creates an empty set.
func NewNameSet[T comparable]() *NameSet[T] {
	return &NameSet[T]{items: make(map[string]T)}
}

// Get retrieves an entry by exact name.
func (s *NameSet[T]) Get(name string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[name]
	return v, ok
}

// Has returns true if the name exists.
func (s *NameSet[T]) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Set stores an entry, replacing any previous one. It returns true on replace.
func (s *NameSet[T]) Set(name string, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.items[name]
	if !exists {
		s.names = append(s.names, name)
	}
	s.items[name] = v
	return exists
}

// Remove deletes an entry.
func (s *NameSet[T]) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[name]; !ok {
		return
	}
	delete(s.items, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i:i], s.names[i+1:]...)
			break
		}
	}
}

// Names returns the names in insertion order.
func (s *NameSet[T]) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.names...)
}

// Len returns the number of entries.
func (s *NameSet[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Clone creates a shallow copy of the set.
func (s *NameSet[T]) Clone() *NameSet[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &NameSet[T]{
		names: append([]string(nil), s.names...),
		items: make(map[string]T, len(s.items)),
	}
	for k, v := range s.items {
		clone.items[k] = v
	}
	return clone
}

// LongestPrefix returns the longest name that text starts with and that
// accept allows. accept may be nil.
func (s *NameSet[T]) LongestPrefix(text string, accept func(name string) bool) (string, T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  string
		found bool
		v     T
	)
	for _, name := range s.names {
		if name == "" || len(name) <= len(best) && found {
			continue
		}
		if !strings.HasPrefix(text, name) {
			continue
		}
		if accept != nil && !accept(name) {
			continue
		}
		best, v, found = name, s.items[name], true
	}
	return best, v, found
}

// Configuration is the registry a parse runs against.
type Configuration struct {
	BlockModifiers   *NameSet[*Definition]
	InlineModifiers  *NameSet[*Definition]
	SystemModifiers  *NameSet[*Definition]
	BlockShorthands  *NameSet[*Shorthand]
	InlineShorthands *NameSet[*Shorthand]
	Interpolators    *NameSet[*Interpolator]
	Modules          *NameSet[*DefinitionSet]

	ReparseDepthLimit int
	ArgumentSeparator string
}

// NewConfiguration creates an empty configuration with default limits.
func NewConfiguration() *Configuration {
	return &Configuration{
		BlockModifiers:    NewNameSet[*Definition](),
		InlineModifiers:   NewNameSet[*Definition](),
		SystemModifiers:   NewNameSet[*Definition](),
		BlockShorthands:   NewNameSet[*Shorthand](),
		InlineShorthands:  NewNameSet[*Shorthand](),
		Interpolators:     NewNameSet[*Interpolator](),
		Modules:           NewNameSet[*DefinitionSet](),
		ReparseDepthLimit: DefaultReparseDepthLimit,
		ArgumentSeparator: token.DefaultSeparator,
	}
}

// Clone copies the containers. Definitions are shared.
func (c *Configuration) Clone() *Configuration {
	return &Configuration{
		BlockModifiers:    c.BlockModifiers.Clone(),
		InlineModifiers:   c.InlineModifiers.Clone(),
		SystemModifiers:   c.SystemModifiers.Clone(),
		BlockShorthands:   c.BlockShorthands.Clone(),
		InlineShorthands:  c.InlineShorthands.Clone(),
		Interpolators:     c.Interpolators.Clone(),
		Modules:           c.Modules.Clone(),
		ReparseDepthLimit: c.ReparseDepthLimit,
		ArgumentSeparator: c.ArgumentSeparator,
	}
}

// Modifiers returns the registry for a kind.
func (c *Configuration) Modifiers(kind Kind) *NameSet[*Definition] {
	switch kind {
	case KindInline:
		return c.InlineModifiers
	case KindSystem:
		return c.SystemModifiers
	}
	return c.BlockModifiers
}

// Shorthands returns the shorthand registry for a kind. System modifiers
// share the block shorthands.
func (c *Configuration) Shorthands(kind Kind) *NameSet[*Shorthand] {
	if kind == KindInline {
		return c.InlineShorthands
	}
	return c.BlockShorthands
}

// Add registers definitions under their own names.
func (c *Configuration) Add(defs ...*Definition) {
	for _, d := range defs {
		c.Modifiers(d.Kind).Set(d.Name, d)
	}
}

// AddShorthand registers a shorthand for the kind of its definition.
func (c *Configuration) AddShorthand(sh *Shorthand) {
	c.Shorthands(sh.Mod.Kind).Set(sh.Prefix, sh)
}

// AddInterpolator registers an interpolator under its prefix.
func (c *Configuration) AddInterpolator(ip *Interpolator) {
	c.Interpolators.Set(ip.Prefix, ip)
}

func (c *Configuration) separator() string {
	if c.ArgumentSeparator == "" {
		return token.DefaultSeparator
	}
	return c.ArgumentSeparator
}

func (c *Configuration) depthLimit() int {
	if c.ReparseDepthLimit <= 0 {
		return DefaultReparseDepthLimit
	}
	return c.ReparseDepthLimit
}

// DefinitionSet is a named-definition snapshot: the unit modules store and merge.
type DefinitionSet struct {
	Blocks           *NameSet[*Definition]
	Inlines          *NameSet[*Definition]
	Systems          *NameSet[*Definition]
	BlockShorthands  *NameSet[*Shorthand]
	InlineShorthands *NameSet[*Shorthand]
}

// NewDefinitionSet creates an empty set.
func NewDefinitionSet() *DefinitionSet {
	return &DefinitionSet{
		Blocks:           NewNameSet[*Definition](),
		Inlines:          NewNameSet[*Definition](),
		Systems:          NewNameSet[*Definition](),
		BlockShorthands:  NewNameSet[*Shorthand](),
		InlineShorthands: NewNameSet[*Shorthand](),
	}
}

// Snapshot captures the current named definitions.
func (c *Configuration) Snapshot() *DefinitionSet {
	return &DefinitionSet{
		Blocks:           c.BlockModifiers.Clone(),
		Inlines:          c.InlineModifiers.Clone(),
		Systems:          c.SystemModifiers.Clone(),
		BlockShorthands:  c.BlockShorthands.Clone(),
		InlineShorthands: c.InlineShorthands.Clone(),
	}
}

// Restore replaces the named definitions with a snapshot.
func (c *Configuration) Restore(s *DefinitionSet) {
	c.BlockModifiers = s.Blocks.Clone()
	c.InlineModifiers = s.Inlines.Clone()
	c.SystemModifiers = s.Systems.Clone()
	c.BlockShorthands = s.BlockShorthands.Clone()
	c.InlineShorthands = s.InlineShorthands.Clone()
}

// Merge adds the definitions of s, replacing same-named ones. It returns the
// names that already existed with a different definition.
func (c *Configuration) Merge(s *DefinitionSet) []string {
	var collisions []string
	collisions = mergeInto(c.BlockModifiers, s.Blocks, "", collisions)
	collisions = mergeInto(c.InlineModifiers, s.Inlines, "", collisions)
	collisions = mergeInto(c.SystemModifiers, s.Systems, "", collisions)
	collisions = mergeInto(c.BlockShorthands, s.BlockShorthands, "shorthand ", collisions)
	collisions = mergeInto(c.InlineShorthands, s.InlineShorthands, "shorthand ", collisions)
	return collisions
}

// Merge adds the entries of other into s and returns the colliding names.
func (s *DefinitionSet) Merge(other *DefinitionSet) []string {
	var collisions []string
	collisions = mergeInto(s.Blocks, other.Blocks, "", collisions)
	collisions = mergeInto(s.Inlines, other.Inlines, "", collisions)
	collisions = mergeInto(s.Systems, other.Systems, "", collisions)
	collisions = mergeInto(s.BlockShorthands, other.BlockShorthands, "shorthand ", collisions)
	collisions = mergeInto(s.InlineShorthands, other.InlineShorthands, "shorthand ", collisions)
	return collisions
}

// Diff returns the entries of s that are new or different from baseline.
func (s *DefinitionSet) Diff(baseline *DefinitionSet) *DefinitionSet {
	return &DefinitionSet{
		Blocks:           diff(s.Blocks, baseline.Blocks),
		Inlines:          diff(s.Inlines, baseline.Inlines),
		Systems:          diff(s.Systems, baseline.Systems),
		BlockShorthands:  diff(s.BlockShorthands, baseline.BlockShorthands),
		InlineShorthands: diff(s.InlineShorthands, baseline.InlineShorthands),
	}
}

// Len returns the total number of entries.
func (s *DefinitionSet) Len() int {
	return s.Blocks.Len() + s.Inlines.Len() + s.Systems.Len() +
		s.BlockShorthands.Len() + s.InlineShorthands.Len()
}

// Names lists every entry, shorthands prefixed with "shorthand ".
func (s *DefinitionSet) Names() []string {
	var names []string
	names = append(names, s.Blocks.Names()...)
	names = append(names, s.Inlines.Names()...)
	names = append(names, s.Systems.Names()...)
	for _, n := range s.BlockShorthands.Names() {
		names = append(names, "shorthand "+n)
	}
	for _, n := range s.InlineShorthands.Names() {
		names = append(names, "shorthand "+n)
	}
	return names
}

func mergeInto[T comparable](dst, src *NameSet[T], label string, collisions []string) []string {
	for _, name := range src.Names() {
		v, _ := src.Get(name)
		if old, ok := dst.Get(name); ok && old != v {
			collisions = append(collisions, label+name)
		}
		dst.Set(name, v)
	}
	return collisions
}

func diff[T comparable](s, baseline *NameSet[T]) *NameSet[T] {
	out := NewNameSet[T]()
	for _, name := range s.Names() {
		v, _ := s.Get(name)
		if old, ok := baseline.Get(name); ok && old == v {
			continue
		}
		out.Set(name, v)
	}
	return out
}

// nameBoundary rejects a name match that would split an identifier.
func nameBoundary(text, name string) bool {
	rest := text[len(name):]
	if rest == "" {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(name)
	next, _ := utf8.DecodeRuneInString(rest)
	return !(token.IsIdentRune(last) && token.IsIdentRune(next))
}
