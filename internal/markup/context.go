// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package markup

import "sort"

// Context is the mutable state of one parse: the active configuration, the
// variable table and the per-family state blocks.
type Context struct {
	Config    *Configuration
	Variables map[string]string

	state map[any]*stateEntry
}

type stateEntry struct {
	value any
	clone func(any) any
}

// NewContext creates a context over cfg.
func NewContext(cfg *Configuration) *Context {
	if cfg == nil {
		cfg = NewConfiguration()
	}
	return &Context{
		Config:    cfg,
		Variables: make(map[string]string),
		state:     make(map[any]*stateEntry),
	}
}

// Clone creates an isolated copy: the configuration is cloned, variables are
// copied and every state block is cloned by its owner.
func (c *Context) Clone() *Context {
	clone := &Context{
		Config:    c.Config.Clone(),
		Variables: make(map[string]string, len(c.Variables)),
		state:     make(map[any]*stateEntry, len(c.state)),
	}
	for k, v := range c.Variables {
		clone.Variables[k] = v
	}
	for k, e := range c.state {
		v := e.value
		if e.clone != nil {
			v = e.clone(v)
		}
		clone.state[k] = &stateEntry{value: v, clone: e.clone}
	}
	return clone
}

// VariableNames returns the defined variable names, sorted.
func (c *Context) VariableNames() []string {
	names := make([]string, 0, len(c.Variables))
	for k := range c.Variables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// StateKey identifies one family's state block inside a Context. Each
// builtin family declares its own key; the zero value is not usable.
type StateKey[T any] struct {
	name  string
	init  func() T
	clone func(T) T
}

// NewStateKey declares a state block. init creates the block on first use;
// clone copies it when the context is cloned and may be nil to share it.
func NewStateKey[T any](name string, init func() T, clone func(T) T) *StateKey[T] {
	return &StateKey[T]{name: name, init: init, clone: clone}
}

// Name returns the key's name.
func (k *StateKey[T]) Name() string {
	return k.name
}

// Get returns the block for cxt, creating it if needed.
func (k *StateKey[T]) Get(cxt *Context) T {
	if e, ok := cxt.state[k]; ok {
		return e.value.(T)
	}
	v := k.init()
	var clone func(any) any
	if k.clone != nil {
		clone = func(a any) any { return k.clone(a.(T)) }
	}
	cxt.state[k] = &stateEntry{value: v, clone: clone}
	return v
}

// Set replaces the block for cxt.
func (k *StateKey[T]) Set(cxt *Context, v T) {
	k.Get(cxt)
	cxt.state[k].value = v
}
