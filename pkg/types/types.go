// Package types defines shared contracts between the retry and matrix engines
package types

import (
	"context"
	"sort"
)

// Bindings is the environment handed to a unit of work: axis values,
// derived stage variables and any extra caller-supplied entries. Units
// receive their bindings explicitly instead of capturing ambient state.
type Bindings map[string]string

// Clone returns a shallow copy of the bindings
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Merged returns a copy of b with all entries of other applied on top
func (b Bindings) Merged(other Bindings) Bindings {
	out := b.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys returns the binding keys in sorted order
func (b Bindings) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnitOfWork is a stage body or lifecycle hook. The context carries
// cancellation; the bindings carry the unit's environment.
type UnitOfWork func(ctx context.Context, env Bindings) error
