// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry implements the callback registry (L6): named,
// typed callbacks with per-registration context, case-insensitive name
// index, insertion order preserved. The read callback kind is more
// specialized (it owns scheduling state) and lives in pkg/scheduler
// instead; the other eight kinds (config, init, write, flush, missing,
// notification, log, shutdown) are instances of the generic Registry
// defined here.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/siphond/siphond/pkg/cdtime"
)

// Context carries the per-registration settings that accompany a
// callback invocation: the owning interval and flush policy. Modeled as
// an explicit value threaded through calls rather than thread-local
// storage (§9).
type Context struct {
	Interval      cdtime.Time
	FlushInterval cdtime.Time
	FlushTimeout  cdtime.Time
}

// DuplicatePolicy controls what Register does when a name collides.
type DuplicatePolicy int

const (
	// DuplicateReplace silently replaces the existing entry (config kind).
	DuplicateReplace DuplicatePolicy = iota
	// DuplicateError rejects the new registration (read kind, and by
	// default every other kind unless a plugin explicitly wants replace
	// semantics).
	DuplicateError
)

// Entry is one named registration.
type Entry[F any] struct {
	Name    string
	Fn      F
	Context Context
}

// Registry is a name-indexed, insertion-order-preserving, thread-safe
// table of callbacks of a single kind. Lookups are case-insensitive;
// names are stored and returned in their original case.
type Registry[F any] struct {
	policy DuplicatePolicy

	mu    sync.Mutex
	order []string          // lower-cased keys, insertion order
	names map[string]string // lower-cased key -> original-case name
	fns   map[string]Entry[F]
}

// New returns an empty registry enforcing the given duplicate policy.
func New[F any](policy DuplicatePolicy) *Registry[F] {
	return &Registry[F]{
		policy: policy,
		names:  make(map[string]string),
		fns:    make(map[string]Entry[F]),
	}
}

func key(name string) string { return strings.ToLower(name) }

// Register adds fn under name with ctx. Whether a duplicate name
// replaces or errors depends on the registry's DuplicatePolicy.
func (r *Registry[F]) Register(name string, fn F, ctx Context) error {
	if name == "" {
		return fmt.Errorf("registry: name must not be empty")
	}
	k := key(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.fns[k]; exists {
		if r.policy == DuplicateError {
			return fmt.Errorf("registry: %q already registered", name)
		}
		r.fns[k] = Entry[F]{Name: name, Fn: fn, Context: ctx}
		return nil
	}

	r.order = append(r.order, k)
	r.names[k] = name
	r.fns[k] = Entry[F]{Name: name, Fn: fn, Context: ctx}
	return nil
}

// Unregister removes name. It reports whether the name was present.
func (r *Registry[F]) Unregister(name string) bool {
	k := key(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fns[k]; !ok {
		return false
	}
	delete(r.fns, k)
	delete(r.names, k)
	for i, kk := range r.order {
		if kk == k {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Lookup returns the entry registered under name, if any.
func (r *Registry[F]) Lookup(name string) (Entry[F], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.fns[key(name)]
	return e, ok
}

// Snapshot returns all entries in registration order. Dispatch paths
// should use this rather than holding the registry lock across a
// callback invocation — no lock is ever held across a callback, per
// §5.
func (r *Registry[F]) Snapshot() []Entry[F] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry[F], 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.fns[k])
	}
	return out
}

// Len returns the number of registered entries.
func (r *Registry[F]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
