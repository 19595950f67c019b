package registry

import (
	"sync"
	"sync/atomic"
)

// Member is anything with a stable identity.
type Member interface {
	ID() string
}

// Registry is a set of members keyed by ID.
type Registry[T Member] struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[view[T]]
}

// view is an immutable membership state. It is never modified once stored.
type view[T Member] struct {
	byID    map[string]T
	members []T // insertion order, len == cap
}

// New creates an empty registry.
func New[T Member]() *Registry[T] {
	r := &Registry[T]{}
	r.current.Store(&view[T]{byID: map[string]T{}})
	return r
}

// Add inserts m. Returns false if a member with the same ID is already present.
func (r *Registry[T]) Add(m T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()
	if _, ok := cur.byID[m.ID()]; ok {
		return false
	}

	next := &view[T]{
		byID:    make(map[string]T, len(cur.byID)+1),
		members: make([]T, 0, len(cur.members)+1),
	}
	for id, v := range cur.byID {
		next.byID[id] = v
	}
	next.byID[m.ID()] = m
	next.members = append(next.members, cur.members...)
	next.members = append(next.members, m)

	r.current.Store(next)
	return true
}

// Remove evicts the member with m's ID. Returns false if it was absent.
func (r *Registry[T]) Remove(m T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()
	id := m.ID()
	if _, ok := cur.byID[id]; !ok {
		return false
	}

	next := &view[T]{
		byID:    make(map[string]T, len(cur.byID)-1),
		members: make([]T, 0, len(cur.members)-1),
	}
	for k, v := range cur.byID {
		if k != id {
			next.byID[k] = v
		}
	}
	for _, v := range cur.members {
		if v.ID() != id {
			next.members = append(next.members, v)
		}
	}

	r.current.Store(next)
	return true
}

// Snapshot returns the members registered at call time, in insertion order.
// The slice is shared between callers and must not be modified.
func (r *Registry[T]) Snapshot() []T {
	return r.current.Load().members
}

// Get returns the member with the given ID.
func (r *Registry[T]) Get(id string) (T, bool) {
	m, ok := r.current.Load().byID[id]
	return m, ok
}

// Len returns the number of registered members.
func (r *Registry[T]) Len() int {
	return len(r.current.Load().members)
}

// IDs returns the registered identities in insertion order.
func (r *Registry[T]) IDs() []string {
	members := r.Snapshot()
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID()
	}
	return ids
}
