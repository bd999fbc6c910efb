package container

import "github.com/samber/lo"

// OrderedMap is a string-keyed map that preserves insertion order, with an
// optional parent for scoped lookup (global -> local -> block). Grounded on
// 8cc's map.c, which chains Map.parent for exactly this purpose; Go's
// builtin map already gives us O(1) lookup, so the hand-rolled open
// addressing table in map.c is replaced by map[string]V plus an order
// slice, and parent chaining is kept because the parser's scope stack
// depends on it.
type OrderedMap[V any] struct {
	parent *OrderedMap[V]
	byKey  map[string]V
	order  []string
}

// NewOrderedMap creates a root-scope map with no parent.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{byKey: make(map[string]V)}
}

// NewChildMap creates a map whose Get falls back to parent on miss.
func NewChildMap[V any](parent *OrderedMap[V]) *OrderedMap[V] {
	return &OrderedMap[V]{parent: parent, byKey: make(map[string]V)}
}

// Put inserts or overwrites key in this scope (not the parent's).
func (m *OrderedMap[V]) Put(key string, val V) {
	if _, ok := m.byKey[key]; !ok {
		m.order = append(m.order, key)
	}
	m.byKey[key] = val
}

// GetLocal looks up key in this scope only, ignoring parents.
func (m *OrderedMap[V]) GetLocal(key string) (V, bool) {
	v, ok := m.byKey[key]
	return v, ok
}

// Get looks up key in this scope, then walks parents.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	for s := m; s != nil; s = s.parent {
		if v, ok := s.byKey[key]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Remove deletes key from this scope only, used by #undef-style rescinding
// of a previously Put entry. A no-op if key isn't present locally.
func (m *OrderedMap[V]) Remove(key string) {
	if _, ok := m.byKey[key]; !ok {
		return
	}
	delete(m.byKey, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Keys returns this scope's keys in insertion order (parent keys excluded).
func (m *OrderedMap[V]) Keys() []string {
	return lo.Uniq(m.order)
}

// Len returns the number of entries in this scope only.
func (m *OrderedMap[V]) Len() int { return len(m.order) }

// Parent returns the enclosing scope, or nil at the root.
func (m *OrderedMap[V]) Parent() *OrderedMap[V] { return m.parent }
