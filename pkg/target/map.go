package target

import (
	"errors"
	"math"
	"slices"

	"keyproxy/internal/convert"
)

// ErrAppendOverflow indicates an Append after math.MaxInt was used as a key.
var ErrAppendOverflow = errors.New("target: no integer key left to append under")

// Map is an insertion-ordered container keyed by integers or strings. Values
// are held as-is, so nested maps, pointers and Go reference types share
// storage with whoever else holds them. The zero value is an empty map.
type Map struct {
	order  []Key
	values map[Key]any
	next   int
	full   bool
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{values: make(map[Key]any)}
}

// ensureValues lazily initialises the value index.
func (m *Map) ensureValues() {
	if m.values == nil {
		m.values = make(map[Key]any)
	}
}

// Put stores value under key and returns the map for chaining.
func (m *Map) Put(key Key, value any) *Map {
	m.ensureValues()
	if _, exists := m.values[key]; !exists {
		m.order = append(m.order, key)
	}
	m.values[key] = value
	if i, ok := key.Int(); ok && i >= m.next && !m.full {
		if i == math.MaxInt {
			m.next, m.full = i, true
		} else {
			m.next = i + 1
		}
	}
	return m
}

// Append stores value under the next free integer key: one past the largest
// integer key ever stored, or 0. Once math.MaxInt has been used as a key the
// map is left unchanged and ErrAppendOverflow is returned.
func (m *Map) Append(value any) (*Map, error) {
	if m.full {
		return m, ErrAppendOverflow
	}
	return m.Put(IntKey(m.next), value), nil
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.order)
}

// Value returns m.
func (m *Map) Value() any {
	return m
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Key {
	return slices.Clone(m.order)
}

// Lookup returns the value stored under key.
func (m *Map) Lookup(key Key) (any, bool) {
	value, ok := m.values[key]
	return value, ok
}

// Ref returns containers, records and nil as stored and a *Slot bound to the
// entry for everything else, so a slice held by the map can be resized in
// place.
func (m *Map) Ref(key Key) (any, bool) {
	value, ok := m.values[key]
	if !ok {
		return nil, false
	}
	switch value.(type) {
	case nil, Container, Record:
		return value, true
	}
	return NewSlot(
		func() any { return m.values[key] },
		func(v any) error { return m.Store(key, v) },
	), true
}

// Initialised reports whether key holds a non-nil value.
func (m *Map) Initialised(key Key) bool {
	value, ok := m.values[key]
	return ok && !convert.IsNil(value)
}

// Store implements Container.
func (m *Map) Store(key Key, value any) error {
	m.Put(key, value)
	return nil
}

// Delete removes key, keeping the order of the remaining entries.
func (m *Map) Delete(key Key) error {
	if _, ok := m.values[key]; !ok {
		return nil
	}
	delete(m.values, key)
	if i := slices.Index(m.order, key); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
	return nil
}

// Initialise stores an empty nested map under key.
func (m *Map) Initialise(key Key) (any, error) {
	nested := NewMap()
	m.Put(key, nested)
	return nested, nil
}
