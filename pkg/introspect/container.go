package introspect

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"keyproxy/internal/convert"
	"keyproxy/pkg/target"
)

var (
	// ErrKeyType indicates a key whose type the container cannot index by.
	ErrKeyType = errors.New("introspect: key type not accepted by container")
	// ErrIndexRange indicates a slice index further than MaxGrowth past the
	// end of the slice.
	ErrIndexRange = errors.New("introspect: index too far past the end of the slice")
)

// MaxGrowth bounds how many elements a single Store may add to a slice,
// zero-filled gap included.
const MaxGrowth = 1 << 16

// mapContainer adapts a Go map with string or integer keys. When ptr is set the
// map is reached through it, so a nil map can be allocated on first write.
type mapContainer struct {
	ptr reflect.Value
	m   reflect.Value
}

func (c *mapContainer) current() reflect.Value {
	if c.ptr.IsValid() {
		return c.ptr.Elem()
	}
	return c.m
}

func (c *mapContainer) Value() any {
	if c.ptr.IsValid() {
		return c.ptr.Interface()
	}
	return c.m.Interface()
}

// Keys sorts integers numerically and strings lexically: Go maps have no
// native order.
func (c *mapContainer) Keys() []target.Key {
	m := c.current()
	raw := m.MapKeys()
	keys := make([]target.Key, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, fromMapKey(k))
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

func (c *mapContainer) mapKey(key target.Key) (reflect.Value, bool) {
	kt := c.current().Type().Key()
	if kt.Kind() == reflect.String {
		if key.IsInt() {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(key.String()).Convert(kt), true
	}
	i, ok := key.Int()
	if !ok {
		return reflect.Value{}, false
	}
	kv, err := convert.To(i, kt)
	if err != nil {
		return reflect.Value{}, false
	}
	return kv, true
}

func (c *mapContainer) lookup(key target.Key) (reflect.Value, bool) {
	m := c.current()
	if m.IsNil() {
		return reflect.Value{}, false
	}
	kv, ok := c.mapKey(key)
	if !ok {
		return reflect.Value{}, false
	}
	v := m.MapIndex(kv)
	return v, v.IsValid()
}

func (c *mapContainer) Lookup(key target.Key) (any, bool) {
	v, ok := c.lookup(key)
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

// Ref binds slices to their map entry, since map elements are not
// addressable. Other values are returned as-is, so only reference types share
// storage with the map.
func (c *mapContainer) Ref(key target.Key) (any, bool) {
	v, ok := c.lookup(key)
	if !ok {
		return nil, false
	}
	if holdsSlice(v) {
		return target.NewSlot(
			func() any {
				v, _ := c.Lookup(key)
				return v
			},
			func(v any) error { return c.Store(key, v) },
		), true
	}
	return ref(v), true
}

func (c *mapContainer) Initialised(key target.Key) bool {
	v, ok := c.lookup(key)
	return ok && !convert.IsNil(v.Interface())
}

func (c *mapContainer) Store(key target.Key, value any) error {
	kv, ok := c.mapKey(key)
	if !ok {
		return fmt.Errorf("%w: %s for %s", ErrKeyType, key, c.current().Type())
	}
	m := c.current()
	vv, err := convert.To(value, m.Type().Elem())
	if err != nil {
		return err
	}
	if m.IsNil() {
		if !c.ptr.IsValid() {
			return fmt.Errorf("%w: nil map", ErrNotAddressable)
		}
		c.ptr.Elem().Set(reflect.MakeMap(m.Type()))
		m = c.ptr.Elem()
	}
	m.SetMapIndex(kv, vv)
	return nil
}

func (c *mapContainer) Delete(key target.Key) error {
	m := c.current()
	kv, ok := c.mapKey(key)
	if !ok || m.IsNil() {
		return nil
	}
	m.SetMapIndex(kv, reflect.Value{})
	return nil
}

// Initialise accepts element types whose fresh value can be shared once
// stored: pointers, maps, interfaces and slices.
func (c *mapContainer) Initialise(key target.Key) (any, error) {
	et := c.current().Type().Elem()
	switch et.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice:
	default:
		return nil, fmt.Errorf("%w: map element of type %s", ErrNotAddressable, et)
	}
	fresh, err := freshFor(et)
	if err != nil {
		return nil, err
	}
	if err := c.Store(key, fresh.Interface()); err != nil {
		return nil, err
	}
	v, _ := c.Ref(key)
	return v, nil
}

// sliceContainer adapts a slice held in a settable location: behind a
// pointer, or in a slot bound by the parent container or record. Resizes are
// written back to that location.
type sliceContainer struct {
	ptr  reflect.Value
	slot *target.Slot
	typ  reflect.Type
}

func bindSlice(slot *target.Slot) *sliceContainer {
	return &sliceContainer{slot: slot, typ: reflect.TypeOf(slot.Load())}
}

// current reads a slot that no longer holds a slice of the bound type as an
// empty slice.
func (c *sliceContainer) current() reflect.Value {
	if c.ptr.IsValid() {
		return c.ptr.Elem()
	}
	v := reflect.ValueOf(c.slot.Load())
	if !v.IsValid() || v.Type() != c.typ {
		return reflect.Zero(c.typ)
	}
	return v
}

func (c *sliceContainer) replace(s reflect.Value) error {
	if c.ptr.IsValid() {
		c.ptr.Elem().Set(s)
		return nil
	}
	return c.slot.Store(s.Interface())
}

func (c *sliceContainer) Value() any {
	if c.ptr.IsValid() {
		return c.ptr.Interface()
	}
	return c.slot.Load()
}

func (c *sliceContainer) Keys() []target.Key {
	n := c.current().Len()
	keys := make([]target.Key, n)
	for i := 0; i < n; i++ {
		keys[i] = target.IntKey(i)
	}
	return keys
}

func (c *sliceContainer) index(key target.Key) (int, bool) {
	i, ok := key.Int()
	if !ok || i < 0 || i >= c.current().Len() {
		return 0, false
	}
	return i, true
}

func (c *sliceContainer) Lookup(key target.Key) (any, bool) {
	i, ok := c.index(key)
	if !ok {
		return nil, false
	}
	return c.current().Index(i).Interface(), true
}

func (c *sliceContainer) Ref(key target.Key) (any, bool) {
	i, ok := c.index(key)
	if !ok {
		return nil, false
	}
	return ref(c.current().Index(i)), true
}

func (c *sliceContainer) Initialised(key target.Key) bool {
	i, ok := c.index(key)
	return ok && !convert.IsNil(c.current().Index(i).Interface())
}

// Store writes in range, appends at the end and zero-fills any gap when the
// key lies further out, up to MaxGrowth new elements.
func (c *sliceContainer) Store(key target.Key, value any) error {
	i, ok := key.Int()
	if !ok || i < 0 {
		return fmt.Errorf("%w: %s for %s", ErrKeyType, key, c.current().Type())
	}
	s := c.current()
	if i < s.Len() {
		return convert.Assign(s.Index(i), value)
	}
	if i-s.Len() >= MaxGrowth {
		return fmt.Errorf("%w: index %d, length %d", ErrIndexRange, i, s.Len())
	}
	vv, err := convert.To(value, s.Type().Elem())
	if err != nil {
		return err
	}
	n := i + 1 - s.Len()
	grown := reflect.AppendSlice(s, reflect.MakeSlice(s.Type(), n, n))
	grown.Index(i).Set(vv)
	return c.replace(grown)
}

// Delete removes the element and shifts the following ones down.
func (c *sliceContainer) Delete(key target.Key) error {
	i, ok := c.index(key)
	if !ok {
		return nil
	}
	s := c.current()
	n := s.Len()
	reflect.Copy(s.Slice(i, n-1), s.Slice(i+1, n))
	s.Index(n - 1).Set(reflect.Zero(s.Type().Elem()))
	return c.replace(s.Slice(0, n-1))
}

func (c *sliceContainer) Initialise(key target.Key) (any, error) {
	i, ok := c.index(key)
	if !ok {
		et := c.current().Type().Elem()
		if err := c.Store(key, reflect.Zero(et).Interface()); err != nil {
			return nil, err
		}
		i, _ = key.Int()
	}
	return initialiseSlot(c.current().Index(i))
}

// fromMapKey assumes indexableMapKey accepted the key type, so unsigned keys
// fit in an int.
func fromMapKey(k reflect.Value) target.Key {
	switch k.Kind() {
	case reflect.String:
		return target.StringKey(k.String())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return target.IntKey(int(k.Uint()))
	default:
		return target.IntKey(int(k.Int()))
	}
}

// holdsSlice reports whether v is a slice or an interface holding one.
func holdsSlice(v reflect.Value) bool {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	return v.Kind() == reflect.Slice
}

// compareKeys orders integer keys before string keys.
func compareKeys(a, b target.Key) int {
	ai, aInt := a.Int()
	bi, bInt := b.Int()
	switch {
	case aInt && bInt:
		return cmp.Compare(ai, bi)
	case aInt:
		return -1
	case bInt:
		return 1
	default:
		return strings.Compare(a.String(), b.String())
	}
}
