// Package introspect implements the structural introspection collaborator on
// top of the reflect package.
//
// Pointers to structs become records: exported fields are public, unexported
// fields exist but stay hidden, and exported methods of the pointer method set
// that take no arguments and return nothing, a value, or a value and an error
// become callables. Go maps keyed by strings or integers, pointers to slices
// and slices held in a target.Slot become containers. Arrays and slices or
// structs passed by value are refused: they could not be resized or written in
// place.
//
// Record types opt into ad hoc fields by embedding Dynamic; Object is the
// canonical untyped record. Types whose pointer implements FallbackReader or
// FallbackWriter expose catch-all hooks. Type-level results are cached per
// reflect.Type.
package introspect

import (
	"fmt"
	"reflect"
	"strconv"

	"keyproxy/pkg/target"
)

// Introspector classifies values through reflection. The zero value is ready
// to use.
type Introspector struct{}

var defaultIntrospector target.Introspector = Introspector{}

// Default returns the reflect-backed introspector.
func Default() target.Introspector {
	return defaultIntrospector
}

// Inspect implements target.Introspector. Values that already implement
// target.Container or target.Record are wrapped directly. A slot holding a
// slice binds the container to the slot; other slots are inspected by value.
func (in Introspector) Inspect(value any) (target.Target, error) {
	switch v := value.(type) {
	case nil:
		return target.Target{}, fmt.Errorf("%w: cannot wrap nil", target.ErrUnsupportedOperation)
	case *target.Slot:
		if reflect.ValueOf(v.Load()).Kind() == reflect.Slice {
			return target.FromContainer(bindSlice(v)), nil
		}
		return in.Inspect(v.Load())
	case target.Container:
		return target.FromContainer(v), nil
	case target.Record:
		return target.FromRecord(v), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if !indexableMapKey(rv.Type().Key()) {
			return target.Target{}, unsupported(value, "map keys must be strings or integers")
		}
		if rv.IsNil() {
			return target.Target{}, unsupported(value, "nil map, wrap a pointer to it instead")
		}
		return target.FromContainer(&mapContainer{m: rv}), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return target.Target{}, unsupported(value, "nil pointer")
		}
		elem := rv.Elem()
		switch elem.Kind() {
		case reflect.Struct:
			return target.FromRecord(newStructRecord(rv)), nil
		case reflect.Slice:
			return target.FromContainer(&sliceContainer{ptr: rv}), nil
		case reflect.Array:
			return target.Target{}, unsupported(value, "arrays have a fixed length, use a slice")
		case reflect.Map:
			if !indexableMapKey(elem.Type().Key()) {
				return target.Target{}, unsupported(value, "map keys must be strings or integers")
			}
			return target.FromContainer(&mapContainer{ptr: rv}), nil
		}
	case reflect.Struct, reflect.Slice:
		return target.Target{}, unsupported(value, "value is not addressable, wrap a pointer to it")
	case reflect.Array:
		return target.Target{}, unsupported(value, "arrays have a fixed length, use a slice")
	}
	return target.Target{}, unsupported(value, "scalar value")
}

func unsupported(value any, reason string) error {
	return fmt.Errorf("%w: %T: %s", target.ErrUnsupportedOperation, value, reason)
}

func indexableMapKey(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		// unsigned keys must fit in an int
		return t.Bits() < strconv.IntSize

	default:
		return false
	}
}

// New returns a fresh empty value for t: nil for a nil type, a *target.Map for
// interface types, an allocated map, a pointer to an empty slice, a pointer to
// a new struct or array, a new pointee for pointer types, and the zero value
// for everything else.
func New(t reflect.Type) any {
	if t == nil {
		return nil
	}
	switch t.Kind() {
	case reflect.Interface:
		return target.NewMap()
	case reflect.Map:
		return reflect.MakeMap(t).Interface()
	case reflect.Slice:
		ptr := reflect.New(t)
		ptr.Elem().Set(reflect.MakeSlice(t, 0, 0))
		return ptr.Interface()
	case reflect.Struct, reflect.Array:
		return reflect.New(t).Interface()
	case reflect.Pointer:
		return reflect.New(t.Elem()).Interface()
	default:
		return reflect.Zero(t).Interface()
	}
}
