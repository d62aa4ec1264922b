// Package convert holds the reflection helpers shared by the introspection
// adapters: nil detection and assignment with the narrow set of conversions a
// proxy write is allowed to perform.
package convert

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrTypeMismatch indicates a value that cannot be stored in a slot of the
// requested type.
var ErrTypeMismatch = errors.New("convert: type mismatch")

// Nilable reports whether values of kind k can be nil.
func Nilable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

// IsNil reports whether v is nil or a typed nil.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	return IsNilValue(reflect.ValueOf(v))
}

// IsNilValue is IsNil for reflect values. Invalid values count as nil.
func IsNilValue(rv reflect.Value) bool {
	if !rv.IsValid() {
		return true
	}
	return Nilable(rv.Kind()) && rv.IsNil()
}

// To returns value as a reflect.Value assignable to t. Besides plain
// assignability it converts between named types sharing a kind, between
// integer kinds when the value fits, and from integers or floats to floats.
func To(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		if Nilable(t.Kind()) {
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: cannot use nil as %s", ErrTypeMismatch, t)
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	src, dst := rv.Kind(), t.Kind()
	switch {
	case isInteger(src) && isInteger(dst):
		out := reflect.New(t).Elem()
		if isUnsigned(src) {
			u := rv.Uint()
			if isUnsigned(dst) {
				if out.OverflowUint(u) {
					return reflect.Value{}, overflow(value, t)
				}
				out.SetUint(u)
				return out, nil
			}
			if u > 1<<63-1 || out.OverflowInt(int64(u)) {
				return reflect.Value{}, overflow(value, t)
			}
			out.SetInt(int64(u))
			return out, nil
		}
		i := rv.Int()
		if isUnsigned(dst) {
			if i < 0 || out.OverflowUint(uint64(i)) {
				return reflect.Value{}, overflow(value, t)
			}
			out.SetUint(uint64(i))
			return out, nil
		}
		if out.OverflowInt(i) {
			return reflect.Value{}, overflow(value, t)
		}
		out.SetInt(i)
		return out, nil
	case (isInteger(src) || isFloat(src)) && isFloat(dst):
		return rv.Convert(t), nil
	case src == dst && rv.Type().ConvertibleTo(t):
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: cannot use %s as %s", ErrTypeMismatch, rv.Type(), t)
}

// Assign stores value into dst, which must be settable.
func Assign(dst reflect.Value, value any) error {
	rv, err := To(value, dst.Type())
	if err != nil {
		return err
	}
	dst.Set(rv)
	return nil
}

func overflow(value any, t reflect.Type) error {
	return fmt.Errorf("%w: %v overflows %s", ErrTypeMismatch, value, t)
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return isUnsigned(k)
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
