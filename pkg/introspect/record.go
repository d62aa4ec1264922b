package introspect

import (
	"errors"
	"fmt"
	"reflect"

	"keyproxy/internal/convert"
	"keyproxy/pkg/target"
)

var (
	// ErrUnknownMember indicates a field or callable the record type does
	// not declare.
	ErrUnknownMember = errors.New("introspect: unknown member")
	// ErrNoAdHocFields indicates a record type without ad hoc storage.
	ErrNoAdHocFields = errors.New("introspect: record type does not store ad hoc fields")
	// ErrNoHook indicates a record type without the requested catch-all hook.
	ErrNoHook = errors.New("introspect: record type has no catch-all hook")
	// ErrNotAddressable indicates a slot whose value cannot be shared.
	ErrNotAddressable = errors.New("introspect: value is not addressable")
)

// structRecord binds a pointer to a struct to its cached type information.
type structRecord struct {
	ptr  reflect.Value
	info *typeInfo
}

func newStructRecord(ptr reflect.Value) *structRecord {
	return &structRecord{ptr: ptr, info: describe(ptr.Type().Elem())}
}

func (r *structRecord) Value() any {
	return r.ptr.Interface()
}

func (r *structRecord) Shape() *target.Shape {
	return &r.info.shape
}

// field resolves a declared field to its settable value.
func (r *structRecord) field(name string) (reflect.Value, error) {
	fi, ok := r.info.fields[name]
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: field %s on %s", ErrUnknownMember, name, r.info.shape.Name)
	}
	fv, err := r.ptr.Elem().FieldByIndexErr(fi.index)
	if err != nil {
		return reflect.Value{}, err
	}
	if !fv.CanSet() {
		return reflect.Value{}, fmt.Errorf("%w: field %s on %s is not exported", ErrNotAddressable, name, r.info.shape.Name)
	}
	return fv, nil
}

func (r *structRecord) Field(name string) (any, error) {
	fv, err := r.field(name)
	if err != nil {
		return nil, err
	}
	return fv.Interface(), nil
}

func (r *structRecord) FieldRef(name string) (any, error) {
	fv, err := r.field(name)
	if err != nil {
		return nil, err
	}
	return ref(fv), nil
}

func (r *structRecord) FieldInitialised(name string) bool {
	fv, err := r.field(name)
	if err != nil {
		return false
	}
	return !convert.IsNilValue(fv)
}

func (r *structRecord) SetField(name string, value any) error {
	fv, err := r.field(name)
	if err != nil {
		return err
	}
	return convert.Assign(fv, value)
}

func (r *structRecord) DeleteField(name string) error {
	fv, err := r.field(name)
	if err != nil {
		return err
	}
	fv.Set(reflect.Zero(fv.Type()))
	return nil
}

func (r *structRecord) InitialiseField(name string) (any, error) {
	fv, err := r.field(name)
	if err != nil {
		return nil, err
	}
	return initialiseSlot(fv)
}

func (r *structRecord) Invoke(name string) (any, error) {
	call, ok := r.info.callables[name]
	if !ok {
		return nil, fmt.Errorf("%w: callable %s on %s", ErrUnknownMember, name, r.info.shape.Name)
	}
	out := r.ptr.Method(call.index).Call(nil)
	if call.withErr && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	if call.results == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

func (r *structRecord) bag() (adHocBag, bool) {
	if !r.info.shape.DynamicMarked {
		return nil, false
	}
	bag, ok := r.ptr.Interface().(adHocBag)
	return bag, ok
}

func (r *structRecord) AdHocFieldNames() []string {
	if bag, ok := r.bag(); ok {
		return bag.AdHocFieldNames()
	}
	return nil
}

func (r *structRecord) AdHocField(name string) (any, bool) {
	if bag, ok := r.bag(); ok {
		return bag.AdHocField(name)
	}
	return nil, false
}

func (r *structRecord) AttachAdHocField(name string, value any) error {
	bag, ok := r.bag()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoAdHocFields, r.info.shape.Name)
	}
	bag.SetAdHocField(name, value)
	return nil
}

func (r *structRecord) DeleteAdHocField(name string) error {
	if bag, ok := r.bag(); ok {
		bag.DeleteAdHocField(name)
	}
	return nil
}

func (r *structRecord) ReadFallback(name string) (any, error) {
	hook, ok := r.ptr.Interface().(FallbackReader)
	if !ok {
		return nil, fmt.Errorf("%w: read on %s", ErrNoHook, r.info.shape.Name)
	}
	return hook.ReadFallback(name)
}

func (r *structRecord) WriteFallback(name string, value any) error {
	hook, ok := r.ptr.Interface().(FallbackWriter)
	if !ok {
		return fmt.Errorf("%w: write on %s", ErrNoHook, r.info.shape.Name)
	}
	return hook.WriteFallback(name, value)
}

// ref returns the shared-storage form of rv: the address of addressable
// structs and slices, a slot bound to rv for a settable interface holding a
// slice, and the value itself otherwise.
func ref(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		if rv.CanSet() && holdsSlice(rv) {
			return target.NewSlot(rv.Interface, func(v any) error { return convert.Assign(rv, v) })
		}
		return rv.Elem().Interface()
	case reflect.Struct, reflect.Slice:
		if rv.CanAddr() {
			return rv.Addr().Interface()
		}
	}
	return rv.Interface()
}

// initialiseSlot stores a fresh empty value in the settable slot and returns
// its shared-storage form.
func initialiseSlot(slot reflect.Value) (any, error) {
	if !slot.CanSet() {
		return nil, ErrNotAddressable
	}
	fresh, err := freshFor(slot.Type())
	if err != nil {
		return nil, err
	}
	slot.Set(fresh)
	return ref(slot), nil
}

// freshFor returns a new empty value assignable to t. Slices and value types
// are stored in place; everything else comes from New.
func freshFor(t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Slice:
		return reflect.MakeSlice(t, 0, 0), nil
	case reflect.Struct, reflect.Array:
		return reflect.Zero(t), nil
	}
	fresh := reflect.ValueOf(New(t))
	if !fresh.IsValid() || !fresh.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%w: cannot initialise %s", convert.ErrTypeMismatch, t)
	}
	return fresh, nil
}
