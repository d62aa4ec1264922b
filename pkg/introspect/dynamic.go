package introspect

import "slices"

// Dynamic is an embeddable marker opting a struct type into ad hoc fields. It
// also provides the storage for them, in insertion order.
//
//	type Document struct {
//		introspect.Dynamic
//		Title string
//	}
//
// Dynamic must be embedded by value. It performs no locking.
type Dynamic struct {
	names  []string
	values map[string]any
}

// AdHocField returns the ad hoc field name.
func (d *Dynamic) AdHocField(name string) (any, bool) {
	value, ok := d.values[name]
	return value, ok
}

// SetAdHocField attaches or overwrites the ad hoc field name.
func (d *Dynamic) SetAdHocField(name string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, exists := d.values[name]; !exists {
		d.names = append(d.names, name)
	}
	d.values[name] = value
}

// DeleteAdHocField removes the ad hoc field name.
func (d *Dynamic) DeleteAdHocField(name string) {
	if _, ok := d.values[name]; !ok {
		return
	}
	delete(d.values, name)
	if i := slices.Index(d.names, name); i >= 0 {
		d.names = slices.Delete(d.names, i, i+1)
	}
}

// AdHocFieldNames lists ad hoc field names in insertion order.
func (d *Dynamic) AdHocFieldNames() []string {
	return slices.Clone(d.names)
}

// adHocBag is the method set Dynamic promotes into embedding types.
type adHocBag interface {
	AdHocField(name string) (any, bool)
	SetAdHocField(name string, value any)
	DeleteAdHocField(name string)
	AdHocFieldNames() []string
}

// Object is the canonical untyped record: it declares nothing and accepts any
// ad hoc field.
type Object struct {
	Dynamic
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{}
}

// FallbackReader is the catch-all read hook. A record type whose pointer
// implements it reports every field-form key as readable.
type FallbackReader interface {
	ReadFallback(name string) (any, error)
}

// FallbackWriter is the catch-all write hook. A record type whose pointer
// implements it accepts new keys.
type FallbackWriter interface {
	WriteFallback(name string, value any) error
}
