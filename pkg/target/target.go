// Package target defines the two kinds of value a proxy can wrap, keyed
// containers and structured records, together with the introspection contract
// that classifies arbitrary values into one of them.
//
// The package is the shared vocabulary between the accessor in pkg/proxy and
// the introspection adapters (pkg/introspect, pkg/yamlnode). Accessor code only
// talks to the interfaces declared here, which keeps it free of reflection and
// lets tests substitute fake containers and records.
package target

import (
	"errors"
	"fmt"
)

// Kind tags the variant held by a Target.
type Kind uint8

const (
	// KindContainer marks a keyed container.
	KindContainer Kind = iota + 1
	// KindRecord marks a structured record.
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindRecord:
		return "record"
	default:
		return "invalid"
	}
}

// Target is a tagged union holding exactly one Container or Record.
type Target struct {
	kind      Kind
	container Container
	record    Record
}

// FromContainer wraps a container.
func FromContainer(c Container) Target {
	return Target{kind: KindContainer, container: c}
}

// FromRecord wraps a record.
func FromRecord(r Record) Target {
	return Target{kind: KindRecord, record: r}
}

// Kind reports the held variant. The zero Target reports an invalid kind.
func (t Target) Kind() Kind {
	return t.kind
}

// IsZero reports whether the target holds nothing.
func (t Target) IsZero() bool {
	return t.kind == 0
}

// Container returns the held container.
func (t Target) Container() (Container, bool) {
	return t.container, t.kind == KindContainer
}

// Record returns the held record.
func (t Target) Record() (Record, bool) {
	return t.record, t.kind == KindRecord
}

// Value returns the wrapped value as handed to the introspector.
func (t Target) Value() any {
	switch t.kind {
	case KindContainer:
		return t.container.Value()
	case KindRecord:
		return t.record.Value()
	default:
		return nil
	}
}

// Container is a dynamically keyed mapping. Keys may be added and removed at
// any time. Implementations mutate the wrapped value in place.
type Container interface {
	// Value returns the wrapped value.
	Value() any
	// Keys lists keys in the container's native order.
	Keys() []Key
	// Lookup returns the value stored under key.
	Lookup(key Key) (any, bool)
	// Ref returns the value under key in a form that shares storage with the
	// container, suitable for wrapping in a nested accessor. Values that cannot
	// share storage alone, such as slices, come back as a *Slot.
	Ref(key Key) (any, bool)
	// Initialised reports whether key maps to a non-nil value.
	Initialised(key Key) bool
	// Store writes value under key, inserting the key when absent.
	Store(key Key, value any) error
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key Key) error
	// Initialise stores a fresh empty value suited to the slot and returns
	// its shared reference.
	Initialise(key Key) (any, error)
}

// Record is the instance binding of a Shape: a structured value with declared
// fields and zero-argument callables, and optionally ad hoc fields and
// catch-all hooks.
type Record interface {
	// Value returns the wrapped value.
	Value() any
	// Shape returns the type-level description. It must not change over the
	// record's lifetime.
	Shape() *Shape

	Field(name string) (any, error)
	// FieldRef returns the field value in a form that shares storage with the
	// record.
	FieldRef(name string) (any, error)
	FieldInitialised(name string) bool
	SetField(name string, value any) error
	// DeleteField resets the field to its uninitialised state.
	DeleteField(name string) error
	// InitialiseField stores a fresh empty value of the field's declared type
	// and returns its shared reference.
	InitialiseField(name string) (any, error)

	// Invoke calls the declared zero-argument callable name.
	Invoke(name string) (any, error)

	AdHocFieldNames() []string
	AdHocField(name string) (any, bool)
	AttachAdHocField(name string, value any) error
	DeleteAdHocField(name string) error

	// ReadFallback invokes the catch-all read hook.
	ReadFallback(name string) (any, error)
	// WriteFallback invokes the catch-all write hook.
	WriteFallback(name string, value any) error
}

// Introspector classifies a value as a Container or Record. Values it does not
// handle yield an error matching ErrUnsupportedOperation.
type Introspector interface {
	Inspect(value any) (Target, error)
}

// IntrospectorFunc adapts a function to the Introspector interface.
type IntrospectorFunc func(value any) (Target, error)

// Inspect calls f.
func (f IntrospectorFunc) Inspect(value any) (Target, error) {
	return f(value)
}

// Chain returns an introspector trying each of list in order. The first
// successful classification wins; an error other than ErrUnsupportedOperation
// stops the chain.
func Chain(list ...Introspector) Introspector {
	return IntrospectorFunc(func(value any) (Target, error) {
		var last error
		for _, in := range list {
			if in == nil {
				continue
			}
			t, err := in.Inspect(value)
			if err == nil {
				return t, nil
			}
			if !errors.Is(err, ErrUnsupportedOperation) {
				return Target{}, err
			}
			last = err
		}
		if last == nil {
			last = fmt.Errorf("%w: no introspector for %T", ErrUnsupportedOperation, value)
		}
		return Target{}, last
	})
}
