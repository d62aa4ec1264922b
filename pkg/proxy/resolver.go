package proxy

import "keyproxy/pkg/target"

// form classifies how a resolved key maps onto its target.
type form uint8

const (
	formAbsent form = iota
	formEntry
	formField
	formAdHoc
	formFallback
	formCallable
)

// resolution is the read-only outcome of resolving a key. A key is addressable
// through the accessor only when it exists and is visible.
type resolution struct {
	exists  bool
	visible bool
	form    form
	// name is the member name for record keys, with any callable suffix
	// stripped.
	name string
}

func (r resolution) found() bool {
	return r.exists && r.visible
}

// resolve never mutates the target and never invokes callables or hooks.
func resolve(t target.Target, key target.Key) resolution {
	if c, ok := t.Container(); ok {
		_, exists := c.Lookup(key)
		res := resolution{exists: exists, visible: true}
		if exists {
			res.form = formEntry
		}
		return res
	}
	rec, _ := t.Record()
	return resolveMember(rec, key)
}

func resolveMember(rec target.Record, key target.Key) resolution {
	shape := rec.Shape()
	if key.IsCallable() {
		name := key.CallableName()
		m, ok := shape.Callable(name)
		if !ok {
			return resolution{form: formCallable, name: name}
		}
		return resolution{exists: true, visible: m.Public(), form: formCallable, name: name}
	}

	name := key.String()
	m, declared := shape.Field(name)
	switch {
	case declared && m.Public():
		return resolution{exists: true, visible: true, form: formField, name: name}
	case hasAdHoc(rec, name):
		return resolution{exists: true, visible: true, form: formAdHoc, name: name}
	case shape.ReadHook:
		return resolution{exists: true, visible: true, form: formFallback, name: name}
	case declared:
		return resolution{exists: true, form: formField, name: name}
	default:
		return resolution{name: name}
	}
}

func hasAdHoc(rec target.Record, name string) bool {
	_, ok := rec.AdHocField(name)
	return ok
}
