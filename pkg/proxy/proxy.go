// Package proxy provides a uniform key accessor over keyed containers and
// structured records.
//
// A Proxy wraps a value by shared reference and lets callers read, write,
// create, delete and test keys without branching on what the value is.
// Records expose their public fields by name, their ad hoc fields, their
// catch-all read hook and their zero-argument callables in the `name()` form.
// Classification of arbitrary values is delegated to a target.Introspector;
// the default one is reflection based (see pkg/introspect).
//
// Multi-segment paths are not supported. Use Nested or Ensure to descend one
// key at a time.
package proxy

import (
	"fmt"
	"time"

	"keyproxy/pkg/target"
)

// Operation names reported to the metrics recorder.
const (
	opNew                = "new"
	opHas                = "has"
	opKeys               = "keys"
	opGet                = "get"
	opSet                = "set"
	opIsInitialised      = "is_initialised"
	opCreate             = "create"
	opUnset              = "unset"
	opNested             = "nested"
	opEnsure             = "ensure"
	opDynamicKeysAllowed = "dynamic_keys_allowed"
)

// Proxy is a key accessor bound to one container or record. It holds no state
// beyond the wrapped target and never caches results, so changes made to the
// value elsewhere are visible immediately. A Proxy is not safe for concurrent
// mutation.
type Proxy struct {
	target target.Target
	opts   options
}

// New wraps value. Scalars and values the introspector cannot classify are
// rejected with an error matching ErrUnsupportedOperation.
func New(value any, opts ...Option) (p *Proxy, err error) {
	o := resolveOptions(opts)
	defer observe(o, opNew, o.clock.Now(), &err)
	t, err := o.introspector.Inspect(value)
	if err != nil {
		return nil, fmt.Errorf("proxy: cannot create a proxy for %T: %w", value, err)
	}
	return &Proxy{target: t, opts: o}, nil
}

// Of wraps an already classified target.
func Of(t target.Target, opts ...Option) (*Proxy, error) {
	if t.IsZero() {
		return nil, fmt.Errorf("proxy: empty target: %w", target.ErrUnsupportedOperation)
	}
	return &Proxy{target: t, opts: resolveOptions(opts)}, nil
}

// Value returns the wrapped value.
func (p *Proxy) Value() any {
	return p.target.Value()
}

// Kind reports whether the proxy wraps a container or a record.
func (p *Proxy) Kind() target.Kind {
	return p.target.Kind()
}

// Has reports whether key exists and is visible.
func (p *Proxy) Has(key target.Key) bool {
	defer observe(p.opts, opHas, p.opts.clock.Now(), nil)
	return resolve(p.target, key).found()
}

// Keys lists the visible keys. Containers report their native order. Records
// report public fields in declaration order, then ad hoc fields in insertion
// order, then public callables in the `name()` form.
func (p *Proxy) Keys() []target.Key {
	defer observe(p.opts, opKeys, p.opts.clock.Now(), nil)
	if c, ok := p.target.Container(); ok {
		return c.Keys()
	}
	rec, _ := p.target.Record()
	shape := rec.Shape()

	fields := shape.PublicFields()
	adHoc := rec.AdHocFieldNames()
	callables := shape.PublicCallables()
	keys := make([]target.Key, 0, len(fields)+len(adHoc)+len(callables))
	seen := make(map[target.Key]struct{}, cap(keys))
	add := func(k target.Key) {
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for _, name := range fields {
		add(target.StringKey(name))
	}
	for _, name := range adHoc {
		add(target.StringKey(name))
	}
	for _, name := range callables {
		add(target.MethodKey(name))
	}
	return keys
}

// Get returns the value under key. Callable keys invoke the callable; errors
// raised by callables and hooks are returned as is.
func (p *Proxy) Get(key target.Key) (_ any, err error) {
	defer observe(p.opts, opGet, p.opts.clock.Now(), &err)
	res := resolve(p.target, key)
	if !res.found() {
		return nil, target.NotFound(key)
	}
	if c, ok := p.target.Container(); ok {
		v, _ := c.Lookup(key)
		return v, nil
	}
	rec, _ := p.target.Record()
	switch res.form {
	case formCallable:
		return rec.Invoke(res.name)
	case formAdHoc:
		v, _ := rec.AdHocField(res.name)
		return v, nil
	case formFallback:
		return rec.ReadFallback(res.name)
	default:
		v, err := rec.Field(res.name)
		if err != nil {
			return nil, unsupported(opGet, key, "field is not readable", err)
		}
		return v, nil
	}
}

// Set overwrites the value under an existing key. Callable-form keys are
// never writable, on containers included.
func (p *Proxy) Set(key target.Key, value any) (err error) {
	defer observe(p.opts, opSet, p.opts.clock.Now(), &err)
	res := resolve(p.target, key)
	if !res.found() {
		return target.NotFound(key)
	}
	if key.IsCallable() {
		return unsupported(opSet, key, "cannot set a callable", nil)
	}
	if c, ok := p.target.Container(); ok {
		if err := c.Store(key, value); err != nil {
			return unsupported(opSet, key, "container rejected the value", err)
		}
		p.logMutation(opSet, key)
		return nil
	}
	rec, _ := p.target.Record()
	switch res.form {
	case formAdHoc:
		if err := rec.AttachAdHocField(res.name, value); err != nil {
			return unsupported(opSet, key, "cannot store ad hoc field", err)
		}
	case formFallback:
		if !rec.Shape().WriteHook {
			return unsupported(opSet, key, "no catch-all write hook", nil)
		}
		if err := rec.WriteFallback(res.name, value); err != nil {
			return err
		}
	default:
		if err := rec.SetField(res.name, value); err != nil {
			return unsupported(opSet, key, "field rejected the value", err)
		}
	}
	p.logMutation(opSet, key)
	return nil
}

// IsInitialised reports whether the value under key holds something other
// than its uninitialised state. Callables always count as initialised.
func (p *Proxy) IsInitialised(key target.Key) (_ bool, err error) {
	defer observe(p.opts, opIsInitialised, p.opts.clock.Now(), &err)
	res := resolve(p.target, key)
	if !res.found() {
		return false, target.NotFound(key)
	}
	if c, ok := p.target.Container(); ok {
		return c.Initialised(key), nil
	}
	rec, _ := p.target.Record()
	switch res.form {
	case formCallable:
		return true, nil
	case formAdHoc:
		v, _ := rec.AdHocField(res.name)
		return v != nil, nil
	case formFallback:
		v, err := rec.ReadFallback(res.name)
		return err == nil && v != nil, nil
	default:
		return rec.FieldInitialised(res.name), nil
	}
}

// Create makes sure key exists, storing value when it does not. Existing keys
// are left alone unless the accessor runs in CreateFillUninitialised mode and
// the key is not initialised. Records only accept new keys when their type
// allows dynamic keys. A failing Create leaves the target unchanged.
func (p *Proxy) Create(key target.Key, value any) (err error) {
	defer observe(p.opts, opCreate, p.opts.clock.Now(), &err)
	res := resolve(p.target, key)
	if c, ok := p.target.Container(); ok {
		if res.exists && p.keepExisting(c.Initialised(key)) {
			return nil
		}
		if err := c.Store(key, value); err != nil {
			return unsupported(opCreate, key, "container rejected the value", err)
		}
		p.logMutation(opCreate, key)
		return nil
	}

	rec, _ := p.target.Record()
	switch {
	case res.form == formCallable:
		if res.found() {
			return nil
		}
		return unsupported(opCreate, key, "cannot create a callable", nil)
	case res.found() && res.form == formField:
		if p.keepExisting(rec.FieldInitialised(res.name)) {
			return nil
		}
		if err := rec.SetField(res.name, value); err != nil {
			return unsupported(opCreate, key, "field rejected the value", err)
		}
	case res.found() && res.form == formAdHoc:
		current, _ := rec.AdHocField(res.name)
		if p.keepExisting(current != nil) {
			return nil
		}
		if err := rec.AttachAdHocField(res.name, value); err != nil {
			return unsupported(opCreate, key, "cannot store ad hoc field", err)
		}
	default:
		if err := p.extend(opCreate, rec, key, res, value); err != nil {
			return err
		}
	}
	p.logMutation(opCreate, key)
	return nil
}

// extend adds a key the record does not expose yet, through the write hook
// when the type has one and as an ad hoc field otherwise.
func (p *Proxy) extend(op string, rec target.Record, key target.Key, res resolution, value any) error {
	shape := rec.Shape()
	if !dynamicKeysAllowed(shape) {
		return unsupported(op, key, fmt.Sprintf("cannot create a new property on %s", shape.Name), nil)
	}
	if shape.WriteHook {
		return rec.WriteFallback(res.name, value)
	}
	if res.exists && res.form == formField {
		return unsupported(op, key, "field is not public", nil)
	}
	if err := rec.AttachAdHocField(res.name, value); err != nil {
		return unsupported(op, key, "cannot store ad hoc field", err)
	}
	return nil
}

func (p *Proxy) keepExisting(initialised bool) bool {
	return initialised || p.opts.createMode == CreateKeepExisting
}

// Unset removes key. Absent keys are ignored. Declared fields cannot be
// removed and are reset to their uninitialised state instead.
func (p *Proxy) Unset(key target.Key) (err error) {
	defer observe(p.opts, opUnset, p.opts.clock.Now(), &err)
	if key.IsCallable() {
		return unsupported(opUnset, key, "cannot unset a callable", nil)
	}
	if c, ok := p.target.Container(); ok {
		if _, exists := c.Lookup(key); !exists {
			return nil
		}
		if err := c.Delete(key); err != nil {
			return unsupported(opUnset, key, "container refused the delete", err)
		}
		p.logMutation(opUnset, key)
		return nil
	}

	rec, _ := p.target.Record()
	res := resolveMember(rec, key)
	if !res.found() {
		return nil
	}
	switch res.form {
	case formAdHoc:
		if err := rec.DeleteAdHocField(res.name); err != nil {
			return unsupported(opUnset, key, "cannot delete ad hoc field", err)
		}
	case formFallback:
		return nil
	default:
		if err := rec.DeleteField(res.name); err != nil {
			return unsupported(opUnset, key, "cannot reset field", err)
		}
	}
	p.logMutation(opUnset, key)
	return nil
}

// Nested returns an accessor over the value under key. The nested accessor
// shares the value with its parent: writes through one are visible through
// the other. Values that cannot be wrapped yield ErrUnsupportedOperation.
func (p *Proxy) Nested(key target.Key) (_ *Proxy, err error) {
	defer observe(p.opts, opNested, p.opts.clock.Now(), &err)
	res := resolve(p.target, key)
	if !res.found() {
		return nil, target.NotFound(key)
	}
	v, err := p.ref(key, res)
	if err != nil {
		return nil, err
	}
	return p.wrap(opNested, key, v)
}

// Ensure returns an accessor over the value under key like Nested, first
// storing a fresh empty value when the key is absent or not initialised.
// Containers and declared fields receive a value suited to their slot; ad hoc
// and hook-backed keys receive a new *target.Map.
func (p *Proxy) Ensure(key target.Key) (_ *Proxy, err error) {
	defer observe(p.opts, opEnsure, p.opts.clock.Now(), &err)
	res := resolve(p.target, key)
	if c, ok := p.target.Container(); ok {
		if res.exists && c.Initialised(key) {
			v, _ := c.Ref(key)
			return p.wrap(opEnsure, key, v)
		}
		v, err := c.Initialise(key)
		if err != nil {
			return nil, unsupported(opEnsure, key, "cannot initialise entry", err)
		}
		p.logMutation(opEnsure, key)
		return p.wrap(opEnsure, key, v)
	}

	rec, _ := p.target.Record()
	var v any
	switch {
	case res.form == formCallable:
		if !res.found() {
			return nil, target.NotFound(key)
		}
		if v, err = rec.Invoke(res.name); err != nil {
			return nil, err
		}
		return p.wrap(opEnsure, key, v)
	case res.found() && res.form == formField:
		if rec.FieldInitialised(res.name) {
			if v, err = rec.FieldRef(res.name); err != nil {
				return nil, unsupported(opEnsure, key, "field is not readable", err)
			}
			return p.wrap(opEnsure, key, v)
		}
		if v, err = rec.InitialiseField(res.name); err != nil {
			return nil, unsupported(opEnsure, key, "cannot initialise field", err)
		}
	case res.found() && res.form == formAdHoc:
		if current, _ := rec.AdHocField(res.name); current != nil {
			if v, err = p.ref(key, res); err != nil {
				return nil, err
			}
			return p.wrap(opEnsure, key, v)
		}
		v = target.NewMap()
		if err := rec.AttachAdHocField(res.name, v); err != nil {
			return nil, unsupported(opEnsure, key, "cannot store ad hoc field", err)
		}
	default:
		if res.form == formFallback {
			if v, err = rec.ReadFallback(res.name); err != nil {
				return nil, err
			}
			if v != nil {
				return p.wrap(opEnsure, key, v)
			}
		}
		v = target.NewMap()
		if err := p.extend(opEnsure, rec, key, res, v); err != nil {
			return nil, err
		}
	}
	p.logMutation(opEnsure, key)
	return p.wrap(opEnsure, key, v)
}

// DynamicKeysAllowed reports whether Create may add keys the target does not
// have yet. Containers always allow it.
func (p *Proxy) DynamicKeysAllowed() bool {
	defer observe(p.opts, opDynamicKeysAllowed, p.opts.clock.Now(), nil)
	rec, ok := p.target.Record()
	if !ok {
		return true
	}
	return dynamicKeysAllowed(rec.Shape())
}

// ref returns the shared-storage form of a found key's value.
func (p *Proxy) ref(key target.Key, res resolution) (any, error) {
	if c, ok := p.target.Container(); ok {
		v, _ := c.Ref(key)
		return v, nil
	}
	rec, _ := p.target.Record()
	switch res.form {
	case formCallable:
		return rec.Invoke(res.name)
	case formAdHoc:
		v, _ := rec.AdHocField(res.name)
		switch v.(type) {
		case nil, target.Container, target.Record:
			return v, nil
		}
		// bound so a slice held ad hoc can be resized in place
		return target.NewSlot(
			func() any {
				v, _ := rec.AdHocField(res.name)
				return v
			},
			func(v any) error { return rec.AttachAdHocField(res.name, v) },
		), nil
	case formFallback:
		return rec.ReadFallback(res.name)
	default:
		v, err := rec.FieldRef(res.name)
		if err != nil {
			return nil, unsupported(opNested, key, "field is not readable", err)
		}
		return v, nil
	}
}

// wrap classifies value. Introspectors that do not handle slots get a second
// try with the value the slot holds.
func (p *Proxy) wrap(op string, key target.Key, value any) (*Proxy, error) {
	t, err := p.opts.introspector.Inspect(value)
	if s, ok := value.(*target.Slot); ok && err != nil {
		value = s.Load()
		t, err = p.opts.introspector.Inspect(value)
	}
	if err != nil {
		return nil, unsupported(op, key, fmt.Sprintf("cannot create a proxy for %T", value), err)
	}
	return &Proxy{target: t, opts: p.opts}, nil
}

func (p *Proxy) logMutation(op string, key target.Key) {
	p.opts.logger.Debug("proxy mutation", "op", op, "key", key.String(), "kind", p.target.Kind().String())
}

// observe reports an operation outcome. errp may be nil for operations that
// cannot fail.
func observe(o options, op string, start time.Time, errp *error) {
	success := errp == nil || *errp == nil
	o.metrics.Observe(op, success, o.clock.Now().Sub(start))
}
