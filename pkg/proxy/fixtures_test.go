package proxy

import (
	"errors"
	"time"

	"keyproxy/pkg/introspect"
	"keyproxy/pkg/target"
)

type widget struct {
	Property string `proxy:"property"`
	Label    *string
	Sizes    map[string]int
	private  int
}

func (w *widget) Method() string { return "called:" + w.Property }

type failing struct{}

func (f *failing) Explode() (int, error) { return 0, errors.New("boom") }

type note struct {
	introspect.Dynamic
	Title  string
	secret string
}

// readThrough answers every field-form key through its read hook.
type readThrough struct {
	reads int
}

func (r *readThrough) ReadFallback(name string) (any, error) {
	r.reads++
	if name == "nil" {
		return nil, nil
	}
	return name + "!", nil
}

// hooked routes unknown keys to a backing map.
type hooked struct {
	Known   string
	private string
	data    map[string]any
}

func (h *hooked) ReadFallback(name string) (any, error) {
	return h.data[name], nil
}

func (h *hooked) WriteFallback(name string, value any) error {
	if name == "forbidden" {
		return errors.New("write refused")
	}
	if h.data == nil {
		h.data = make(map[string]any)
	}
	h.data[name] = value
	return nil
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

type stubClock struct{ t time.Time }

func (s stubClock) Now() time.Time { return s.t }

// fakeRecord is a hand-written Record used to exercise the accessor without
// any reflection.
type fakeRecord struct {
	shape  target.Shape
	fields map[string]any
	adHoc  *target.Map
	calls  map[string]func() (any, error)
}

func newFakeRecord() *fakeRecord {
	return &fakeRecord{
		shape: target.Shape{
			Name: "fake",
			Fields: []target.Member{
				{Name: "visible", Visibility: target.Public},
				{Name: "hidden", Visibility: target.NonPublic},
			},
			Callables: []target.Member{
				{Name: "run", Visibility: target.Public},
				{Name: "internal", Visibility: target.NonPublic},
			},
			DynamicMarked: true,
		},
		fields: map[string]any{"visible": "v", "hidden": "h"},
		adHoc:  target.NewMap(),
		calls: map[string]func() (any, error){
			"run":      func() (any, error) { return "ran", nil },
			"internal": func() (any, error) { return "internal", nil },
		},
	}
}

func (f *fakeRecord) Value() any           { return f }
func (f *fakeRecord) Shape() *target.Shape { return &f.shape }

func (f *fakeRecord) Field(name string) (any, error) {
	v, ok := f.fields[name]
	if !ok {
		return nil, errors.New("no field " + name)
	}
	return v, nil
}

func (f *fakeRecord) FieldRef(name string) (any, error) { return f.Field(name) }

func (f *fakeRecord) FieldInitialised(name string) bool { return f.fields[name] != nil }

func (f *fakeRecord) SetField(name string, value any) error {
	f.fields[name] = value
	return nil
}

func (f *fakeRecord) DeleteField(name string) error {
	f.fields[name] = nil
	return nil
}

func (f *fakeRecord) InitialiseField(name string) (any, error) {
	m := target.NewMap()
	f.fields[name] = m
	return m, nil
}

func (f *fakeRecord) Invoke(name string) (any, error) {
	call, ok := f.calls[name]
	if !ok {
		return nil, errors.New("no callable " + name)
	}
	return call()
}

func (f *fakeRecord) AdHocFieldNames() []string {
	var names []string
	for _, k := range f.adHoc.Keys() {
		names = append(names, k.String())
	}
	return names
}

func (f *fakeRecord) AdHocField(name string) (any, bool) {
	return f.adHoc.Lookup(target.StringKey(name))
}

func (f *fakeRecord) AttachAdHocField(name string, value any) error {
	f.adHoc.Put(target.StringKey(name), value)
	return nil
}

func (f *fakeRecord) DeleteAdHocField(name string) error {
	return f.adHoc.Delete(target.StringKey(name))
}

func (f *fakeRecord) ReadFallback(string) (any, error) {
	return nil, errors.New("no read hook")
}

func (f *fakeRecord) WriteFallback(string, any) error {
	return errors.New("no write hook")
}
