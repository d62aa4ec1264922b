package target

import (
	"errors"
	"fmt"
	"testing"
)

func TestKeyForms(t *testing.T) {
	cases := []struct {
		name     string
		key      Key
		str      string
		callable bool
		bare     string
	}{
		{name: "int", key: IntKey(-3), str: "-3"},
		{name: "string", key: StringKey("foo"), str: "foo", bare: "foo"},
		{name: "method", key: MethodKey("run"), str: "run()", callable: true, bare: "run"},
		{name: "string with suffix", key: StringKey("run()"), str: "run()", callable: true, bare: "run"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.key.String(); got != tc.str {
				t.Fatalf("String() = %q, want %q", got, tc.str)
			}
			if got := tc.key.IsCallable(); got != tc.callable {
				t.Fatalf("IsCallable() = %v, want %v", got, tc.callable)
			}
			if !tc.key.IsInt() && tc.key.CallableName() != tc.bare {
				t.Fatalf("CallableName() = %q, want %q", tc.key.CallableName(), tc.bare)
			}
		})
	}
	if IntKey(1) == StringKey("1") {
		t.Fatalf("integer and string keys must stay distinct")
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	nf := NotFound(StringKey("missing"))
	if !errors.Is(nf, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound match")
	}
	if nf.Error() != "key `missing` not found" {
		t.Fatalf("unexpected message: %s", nf.Error())
	}
	var knf *KeyNotFoundError
	if !errors.As(fmt.Errorf("wrapped: %w", nf), &knf) || knf.Key != StringKey("missing") {
		t.Fatalf("expected key to be recoverable via errors.As")
	}

	cause := errors.New("boom")
	un := &UnsupportedOperationError{Op: "set", Key: MethodKey("run"), Reason: "cannot set a callable", Err: cause}
	if !errors.Is(un, ErrUnsupportedOperation) || !errors.Is(un, cause) {
		t.Fatalf("expected sentinel and cause to match")
	}
	if un.Error() != "set `run()`: cannot set a callable: boom" {
		t.Fatalf("unexpected message: %s", un.Error())
	}
}

func TestShapeLookups(t *testing.T) {
	shape := &Shape{
		Fields:    []Member{{Name: "a", Visibility: Public}, {Name: "b", Visibility: NonPublic}},
		Callables: []Member{{Name: "Run", Visibility: Public}},
	}
	if m, ok := shape.Field("b"); !ok || m.Public() {
		t.Fatalf("expected non-public field b, got %+v %v", m, ok)
	}
	if _, ok := shape.Callable("Stop"); ok {
		t.Fatalf("unexpected callable")
	}
	if got := shape.PublicFields(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("PublicFields() = %v", got)
	}
	if got := shape.PublicCallables(); len(got) != 1 || got[0] != "Run" {
		t.Fatalf("PublicCallables() = %v", got)
	}
}

func TestChainSkipsUnsupportedIntrospectors(t *testing.T) {
	refuse := IntrospectorFunc(func(v any) (Target, error) {
		return Target{}, fmt.Errorf("%w: %T", ErrUnsupportedOperation, v)
	})
	accept := IntrospectorFunc(func(v any) (Target, error) {
		if m, ok := v.(*Map); ok {
			return FromContainer(m), nil
		}
		return Target{}, fmt.Errorf("%w: %T", ErrUnsupportedOperation, v)
	})
	chain := Chain(refuse, nil, accept)

	m := NewMap()
	got, err := chain.Inspect(m)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if got.Kind() != KindContainer || got.Value() != m {
		t.Fatalf("unexpected target %v", got.Kind())
	}
	if _, err := chain.Inspect(42); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("expected unsupported error, got %v", err)
	}

	hard := errors.New("broken")
	stop := Chain(IntrospectorFunc(func(any) (Target, error) { return Target{}, hard }), accept)
	if _, err := stop.Inspect(m); !errors.Is(err, hard) {
		t.Fatalf("expected chain to stop on hard error, got %v", err)
	}
	if _, err := Chain().Inspect(m); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("expected empty chain to refuse, got %v", err)
	}
}
