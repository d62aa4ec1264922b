package introspect

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"keyproxy/pkg/target"
)

var keyOpts = cmp.AllowUnexported(target.Key{})

func TestMapContainerKeysAreSorted(t *testing.T) {
	c := inspectContainer(t, map[string]int{"foo": 1, "bar": 2, "baz": 3})
	want := []target.Key{target.StringKey("bar"), target.StringKey("baz"), target.StringKey("foo")}
	if diff := cmp.Diff(want, c.Keys(), keyOpts); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	ints := inspectContainer(t, map[int]string{10: "a", -1: "b", 2: "c"})
	want = []target.Key{target.IntKey(-1), target.IntKey(2), target.IntKey(10)}
	if diff := cmp.Diff(want, ints.Keys(), keyOpts); diff != "" {
		t.Fatalf("int keys mismatch (-want +got):\n%s", diff)
	}
}

func TestMapContainerKeyMatchingIsStrict(t *testing.T) {
	ints := inspectContainer(t, map[int]string{1: "one"})
	if _, ok := ints.Lookup(target.StringKey("1")); ok {
		t.Fatalf("string key must not match int key")
	}
	if v, ok := ints.Lookup(target.IntKey(1)); !ok || v != "one" {
		t.Fatalf("Lookup(1) = %v, %v", v, ok)
	}
	if err := ints.Store(target.StringKey("2"), "two"); !errors.Is(err, ErrKeyType) {
		t.Fatalf("expected ErrKeyType, got %v", err)
	}

	strs := inspectContainer(t, map[string]int{})
	if err := strs.Store(target.IntKey(0), 1); !errors.Is(err, ErrKeyType) {
		t.Fatalf("expected ErrKeyType, got %v", err)
	}
}

func TestMapContainerStoreAndDelete(t *testing.T) {
	m := map[string]int{"a": 1}
	c := inspectContainer(t, m)
	if err := c.Store(target.StringKey("b"), int16(2)); err != nil {
		t.Fatalf("store: %v", err)
	}
	if m["b"] != 2 {
		t.Fatalf("expected write to reach caller map, got %v", m)
	}
	if err := c.Store(target.StringKey("c"), "x"); err == nil {
		t.Fatalf("expected value type mismatch")
	}
	if err := c.Delete(target.StringKey("a")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.Delete(target.StringKey("missing")); err != nil {
		t.Fatalf("delete of missing key: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"b": 2}, m); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
}

func TestMapContainerThroughPointerAllocates(t *testing.T) {
	var m map[string]any
	c := inspectContainer(t, &m)
	if len(c.Keys()) != 0 {
		t.Fatalf("expected no keys")
	}
	if err := c.Store(target.StringKey("a"), 1); err != nil {
		t.Fatalf("store: %v", err)
	}
	if m["a"] != 1 {
		t.Fatalf("expected allocated map, got %v", m)
	}
}

func TestMapContainerInitialise(t *testing.T) {
	m := map[string]any{"nil": nil}
	c := inspectContainer(t, m)
	if c.Initialised(target.StringKey("nil")) {
		t.Fatalf("nil value must report uninitialised")
	}
	fresh, err := c.Initialise(target.StringKey("nil"))
	if err != nil {
		t.Fatalf("initialise: %v", err)
	}
	if _, ok := fresh.(*target.Map); !ok || m["nil"] != fresh {
		t.Fatalf("expected shared *target.Map, got %T", fresh)
	}

	counts := inspectContainer(t, map[string]int{})
	if _, err := counts.Initialise(target.StringKey("n")); !errors.Is(err, ErrNotAddressable) {
		t.Fatalf("expected ErrNotAddressable, got %v", err)
	}

	lists := map[string][]int{}
	fresh, err = inspectContainer(t, lists).Initialise(target.StringKey("l"))
	if err != nil {
		t.Fatalf("initialise slice entry: %v", err)
	}
	if err := inspectContainer(t, fresh).Store(target.IntKey(0), 5); err != nil {
		t.Fatalf("store through fresh slice: %v", err)
	}
	if diff := cmp.Diff(map[string][]int{"l": {5}}, lists); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
}

func TestMapContainerUnsignedKeysFitInt(t *testing.T) {
	small := inspectContainer(t, map[uint8]string{200: "x"})
	if diff := cmp.Diff([]target.Key{target.IntKey(200)}, small.Keys(), keyOpts); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if _, ok := small.Lookup(target.IntKey(200)); !ok {
		t.Fatalf("expected listed key to be found")
	}
	if _, err := Default().Inspect(map[uint]string{}); !errors.Is(err, target.ErrUnsupportedOperation) {
		t.Fatalf("expected uint keys refused, got %v", err)
	}
}

func TestSliceContainerThroughPointerResizes(t *testing.T) {
	s := []int{1}
	c := inspectContainer(t, &s)

	if err := c.Store(target.IntKey(3), 9); err != nil {
		t.Fatalf("store: %v", err)
	}
	if diff := cmp.Diff([]int{1, 0, 0, 9}, s); diff != "" {
		t.Fatalf("grown slice mismatch (-want +got):\n%s", diff)
	}
	if err := c.Delete(target.IntKey(0)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if diff := cmp.Diff([]int{0, 0, 9}, s); diff != "" {
		t.Fatalf("shrunk slice mismatch (-want +got):\n%s", diff)
	}
	want := []target.Key{target.IntKey(0), target.IntKey(1), target.IntKey(2)}
	if diff := cmp.Diff(want, c.Keys(), keyOpts); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if err := c.Store(target.IntKey(-1), 1); !errors.Is(err, ErrKeyType) {
		t.Fatalf("expected ErrKeyType for negative index, got %v", err)
	}
	if err := c.Store(target.StringKey("a"), 1); !errors.Is(err, ErrKeyType) {
		t.Fatalf("expected ErrKeyType for string key, got %v", err)
	}
}

func TestSliceContainerGrowthIsBounded(t *testing.T) {
	s := []int{1}
	c := inspectContainer(t, &s)
	for _, i := range []int{math.MaxInt, 1 + MaxGrowth} {
		if err := c.Store(target.IntKey(i), 2); !errors.Is(err, ErrIndexRange) {
			t.Fatalf("Store(%d): expected ErrIndexRange, got %v", i, err)
		}
	}
	if len(s) != 1 {
		t.Fatalf("refused store must not resize, got len %d", len(s))
	}
	if err := c.Store(target.IntKey(MaxGrowth), 2); err != nil {
		t.Fatalf("store at the growth limit: %v", err)
	}
	if len(s) != MaxGrowth+1 || s[MaxGrowth] != 2 {
		t.Fatalf("unexpected slice length %d", len(s))
	}
}

func TestSliceContainerBoundToMapEntry(t *testing.T) {
	m := map[string]any{"tags": []any{"a", "b"}}
	ref, ok := inspectContainer(t, m).Ref(target.StringKey("tags"))
	if !ok {
		t.Fatalf("expected tags entry")
	}
	tags := inspectContainer(t, ref)
	if err := tags.Store(target.IntKey(2), "c"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tags.Delete(target.IntKey(0)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"tags": []any{"b", "c"}}, m); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"b", "c"}, tags.Value()); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}

	m["tags"] = "replaced"
	if len(tags.Keys()) != 0 {
		t.Fatalf("expected a replaced entry to read as empty, got %v", tags.Keys())
	}
}

func TestSliceContainerBindsInterfaceElements(t *testing.T) {
	s := []any{[]any{1}}
	ref, _ := inspectContainer(t, &s).Ref(target.IntKey(0))
	if err := inspectContainer(t, ref).Store(target.IntKey(1), 2); err != nil {
		t.Fatalf("store: %v", err)
	}
	if diff := cmp.Diff([]any{[]any{1, 2}}, s); diff != "" {
		t.Fatalf("slice mismatch (-want +got):\n%s", diff)
	}
}

func TestSliceContainerRefSharesElements(t *testing.T) {
	homes := []address{{City: "Rome"}}
	c := inspectContainer(t, &homes)
	elem, ok := c.Ref(target.IntKey(0))
	if !ok {
		t.Fatalf("expected element")
	}
	if err := inspectRecord(t, elem).SetField("City", "Turin"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if homes[0].City != "Turin" {
		t.Fatalf("expected element write to reach slice, got %q", homes[0].City)
	}
}

func TestSliceContainerInitialiseAppends(t *testing.T) {
	var s []map[string]int
	c := inspectContainer(t, &s)
	fresh, err := c.Initialise(target.IntKey(0))
	if err != nil {
		t.Fatalf("initialise: %v", err)
	}
	if len(s) != 1 || s[0] == nil {
		t.Fatalf("expected allocated element, got %v", s)
	}
	if reflect.ValueOf(fresh).Pointer() != reflect.ValueOf(s[0]).Pointer() {
		t.Fatalf("expected returned map to share storage with the slot")
	}
	if !c.Initialised(target.IntKey(0)) {
		t.Fatalf("expected slot to report initialised")
	}
}
