package introspect

import (
	"reflect"
	"strings"
	"sync"

	"keyproxy/pkg/target"
)

// TagName is the struct tag consulted for field names. `proxy:"name"` renames
// a field, `proxy:"-"` hides it.
const TagName = "proxy"

var typeCache sync.Map // map[reflect.Type]*typeInfo

var (
	dynamicType        = reflect.TypeOf(Dynamic{})
	objectType         = reflect.TypeOf(Object{})
	errorType          = reflect.TypeOf((*error)(nil)).Elem()
	fallbackReaderType = reflect.TypeOf((*FallbackReader)(nil)).Elem()
	fallbackWriterType = reflect.TypeOf((*FallbackWriter)(nil)).Elem()
)

// reservedMethods are never reported as callables: they belong to the ad hoc
// bag or to the catch-all hooks.
var reservedMethods = func() map[string]struct{} {
	names := make(map[string]struct{})
	for _, t := range []reflect.Type{
		reflect.TypeOf((*adHocBag)(nil)).Elem(),
		fallbackReaderType,
		fallbackWriterType,
	} {
		for i := 0; i < t.NumMethod(); i++ {
			names[t.Method(i).Name] = struct{}{}
		}
	}
	return names
}()

// typeInfo is the cached introspection result for one struct type.
type typeInfo struct {
	shape     target.Shape
	fields    map[string]fieldInfo
	callables map[string]callableInfo
}

type fieldInfo struct {
	index []int
	typ   reflect.Type
}

type callableInfo struct {
	index   int
	results int
	withErr bool
}

// describe returns the cached typeInfo for struct type t, building it on first
// use.
func describe(t reflect.Type) *typeInfo {
	if info, ok := typeCache.Load(t); ok {
		return info.(*typeInfo)
	}
	info, _ := typeCache.LoadOrStore(t, buildTypeInfo(t))
	return info.(*typeInfo)
}

// ShapeOf returns the shape of struct type t (or of the struct t points to).
func ShapeOf(t reflect.Type) (*target.Shape, bool) {
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	return &describe(t).shape, true
}

func buildTypeInfo(t reflect.Type) *typeInfo {
	info := &typeInfo{
		shape: target.Shape{
			Name:    t.String(),
			AnyType: t == objectType,
		},
		fields:    make(map[string]fieldInfo),
		callables: make(map[string]callableInfo),
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == dynamicType {
			info.shape.DynamicMarked = true
		}
	}

	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous {
			continue
		}
		if t.Field(f.Index[0]).Type == dynamicType {
			continue
		}
		name, public := fieldName(t, f)
		if _, dup := info.fields[name]; dup {
			continue
		}
		vis := target.NonPublic
		if public {
			vis = target.Public
		}
		info.shape.Fields = append(info.shape.Fields, target.Member{Name: name, Visibility: vis})
		info.fields[name] = fieldInfo{index: f.Index, typ: f.Type}
	}

	pt := reflect.PointerTo(t)
	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		if _, reserved := reservedMethods[m.Name]; reserved {
			continue
		}
		call, ok := zeroArgCallable(m)
		if !ok {
			continue
		}
		call.index = i
		info.shape.Callables = append(info.shape.Callables, target.Member{Name: m.Name, Visibility: target.Public})
		info.callables[m.Name] = call
	}

	info.shape.ReadHook = pt.Implements(fallbackReaderType)
	info.shape.WriteHook = pt.Implements(fallbackWriterType)
	return info
}

// fieldName resolves the key name of f and whether it is public. A field is
// public when it is exported, not hidden by tag and reachable through exported
// embedded fields only.
func fieldName(t reflect.Type, f reflect.StructField) (string, bool) {
	name := f.Name
	public := f.IsExported()
	if tag, ok := f.Tag.Lookup(TagName); ok {
		tag, _, _ = strings.Cut(tag, ",")
		switch tag {
		case "-":
			public = false
		case "":
		default:
			name = tag
		}
	}
	for depth := 1; public && depth < len(f.Index); depth++ {
		if !t.FieldByIndex(f.Index[:depth]).IsExported() {
			public = false
		}
	}
	return name, public
}

// zeroArgCallable accepts methods (receiver excluded) taking no arguments and
// returning nothing, one value, or a value and an error.
func zeroArgCallable(m reflect.Method) (callableInfo, bool) {
	mt := m.Type
	if mt.NumIn() != 1 || mt.IsVariadic() {
		return callableInfo{}, false
	}
	switch mt.NumOut() {
	case 0, 1:
		return callableInfo{results: mt.NumOut()}, true
	case 2:
		if mt.Out(1) != errorType {
			return callableInfo{}, false
		}
		return callableInfo{results: 2, withErr: true}, true
	default:
		return callableInfo{}, false
	}
}
