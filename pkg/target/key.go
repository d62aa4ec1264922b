package target

import (
	"strconv"
	"strings"
)

// CallableSuffix marks a key that addresses a zero-argument callable member.
const CallableSuffix = "()"

// Key identifies a container entry or a record member. It holds either an
// integer or a string and is comparable, so it can be used as a map key.
type Key struct {
	name  string
	index int
	isInt bool
}

// IntKey returns an integer key.
func IntKey(i int) Key {
	return Key{index: i, isInt: true}
}

// StringKey returns a string key.
func StringKey(s string) Key {
	return Key{name: s}
}

// MethodKey returns the callable form of name, rendered as `name()`.
func MethodKey(name string) Key {
	return Key{name: name + CallableSuffix}
}

// IsInt reports whether the key holds an integer.
func (k Key) IsInt() bool {
	return k.isInt
}

// Int returns the integer held by the key.
func (k Key) Int() (int, bool) {
	return k.index, k.isInt
}

// IsCallable reports whether the key is written in callable form. Integer keys
// never are.
func (k Key) IsCallable() bool {
	return !k.isInt && strings.HasSuffix(k.name, CallableSuffix)
}

// CallableName strips the callable suffix.
func (k Key) CallableName() string {
	return strings.TrimSuffix(k.name, CallableSuffix)
}

func (k Key) String() string {
	if k.isInt {
		return strconv.Itoa(k.index)
	}
	return k.name
}
