package proxy

import "keyproxy/pkg/target"

// dynamicKeysAllowed reports whether records of shape accept keys they do not
// declare. Any one of the three signals is enough.
func dynamicKeysAllowed(shape *target.Shape) bool {
	return shape.AnyType || shape.DynamicMarked || shape.WriteHook
}
