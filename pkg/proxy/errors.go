package proxy

import "keyproxy/pkg/target"

// Error aliases so callers can match failures without importing pkg/target.
type (
	// KeyNotFoundError is an alias of target.KeyNotFoundError.
	KeyNotFoundError = target.KeyNotFoundError
	// UnsupportedOperationError is an alias of target.UnsupportedOperationError.
	UnsupportedOperationError = target.UnsupportedOperationError
)

// Sentinels matched by errors.Is.
var (
	ErrKeyNotFound          = target.ErrKeyNotFound
	ErrUnsupportedOperation = target.ErrUnsupportedOperation
)

// Key aliases.
type Key = target.Key

var (
	IntKey    = target.IntKey
	StringKey = target.StringKey
	MethodKey = target.MethodKey
)

func unsupported(op string, key target.Key, reason string, err error) error {
	return &target.UnsupportedOperationError{Op: op, Key: key, Reason: reason, Err: err}
}
