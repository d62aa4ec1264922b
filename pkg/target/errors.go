package target

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound indicates a key that does not exist or is not visible.
var ErrKeyNotFound = errors.New("key not found")

// ErrUnsupportedOperation indicates an operation that is structurally
// impossible for the addressed key or value.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// KeyNotFoundError carries the offending key. It matches ErrKeyNotFound.
type KeyNotFoundError struct {
	Key Key
}

// NotFound returns a KeyNotFoundError for key.
func NotFound(key Key) error {
	return &KeyNotFoundError{Key: key}
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key `%s` not found", e.Key)
}

// Is reports whether err is ErrKeyNotFound.
func (e *KeyNotFoundError) Is(err error) bool {
	return err == ErrKeyNotFound
}

// UnsupportedOperationError describes a rejected operation. Err holds the
// underlying failure, if any.
type UnsupportedOperationError struct {
	Op     string
	Key    Key
	Reason string
	Err    error
}

// Unsupported returns an UnsupportedOperationError for op on key.
func Unsupported(op string, key Key, reason string) error {
	return &UnsupportedOperationError{Op: op, Key: key, Reason: reason}
}

func (e *UnsupportedOperationError) Error() string {
	msg := fmt.Sprintf("%s `%s`: %s", e.Op, e.Key, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether err is ErrUnsupportedOperation.
func (e *UnsupportedOperationError) Is(err error) bool {
	return err == ErrUnsupportedOperation
}

func (e *UnsupportedOperationError) Unwrap() error {
	return e.Err
}
