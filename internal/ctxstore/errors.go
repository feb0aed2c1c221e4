package ctxstore

import "errors"

// ErrKeyNotFound is the sentinel wrapped by every KeyNotFoundError.
var ErrKeyNotFound = errors.New("context key not found")

// KeyNotFoundError is returned by Get when the key is absent and no
// default was supplied.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return "context key not found: " + e.Key
}

func (e *KeyNotFoundError) Unwrap() error {
	return ErrKeyNotFound
}
