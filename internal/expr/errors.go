package expr

import "errors"

// ErrUnresolvedReference is the sentinel wrapped by every
// UnresolvedReferenceError.
var ErrUnresolvedReference = errors.New("unresolved reference")

// UnresolvedReferenceError means an argument or condition referenced a
// dotted path that exists neither in the static configuration nor in the
// context store. It is a step-time failure, never a build-time abort.
type UnresolvedReferenceError struct {
	Path string
}

func (e *UnresolvedReferenceError) Error() string {
	return "unresolved reference: " + e.Path
}

func (e *UnresolvedReferenceError) Unwrap() error {
	return ErrUnresolvedReference
}

// ErrNotBoolean means a condition expression produced a non-boolean value.
var ErrNotBoolean = errors.New("condition is not a boolean")
