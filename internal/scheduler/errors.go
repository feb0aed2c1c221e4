package scheduler

import "errors"

var (
	// ErrMissingParameter is the sentinel wrapped by MissingParameterError.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrSubRecipe is the sentinel wrapped by SubRecipeFailure.
	ErrSubRecipe = errors.New("sub-recipe failed")

	// ErrRunFailed is returned by Run when one or more steps failed.
	ErrRunFailed = errors.New("run failed")

	// errStalled guards against a run loop that can make no progress.
	// With cycle detection at build time this is unreachable.
	errStalled = errors.New("scheduler stalled: no step is ready and none completed")
)

// MissingParameterError is a build-time abort: a required recipe
// parameter has no binding and no default.
type MissingParameterError struct {
	Recipe string
	Param  string
}

func (e *MissingParameterError) Error() string {
	return "recipe " + e.Recipe + ": missing required parameter " + e.Param
}

func (e *MissingParameterError) Unwrap() error {
	return ErrMissingParameter
}

// SubRecipeFailure wraps a child run's failure for propagation to the
// parent: the parent sees a single failed step, not the child's
// internals.
type SubRecipeFailure struct {
	Step   string
	Recipe string
	Err    error
}

func (e *SubRecipeFailure) Error() string {
	return "step " + e.Step + ": sub-recipe " + e.Recipe + " failed: " + e.Err.Error()
}

func (e *SubRecipeFailure) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the ErrSubRecipe sentinel.
func (e *SubRecipeFailure) Is(target error) bool {
	return target == ErrSubRecipe
}
