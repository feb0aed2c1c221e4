package recipe

import "errors"

var (
	// ErrEmptySteps means a recipe declares no steps.
	ErrEmptySteps = errors.New("recipe has no steps")

	// ErrEmptyStepName means a step has no name.
	ErrEmptyStepName = errors.New("step has empty name")

	// ErrDuplicateStepName means two steps share a name.
	ErrDuplicateStepName = errors.New("duplicate step name")

	// ErrMissingTarget means a step names neither a capability nor a recipe.
	ErrMissingTarget = errors.New("step names no capability or sub-recipe")

	// ErrOnErrorDependencies means an on_error step declares depends_on.
	ErrOnErrorDependencies = errors.New("on_error step must not declare dependencies")

	// ErrDuplicateRecipe means two loaded recipes share a name.
	ErrDuplicateRecipe = errors.New("duplicate recipe name")

	// ErrUnknownRecipe means a recipe lookup by name failed.
	ErrUnknownRecipe = errors.New("unknown recipe")
)

// ValidationError annotates a definition error with its recipe and step.
type ValidationError struct {
	Recipe string
	Step   string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := "recipe " + e.Recipe
	if e.Step != "" {
		msg += ", step " + e.Step
	}
	return msg + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
