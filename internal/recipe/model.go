package recipe

import (
	"time"

	"github.com/hashicorp/hcl/v2"
)

// StepKind discriminates what a step invokes.
type StepKind int

const (
	// KindCapability invokes a host-registered capability by name.
	KindCapability StepKind = iota
	// KindSubRecipe runs another recipe as a nested workflow.
	KindSubRecipe
)

func (k StepKind) String() string {
	if k == KindSubRecipe {
		return "sub_recipe"
	}
	return "capability"
}

// Trigger controls when a step is eligible for dispatch.
type Trigger int

const (
	// TriggerNormal steps participate in ordinary DAG execution.
	TriggerNormal Trigger = iota
	// TriggerOnError steps run only after the DAG is exhausted with at
	// least one failed step. They must not declare dependencies.
	TriggerOnError
)

func (t Trigger) String() string {
	if t == TriggerOnError {
		return "on_error"
	}
	return "normal"
}

// RetryPolicy governs local recovery attempts for a single step.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Backoff is the delay before the second attempt.
	Backoff time.Duration
	// Exponential doubles the delay after every failed attempt.
	Exponential bool
}

// ParamSpec declares a recipe parameter.
type ParamSpec struct {
	Name     string
	Required bool
	// Default is applied when the caller supplies no binding. A parameter
	// with a default is never required.
	Default    any
	HasDefault bool
}

// StepSpec is the immutable definition of a single step.
type StepSpec struct {
	// Name is unique within the recipe.
	Name string
	// Index is the declared order, used only as a reporting tie-break.
	Index int
	Kind  StepKind
	// Uses names the capability for KindCapability steps.
	Uses string
	// Recipe names the nested recipe for KindSubRecipe steps.
	Recipe string
	// Arguments may contain unresolved reference placeholders; they are
	// resolved against parameters and the context store at dispatch time.
	Arguments map[string]Value
	DependsOn []string
	// Condition, when set, must evaluate to a boolean before dispatch.
	Condition hcl.Expression
	// ParallelGroup is an informational label; it never affects scheduling.
	ParallelGroup string
	Trigger       Trigger
	Retry         *RetryPolicy
	// Timeout bounds a single attempt. Zero means no engine-side bound.
	Timeout time.Duration
}

// Recipe is an immutable workflow definition. It is created by a loader
// and never mutated afterwards.
type Recipe struct {
	Name    string
	Version string
	Params  []ParamSpec
	Steps   []StepSpec
}

// Step returns the step with the given name, or nil.
func (r *Recipe) Step(name string) *StepSpec {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}
