package dag

import (
	"errors"
	"strings"
)

var (
	// ErrCyclicDependency is the sentinel wrapped by CyclicDependencyError.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrUnknownDependency is the sentinel wrapped by UnknownDependencyError.
	ErrUnknownDependency = errors.New("unknown dependency")
)

// CyclicDependencyError names the steps forming a dependency cycle.
// It aborts the run before any step executes.
type CyclicDependencyError struct {
	Recipe string
	Cycle  []string
}

func (e *CyclicDependencyError) Error() string {
	return "recipe " + e.Recipe + ": cyclic dependency: " + strings.Join(e.Cycle, " -> ")
}

func (e *CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}

// UnknownDependencyError means a step's depends_on names a step that is
// absent from the recipe's normal DAG.
type UnknownDependencyError struct {
	Recipe     string
	Step       string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return "recipe " + e.Recipe + ", step " + e.Step + ": depends on unknown step " + e.Dependency
}

func (e *UnknownDependencyError) Unwrap() error {
	return ErrUnknownDependency
}
