package executor

import (
	"errors"
	"time"
)

var (
	// ErrCapability is the sentinel wrapped by CapabilityError.
	ErrCapability = errors.New("capability failed")

	// ErrStepTimeout is the sentinel wrapped by StepTimeoutError.
	ErrStepTimeout = errors.New("step timed out")
)

// CapabilityError wraps any error (or recovered panic) raised by a
// step's capability implementation.
type CapabilityError struct {
	Step string
	Err  error
}

func (e *CapabilityError) Error() string {
	return "step " + e.Step + ": capability failed: " + e.Err.Error()
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the ErrCapability sentinel as well as the
// wrapped cause.
func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapability
}

// StepTimeoutError means a single attempt exceeded the step's timeout.
type StepTimeoutError struct {
	Step    string
	Timeout time.Duration
}

func (e *StepTimeoutError) Error() string {
	return "step " + e.Step + ": timed out after " + e.Timeout.String()
}

func (e *StepTimeoutError) Unwrap() error {
	return ErrStepTimeout
}
