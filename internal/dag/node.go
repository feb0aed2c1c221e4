package dag

import (
	"sync/atomic"
	"time"

	"github.com/vk/ladle/internal/recipe"
)

// Status is the lifecycle state of an execution node.
type Status int32

const (
	StatusPending Status = iota
	StatusReady
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// Node is the runtime wrapper around one StepSpec. Status is atomic
// because workers finish concurrently within a level; the remaining
// fields are written only by the goroutine executing the node (or by the
// scheduler outside any level) and read after the level barrier.
type Node struct {
	Spec *recipe.StepSpec

	// Deps and Dependents are fixed at build time.
	Deps       []*Node
	Dependents []*Node

	status atomic.Int32

	Result     any
	Err        error
	SkipReason string
	Attempts   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Status returns the node's current status.
func (n *Node) Status() Status {
	return Status(n.status.Load())
}

// SetStatus transitions the node.
func (n *Node) SetStatus(s Status) {
	n.status.Store(int32(s))
}

// Name returns the step name.
func (n *Node) Name() string {
	return n.Spec.Name
}
