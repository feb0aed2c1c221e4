// Package executor runs a single step: it resolves the step's arguments,
// invokes the registered capability under the step's timeout and retry
// policy, and captures the result or error into the context store. Step
// failures are always absorbed here; they never unwind into the
// scheduler's control flow.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/ladle/internal/ctxlog"
	"github.com/vk/ladle/internal/ctxstore"
	"github.com/vk/ladle/internal/dag"
	"github.com/vk/ladle/internal/expr"
	"github.com/vk/ladle/internal/registry"
)

// WhoEngine attributes engine-side context writes, as opposed to step
// results which are attributed to the step itself.
const WhoEngine = "engine"

// Executor invokes capabilities for execution nodes. It is stateless and
// shared by all workers of a run.
type Executor struct {
	registry *registry.Registry
	resolver *expr.Resolver
}

// New creates an executor over the given capability registry.
func New(reg *registry.Registry, resolver *expr.Resolver) *Executor {
	return &Executor{registry: reg, resolver: resolver}
}

// Execute runs one capability node to a terminal status. The returned
// error reports why the node failed; the node and the store already
// carry the outcome either way.
func (e *Executor) Execute(ctx context.Context, node *dag.Node, scope *expr.Scope, store *ctxstore.Store) error {
	spec := node.Spec
	logger := ctxlog.FromContext(ctx).With("step", spec.Name, "capability", spec.Uses)

	node.SetStatus(dag.StatusRunning)
	node.StartedAt = time.Now()
	defer func() { node.FinishedAt = time.Now() }()

	args, err := e.resolver.ResolveArgs(spec.Arguments, scope)
	if err != nil {
		logger.Error("Argument resolution failed.", "error", err)
		return e.fail(node, store, err)
	}

	cap, err := e.registry.Lookup(spec.Uses)
	if err != nil {
		return e.fail(node, store, err)
	}

	call := &registry.Call{Step: spec.Name, Args: args, State: store}

	maxAttempts := 1
	backoff := time.Duration(0)
	exponential := false
	if spec.Retry != nil && spec.Retry.MaxAttempts > 1 {
		maxAttempts = spec.Retry.MaxAttempts
		backoff = spec.Retry.Backoff
		exponential = spec.Retry.Exponential
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		node.Attempts = attempt

		result, invokeErr := e.invoke(ctx, cap, call, spec.Name, spec.Timeout)
		if invokeErr == nil {
			node.Result = result
			node.SetStatus(dag.StatusSucceeded)
			store.Set(spec.Name, result, spec.Name)
			logger.Debug("Step succeeded.", "attempts", attempt)
			return nil
		}
		lastErr = invokeErr
		logger.Warn("Step attempt failed.", "attempt", attempt, "max_attempts", maxAttempts, "error", invokeErr)

		if attempt == maxAttempts {
			break
		}
		if !e.waitBackoff(ctx, backoff) {
			lastErr = ctx.Err()
			break
		}
		if exponential && backoff > 0 {
			backoff *= 2
		}
	}

	return e.fail(node, store, lastErr)
}

// invoke performs one capability attempt with the step timeout applied
// and panics converted to errors.
func (e *Executor) invoke(ctx context.Context, cap registry.Capability, call *registry.Call, step string, timeout time.Duration) (result any, err error) {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &CapabilityError{Step: step, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = cap.Invoke(attemptCtx, call)
	if err != nil {
		if timeout > 0 && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, &StepTimeoutError{Step: step, Timeout: timeout}
		}
		return nil, &CapabilityError{Step: step, Err: err}
	}
	return result, nil
}

// waitBackoff sleeps for the retry delay, honoring cancellation. It
// reports false when the run was canceled while waiting.
func (e *Executor) waitBackoff(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// fail marks the node failed and records the error message in the store
// under <step>.error.
func (e *Executor) fail(node *dag.Node, store *ctxstore.Store, cause error) error {
	if cause == nil {
		cause = errors.New("step failed")
	}
	node.Err = cause
	node.SetStatus(dag.StatusFailed)
	store.Set(node.Name()+".error", cause.Error(), WhoEngine)
	return cause
}
