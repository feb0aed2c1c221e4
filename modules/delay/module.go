// Package delay pauses a recipe for a fixed duration. It exercises step
// timeouts and cancellation in examples and tests.
package delay

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/ladle/internal/ctxlog"
	"github.com/vk/ladle/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Invoke sleeps for the 'duration' argument. Cancellation cuts the
// sleep short and fails the step with the context's error.
func Invoke(ctx context.Context, call *registry.Call) (any, error) {
	raw, err := call.String("duration")
	if err != nil {
		return nil, err
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("step %s: invalid duration %q: %w", call.Step, raw, err)
	}

	ctxlog.FromContext(ctx).Debug("Delaying.", "step", call.Step, "duration", d)
	select {
	case <-time.After(d):
		return d.String(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Register registers the capability with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("delay", registry.Func(Invoke))
}
