// Package print renders a message or a value map to the log. Useful as
// a terminal step and in on_error notification steps.
package print

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/ladle/internal/ctxlog"
	"github.com/vk/ladle/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Invoke logs the 'message' argument when present and any 'value' map
// entries in sorted key order. It returns the message so downstream
// steps can reference it.
func Invoke(ctx context.Context, call *registry.Call) (any, error) {
	logger := ctxlog.FromContext(ctx).With("capability", "print", "step", call.Step)

	message, err := call.StringOr("message", "")
	if err != nil {
		return nil, err
	}
	if message != "" {
		logger.Info(message)
	}

	value, err := call.Object("value")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(value))
	for k := range value {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		logger.Info(fmt.Sprintf("%s = %v", k, value[k]))
	}

	return message, nil
}

// Register registers the capability with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("print", registry.Func(Invoke))
}
