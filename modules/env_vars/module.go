// Package env_vars exposes the process environment to a recipe.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/vk/ladle/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Invoke returns the full environment as a map, or a single variable
// when the 'name' argument is set.
func Invoke(ctx context.Context, call *registry.Call) (any, error) {
	name, err := call.StringOr("name", "")
	if err != nil {
		return nil, err
	}
	if name != "" {
		return os.Getenv(name), nil
	}

	envMap := make(map[string]any)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	return envMap, nil
}

// Register registers the capability with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("env_vars", registry.Func(Invoke))
}
