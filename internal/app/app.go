// Package app wires the engine together: it builds the logger, loads
// every recipe file, registers the capability modules and exposes run
// and validate entry points for the CLI and for tests.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/ladle/internal/ctxlog"
	"github.com/vk/ladle/internal/hcl"
	"github.com/vk/ladle/internal/recipe"
	"github.com/vk/ladle/internal/registry"
	"github.com/vk/ladle/internal/yaml"
)

// Config holds everything an App needs to start.
type Config struct {
	RecipePaths []string
	LogFormat   string
	LogLevel    string
	Workers     int
}

// Loader is the format-specific recipe loading contract. The HCL and
// YAML loaders both satisfy it; they share one recipe set so references
// across formats work.
type Loader interface {
	Load(ctx context.Context, set *recipe.Set, paths ...string) error
}

// App encapsulates the engine's dependencies and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	recipes  *recipe.Set
	workers  int
}

// New constructs a fully initialized App with its own isolated logger
// and registry. When no modules are given the compiled-in core set is
// registered.
func New(outW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("Capability modules registered.", "count", len(modules), "capabilities", reg.Names())

	set := recipe.NewSet()
	loaders := []Loader{hcl.NewLoader(), yaml.NewLoader()}
	for _, loader := range loaders {
		if err := loader.Load(ctx, set, cfg.RecipePaths...); err != nil {
			return nil, fmt.Errorf("loading recipes: %w", err)
		}
	}
	logger.Debug("Recipes loaded.", "count", set.Len(), "names", set.Names())

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		recipes:  set,
		workers:  cfg.Workers,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Recipes returns the loaded recipe set.
func (a *App) Recipes() *recipe.Set {
	return a.recipes
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}
