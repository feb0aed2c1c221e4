package app

import (
	"context"
	"fmt"

	"github.com/vk/ladle/internal/ctxlog"
	"github.com/vk/ladle/internal/ctxstore"
	"github.com/vk/ladle/internal/dag"
	"github.com/vk/ladle/internal/report"
	"github.com/vk/ladle/internal/scheduler"
)

// Run executes one loaded recipe with the given parameter bindings over
// a fresh context store. The report is returned even when the run
// failed; the error then wraps the first root cause.
func (a *App) Run(ctx context.Context, recipeName string, params map[string]any) (*report.RunReport, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	rec, err := a.recipes.Get(recipeName)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(a.registry, a.recipes, a.workers)
	store := ctxstore.New()
	return sched.Run(ctx, rec, params, store)
}

// Validate builds the dependency graph of every loaded recipe and checks
// that each capability step names a registered capability and each
// sub-recipe step names a loaded recipe. Nothing executes.
func (a *App) Validate(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)

	for _, name := range a.recipes.Names() {
		rec, err := a.recipes.Get(name)
		if err != nil {
			return err
		}
		graph, err := dag.Build(rec)
		if err != nil {
			return err
		}
		for _, node := range append(graph.Ordered, graph.OnError...) {
			spec := node.Spec
			if spec.Recipe != "" {
				if _, err := a.recipes.Get(spec.Recipe); err != nil {
					return fmt.Errorf("recipe %s: step %s: %w", name, spec.Name, err)
				}
				continue
			}
			if _, err := a.registry.Lookup(spec.Uses); err != nil {
				return fmt.Errorf("recipe %s: step %s: %w", name, spec.Name, err)
			}
		}
		logger.Debug("Recipe validated.", "recipe", name, "steps", len(graph.Ordered)+len(graph.OnError))
	}
	return nil
}
