package scheduler

import (
	"context"
	"time"

	"github.com/vk/ladle/internal/ctxlog"
	"github.com/vk/ladle/internal/ctxstore"
	"github.com/vk/ladle/internal/dag"
	"github.com/vk/ladle/internal/expr"
)

// runSubRecipe composes a nested workflow: it resolves the step's
// arguments against the parent as the child's parameter bindings, runs
// the child recipe re-entrantly over a child context store seeded with
// those bindings, and merges the child context back into the parent
// under the step's name prefix.
// The child can diverge freely from the parent; bindings are resolved
// copies, never shared mutable state. A failed child run surfaces as
// this one step's failure and nothing else.
func (s *Scheduler) runSubRecipe(ctx context.Context, node *dag.Node, parentScope *expr.Scope, parentStore *ctxstore.Store) {
	spec := node.Spec
	logger := ctxlog.FromContext(ctx).With("step", spec.Name, "sub_recipe", spec.Recipe)

	node.SetStatus(dag.StatusRunning)
	node.StartedAt = time.Now()
	defer func() { node.FinishedAt = time.Now() }()

	child, err := s.recipes.Get(spec.Recipe)
	if err != nil {
		s.failNode(node, parentStore, &SubRecipeFailure{Step: spec.Name, Recipe: spec.Recipe, Err: err})
		return
	}

	bindings, err := s.resolver.ResolveArgs(spec.Arguments, parentScope)
	if err != nil {
		logger.Error("Parameter binding resolution failed.", "error", err)
		s.failNode(node, parentStore, &SubRecipeFailure{Step: spec.Name, Recipe: spec.Recipe, Err: err})
		return
	}

	// The bindings are both the child's parameters and its initial
	// context, so child steps can reference them through either root.
	who := "sub:" + spec.Name
	childStore := ctxstore.NewChild(bindings, who)
	logger.Info("Entering sub-recipe.")
	childReport, runErr := s.Run(ctx, child, bindings, childStore)

	// Merge the child context back, namespaced by the step name. Partial
	// results from a failed child are still visible to on_error steps
	// and external inspection.
	for key, value := range childStore.Snapshot() {
		parentStore.Set(spec.Name+"."+key, value, who)
	}

	node.Result = childReport
	if runErr != nil {
		logger.Warn("Sub-recipe failed.", "error", runErr)
		s.failNode(node, parentStore, &SubRecipeFailure{Step: spec.Name, Recipe: spec.Recipe, Err: runErr})
		return
	}
	node.SetStatus(dag.StatusSucceeded)
	logger.Info("Sub-recipe completed.")
}
