// Package scheduler walks a recipe's dependency graph level by level: it
// collects every step whose dependencies reached a terminal status,
// applies conditions and skip propagation, dispatches the level to a
// bounded worker pool, and blocks on the level barrier before computing
// the next one. Sub-recipe steps re-enter the same scheduler with a
// fresh child context, so nested workflows are literal reuse rather than
// duplicated logic.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vk/ladle/internal/ctxlog"
	"github.com/vk/ladle/internal/ctxstore"
	"github.com/vk/ladle/internal/dag"
	"github.com/vk/ladle/internal/executor"
	"github.com/vk/ladle/internal/expr"
	"github.com/vk/ladle/internal/recipe"
	"github.com/vk/ladle/internal/registry"
	"github.com/vk/ladle/internal/report"
)

// State is the lifecycle of one run.
type State int

const (
	StateInitialized State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "failed"
	}
}

// Scheduler executes recipes. It holds no per-run state, so one
// scheduler instance serves any number of concurrent and nested runs.
type Scheduler struct {
	workers  int
	registry *registry.Registry
	recipes  *recipe.Set
	resolver *expr.Resolver
	exec     *executor.Executor
}

// New creates a scheduler with the given worker bound. A non-positive
// bound defaults to the available parallelism.
func New(reg *registry.Registry, recipes *recipe.Set, workers int) *Scheduler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	resolver := expr.New()
	return &Scheduler{
		workers:  workers,
		registry: reg,
		recipes:  recipes,
		resolver: resolver,
		exec:     executor.New(reg, resolver),
	}
}

// Run executes one recipe against the given store. Parameter binding and
// graph building happen before any step runs; their errors abort the run
// with no report. After that, step failures are contained: the returned
// report always covers every step, and the error (wrapping ErrRunFailed)
// reports the first root cause when the run ends failed.
func (s *Scheduler) Run(ctx context.Context, rec *recipe.Recipe, params map[string]any, store *ctxstore.Store) (*report.RunReport, error) {
	logger := ctxlog.FromContext(ctx).With("recipe", rec.Name)
	state := StateInitialized

	bound, err := bindParams(rec, params)
	if err != nil {
		return nil, err
	}
	graph, err := dag.Build(rec)
	if err != nil {
		return nil, err
	}

	state = StateRunning
	started := time.Now()
	logger.Info("Run started.", "state", state.String(), "steps", len(graph.Ordered), "workers", s.workers)

	scope := &expr.Scope{Params: bound, Store: store}
	pending := make(map[string]*dag.Node, len(graph.Ordered))
	for _, node := range graph.Ordered {
		pending[node.Name()] = node
	}

	canceled := false
	for len(pending) > 0 {
		if ctx.Err() != nil {
			canceled = true
			s.skipRemaining(pending, "run canceled")
			break
		}

		level, progressed := s.computeLevel(ctx, graph, pending, scope, store)
		if len(level) == 0 {
			if !progressed {
				// Unreachable with cycle detection at build time.
				s.skipRemaining(pending, errStalled.Error())
				logger.Error("Scheduler stalled.", "pending", len(pending))
				break
			}
			continue
		}

		s.dispatchLevel(ctx, level, scope, store)
	}

	failedRun := canceled || anyFailed(graph)
	if anyFailed(graph) && len(graph.OnError) > 0 {
		logger.Info("Dispatching on_error steps.", "count", len(graph.OnError))
		s.dispatchLevel(ctx, s.admitOnError(ctx, graph, scope, store), scope, store)
	} else {
		reason := "no step failed"
		if canceled {
			reason = "run canceled"
		}
		for _, node := range graph.OnError {
			node.SkipReason = reason
			node.SetStatus(dag.StatusSkipped)
		}
	}

	finished := time.Now()
	status := report.StatusCompleted
	state = StateCompleted
	if failedRun {
		status = report.StatusFailed
		state = StateFailed
	}
	logger.Info("Run finished.", "state", state.String(), "duration", finished.Sub(started).Round(time.Millisecond))

	rep := report.FromGraph(rec.Name, rec.Version, status, started, finished, graph, store)
	if failedRun {
		if canceled && ctx.Err() != nil {
			return rep, fmt.Errorf("recipe %s: %w: %w", rec.Name, ErrRunFailed, ctx.Err())
		}
		return rep, fmt.Errorf("recipe %s: %w: %w", rec.Name, ErrRunFailed, firstFailure(graph))
	}
	return rep, nil
}

// computeLevel selects the next ready level. A step is considered once
// all its dependencies are terminal: a false condition skips it, any
// failed or skipped dependency propagates skip unless the step's own
// condition re-admits it, and condition errors fail the step in place.
// Returns the admitted nodes (removed from pending) and whether this
// pass changed anything at all.
func (s *Scheduler) computeLevel(ctx context.Context, graph *dag.Graph, pending map[string]*dag.Node, scope *expr.Scope, store *ctxstore.Store) ([]*dag.Node, bool) {
	logger := ctxlog.FromContext(ctx)
	var level []*dag.Node
	progressed := false

	for _, node := range graph.Ordered {
		if _, isPending := pending[node.Name()]; !isPending {
			continue
		}

		allTerminal := true
		upstreamBad := ""
		for _, dep := range node.Deps {
			st := dep.Status()
			if !st.Terminal() {
				allTerminal = false
				break
			}
			if st != dag.StatusSucceeded && upstreamBad == "" {
				upstreamBad = dep.Name()
			}
		}
		if !allTerminal {
			continue
		}

		delete(pending, node.Name())
		progressed = true

		admit, err := s.admits(node, upstreamBad, scope)
		if err != nil {
			logger.Error("Condition evaluation failed.", "step", node.Name(), "error", err)
			s.failNode(node, store, err)
			continue
		}
		if !admit {
			reason := "condition evaluated false"
			if upstreamBad != "" {
				reason = "upstream step " + upstreamBad + " did not succeed"
			}
			logger.Info("Skipping step.", "step", node.Name(), "reason", reason)
			node.SkipReason = reason
			node.SetStatus(dag.StatusSkipped)
			continue
		}

		node.SetStatus(dag.StatusReady)
		level = append(level, node)
	}

	return level, progressed
}

// admits decides whether a node with fully terminal dependencies runs.
func (s *Scheduler) admits(node *dag.Node, upstreamBad string, scope *expr.Scope) (bool, error) {
	if node.Spec.Condition == nil {
		return upstreamBad == "", nil
	}
	ok, err := s.resolver.EvalCondition(node.Spec.Condition, scope)
	if err != nil {
		return false, err
	}
	// A true condition re-admits the step even past skipped or failed
	// dependencies; a false one skips it regardless.
	return ok, nil
}

// dispatchLevel runs one level through the worker pool and blocks until
// every node in it reached a terminal status.
func (s *Scheduler) dispatchLevel(ctx context.Context, level []*dag.Node, scope *expr.Scope, store *ctxstore.Store) {
	if len(level) == 0 {
		return
	}
	logger := ctxlog.FromContext(ctx)
	names := make([]string, len(level))
	for i, node := range level {
		names[i] = node.Name()
	}
	logger.Debug("Dispatching level.", "steps", names)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, node := range level {
		g.Go(func() error {
			s.runNode(ctx, node, scope, store)
			return nil
		})
	}
	// Level barrier: nodes never return errors through the group, so
	// siblings always run to completion even when one fails.
	_ = g.Wait()
	logger.Debug("Level complete.", "steps", names)
}

// runNode executes one admitted node to a terminal status.
func (s *Scheduler) runNode(ctx context.Context, node *dag.Node, scope *expr.Scope, store *ctxstore.Store) {
	if node.Spec.Kind == recipe.KindSubRecipe {
		s.runSubRecipe(ctx, node, scope, store)
		return
	}
	// Execute owns the node's terminal status; its error is already
	// captured on the node and in the store.
	_ = s.exec.Execute(ctx, node, scope, store)
}

// admitOnError applies conditions to the on_error steps and returns the
// admitted ones as the run's terminal level.
func (s *Scheduler) admitOnError(ctx context.Context, graph *dag.Graph, scope *expr.Scope, store *ctxstore.Store) []*dag.Node {
	logger := ctxlog.FromContext(ctx)
	var level []*dag.Node
	for _, node := range graph.OnError {
		admit, err := s.admits(node, "", scope)
		if err != nil {
			logger.Error("Condition evaluation failed.", "step", node.Name(), "error", err)
			s.failNode(node, store, err)
			continue
		}
		if !admit {
			node.SkipReason = "condition evaluated false"
			node.SetStatus(dag.StatusSkipped)
			continue
		}
		node.SetStatus(dag.StatusReady)
		level = append(level, node)
	}
	return level
}

// failNode marks a node failed outside the executor (condition errors,
// unknown sub-recipes) and mirrors the executor's store bookkeeping.
func (s *Scheduler) failNode(node *dag.Node, store *ctxstore.Store, cause error) {
	node.Err = cause
	node.SetStatus(dag.StatusFailed)
	store.Set(node.Name()+".error", cause.Error(), executor.WhoEngine)
}

// skipRemaining marks every still-pending node skipped.
func (s *Scheduler) skipRemaining(pending map[string]*dag.Node, reason string) {
	for name, node := range pending {
		node.SkipReason = reason
		node.SetStatus(dag.StatusSkipped)
		delete(pending, name)
	}
}

// bindParams merges supplied parameter bindings with declared defaults
// and rejects a missing required parameter before anything runs.
func bindParams(rec *recipe.Recipe, supplied map[string]any) (map[string]any, error) {
	bound := make(map[string]any, len(supplied)+len(rec.Params))
	for k, v := range supplied {
		bound[k] = v
	}
	for _, p := range rec.Params {
		if _, ok := bound[p.Name]; ok {
			continue
		}
		if p.HasDefault {
			bound[p.Name] = p.Default
			continue
		}
		if p.Required {
			return nil, &MissingParameterError{Recipe: rec.Name, Param: p.Name}
		}
	}
	return bound, nil
}

func anyFailed(graph *dag.Graph) bool {
	for _, node := range graph.Ordered {
		if node.Status() == dag.StatusFailed {
			return true
		}
	}
	return false
}

// firstFailure returns the error of the earliest-declared failed step.
func firstFailure(graph *dag.Graph) error {
	for _, node := range graph.Ordered {
		if node.Status() == dag.StatusFailed && node.Err != nil {
			return node.Err
		}
	}
	return fmt.Errorf("unknown failure")
}
