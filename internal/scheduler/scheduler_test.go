package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/ladle/internal/ctxstore"
	"github.com/vk/ladle/internal/expr"
	"github.com/vk/ladle/internal/recipe"
	"github.com/vk/ladle/internal/registry"
	"github.com/vk/ladle/internal/report"
)

// recorder captures step completion order across concurrent workers.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.order...)
}

func (r *recorder) index(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

// newTestRegistry registers the capabilities scheduler tests use:
// 'ok' records and succeeds, 'fail' records and fails, 'echo' returns
// its 'value' argument.
func newTestRegistry(rec *recorder) *registry.Registry {
	reg := registry.New()
	reg.Register("ok", registry.Func(func(ctx context.Context, call *registry.Call) (any, error) {
		rec.add(call.Step)
		return "ok:" + call.Step, nil
	}))
	reg.Register("fail", registry.Func(func(ctx context.Context, call *registry.Call) (any, error) {
		rec.add(call.Step)
		return nil, errors.New("deliberate failure")
	}))
	reg.Register("echo", registry.Func(func(ctx context.Context, call *registry.Call) (any, error) {
		rec.add(call.Step)
		return call.Args["value"], nil
	}))
	return reg
}

func capSpec(name string, index int, uses string, deps ...string) recipe.StepSpec {
	return recipe.StepSpec{Name: name, Index: index, Kind: recipe.KindCapability, Uses: uses, DependsOn: deps}
}

func run(t *testing.T, reg *registry.Registry, rec *recipe.Recipe, params map[string]any) (*report.RunReport, *ctxstore.Store, error) {
	t.Helper()
	recipes := recipe.NewSet()
	require.NoError(t, recipes.Add(rec))
	s := New(reg, recipes, 4)
	store := ctxstore.New()
	rep, err := s.Run(context.Background(), rec, params, store)
	return rep, store, err
}

func TestRun_TopologicalOrder(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	r := &recipe.Recipe{
		Name: "linear",
		Steps: []recipe.StepSpec{
			capSpec("a", 0, "ok"),
			capSpec("b", 1, "ok", "a"),
			capSpec("c", 2, "ok", "b"),
		},
	}

	rep, _, err := run(t, reg, r, nil)
	require.NoError(t, err)
	assert.Equal(t, report.StatusCompleted, rep.Status)
	assert.Equal(t, []string{"a", "b", "c"}, rec.names())
}

func TestRun_FanInWaitsForAllDependencies(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	r := &recipe.Recipe{
		Name: "fanin",
		Steps: []recipe.StepSpec{
			capSpec("a", 0, "ok"),
			capSpec("b", 1, "ok"),
			capSpec("c", 2, "ok", "a", "b"),
		},
	}

	rep, _, err := run(t, reg, r, nil)
	require.NoError(t, err)
	assert.False(t, rep.Failed())

	cIdx := rec.index("c")
	assert.Greater(t, cIdx, rec.index("a"))
	assert.Greater(t, cIdx, rec.index("b"))
}

func TestRun_FailureSkipsDependents(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	r := &recipe.Recipe{
		Name: "failing",
		Steps: []recipe.StepSpec{
			capSpec("a", 0, "fail"),
			capSpec("b", 1, "ok", "a"),
			capSpec("c", 2, "ok", "b"),
		},
	}

	rep, store, err := run(t, reg, r, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunFailed)
	require.NotNil(t, rep, "failed runs still produce a full report")

	assert.Equal(t, report.StatusFailed, rep.Status)
	assert.Equal(t, "failed", rep.Step("a").Status)
	assert.Equal(t, "skipped", rep.Step("b").Status)
	assert.Equal(t, "skipped", rep.Step("c").Status)
	assert.Contains(t, rep.Step("b").SkipReason, "a")

	// Only the failed step ran; skipped steps never invoked anything.
	assert.Equal(t, []string{"a"}, rec.names())

	entry, ok := store.Entry("a.error")
	require.True(t, ok)
	assert.Contains(t, entry.Value, "deliberate failure")
}

func TestRun_SiblingsAreIsolatedFromFailure(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	r := &recipe.Recipe{
		Name: "siblings",
		Steps: []recipe.StepSpec{
			capSpec("bad", 0, "fail"),
			capSpec("good", 1, "ok"),
			capSpec("after_good", 2, "ok", "good"),
		},
	}

	rep, _, err := run(t, reg, r, nil)
	require.Error(t, err)

	// The failure is contained to its own branch.
	assert.Equal(t, "failed", rep.Step("bad").Status)
	assert.Equal(t, "succeeded", rep.Step("good").Status)
	assert.Equal(t, "succeeded", rep.Step("after_good").Status)
}

func TestRun_ConditionFalseSkips(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	cond, err := expr.ParseExpr(`env == "production"`, "test")
	require.NoError(t, err)

	steps := []recipe.StepSpec{
		capSpec("guarded", 0, "ok"),
		capSpec("downstream", 1, "ok", "guarded"),
	}
	steps[0].Condition = cond

	rep, _, runErr := run(t, reg, &recipe.Recipe{Name: "conditional", Steps: steps},
		map[string]any{"env": "staging"})
	require.NoError(t, runErr, "a skip is not a failure")

	assert.Equal(t, report.StatusCompleted, rep.Status)
	assert.Equal(t, "skipped", rep.Step("guarded").Status)
	assert.Equal(t, "condition evaluated false", rep.Step("guarded").SkipReason)
	// Skips propagate like failures.
	assert.Equal(t, "skipped", rep.Step("downstream").Status)
	assert.Empty(t, rec.names())
}

func TestRun_ConditionTrueReadmitsPastBadUpstream(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	cond, err := expr.ParseExpr(`contains(ctx.fallback_step.error, "deliberate")`, "test")
	require.NoError(t, err)

	steps := []recipe.StepSpec{
		capSpec("fallback_step", 0, "fail"),
		capSpec("recovery", 1, "ok", "fallback_step"),
	}
	steps[1].Condition = cond

	rep, _, runErr := run(t, reg, &recipe.Recipe{Name: "readmit", Steps: steps}, nil)
	require.Error(t, runErr, "the original failure still fails the run")

	assert.Equal(t, "failed", rep.Step("fallback_step").Status)
	assert.Equal(t, "succeeded", rep.Step("recovery").Status, "a true condition overrides skip propagation")
	assert.Contains(t, rec.names(), "recovery")
}

func TestRun_ConditionErrorFailsStep(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	cond, err := expr.ParseExpr(`ctx.absent.value == 1`, "test")
	require.NoError(t, err)

	steps := []recipe.StepSpec{capSpec("broken_guard", 0, "ok")}
	steps[0].Condition = cond

	rep, store, runErr := run(t, reg, &recipe.Recipe{Name: "conderr", Steps: steps}, nil)
	require.Error(t, runErr)
	assert.Equal(t, "failed", rep.Step("broken_guard").Status)
	assert.True(t, store.Contains("broken_guard.error"))
	assert.Empty(t, rec.names())
}

func TestRun_OnErrorRunsOnlyAfterFailure(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	r := &recipe.Recipe{
		Name: "cleanup",
		Steps: []recipe.StepSpec{
			capSpec("work", 0, "fail"),
			{Name: "alert", Index: 1, Kind: recipe.KindCapability, Uses: "ok", Trigger: recipe.TriggerOnError},
		},
	}

	rep, _, err := run(t, reg, r, nil)
	require.Error(t, err, "on_error success never flips the run outcome")
	assert.ErrorIs(t, err, ErrRunFailed)

	assert.Equal(t, report.StatusFailed, rep.Status)
	assert.Equal(t, "failed", rep.Step("work").Status)
	assert.Equal(t, "succeeded", rep.Step("alert").Status)
	assert.Equal(t, []string{"work", "alert"}, rec.names())
}

func TestRun_OnErrorSkippedOnSuccess(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	r := &recipe.Recipe{
		Name: "healthy",
		Steps: []recipe.StepSpec{
			capSpec("work", 0, "ok"),
			{Name: "alert", Index: 1, Kind: recipe.KindCapability, Uses: "ok", Trigger: recipe.TriggerOnError},
		},
	}

	rep, _, err := run(t, reg, r, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, rec.names())
	assert.Equal(t, "skipped", rep.Step("alert").Status)
	assert.Equal(t, "no step failed", rep.Step("alert").SkipReason)
}

func TestRun_OnErrorCanReadFailureContext(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	tmpl, err := expr.TemplateExpr("failure was: ${ctx.work.error}", "test")
	require.NoError(t, err)

	r := &recipe.Recipe{
		Name: "observer",
		Steps: []recipe.StepSpec{
			capSpec("work", 0, "fail"),
			{
				Name: "alert", Index: 1, Kind: recipe.KindCapability, Uses: "echo",
				Trigger:   recipe.TriggerOnError,
				Arguments: map[string]recipe.Value{"value": recipe.ExprValue(tmpl)},
			},
		},
	}

	_, store, runErr := run(t, reg, r, nil)
	require.Error(t, runErr)

	v, err := store.Get("alert")
	require.NoError(t, err)
	require.IsType(t, "", v)
	assert.Contains(t, v.(string), "failure was: ")
	assert.Contains(t, v.(string), "deliberate failure")
}

func TestRun_Cancellation(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)
	reg.Register("block", registry.Func(func(ctx context.Context, call *registry.Call) (any, error) {
		rec.add(call.Step)
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	r := &recipe.Recipe{
		Name: "cancelable",
		Steps: []recipe.StepSpec{
			capSpec("blocker", 0, "block"),
			capSpec("never", 1, "ok", "blocker"),
		},
	}

	recipes := recipe.NewSet()
	require.NoError(t, recipes.Add(r))
	s := New(reg, recipes, 2)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	rep, err := s.Run(ctx, r, nil, ctxstore.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunFailed)
	require.NotNil(t, rep)
	assert.Equal(t, report.StatusFailed, rep.Status)
	assert.Equal(t, "skipped", rep.Step("never").Status)
	assert.Equal(t, "run canceled", rep.Step("never").SkipReason)
}

func TestRun_MissingRequiredParameter(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	r := &recipe.Recipe{
		Name:   "strict",
		Params: []recipe.ParamSpec{{Name: "env", Required: true}},
		Steps:  []recipe.StepSpec{capSpec("a", 0, "ok")},
	}

	recipes := recipe.NewSet()
	require.NoError(t, recipes.Add(r))
	s := New(reg, recipes, 1)

	rep, err := s.Run(context.Background(), r, nil, ctxstore.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingParameter)
	assert.Nil(t, rep, "binding errors abort before any report exists")
	assert.Empty(t, rec.names())
}

func TestRun_ParameterDefaultApplied(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	tmpl, err := expr.TemplateExpr("${param.region}", "test")
	require.NoError(t, err)

	r := &recipe.Recipe{
		Name:   "defaulted",
		Params: []recipe.ParamSpec{{Name: "region", Default: "eu-west-1", HasDefault: true}},
		Steps: []recipe.StepSpec{
			{
				Name: "a", Index: 0, Kind: recipe.KindCapability, Uses: "echo",
				Arguments: map[string]recipe.Value{"value": recipe.ExprValue(tmpl)},
			},
		},
	}

	_, store, runErr := run(t, reg, r, nil)
	require.NoError(t, runErr)

	v, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", v)
}

func TestRun_DataFlowsBetweenSteps(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	reg := newTestRegistry(rec)

	tmpl, err := expr.TemplateExpr("${ctx.first}", "test")
	require.NoError(t, err)

	r := &recipe.Recipe{
		Name: "dataflow",
		Steps: []recipe.StepSpec{
			capSpec("first", 0, "ok"),
			{
				Name: "second", Index: 1, Kind: recipe.KindCapability, Uses: "echo",
				DependsOn: []string{"first"},
				Arguments: map[string]recipe.Value{"value": recipe.ExprValue(tmpl)},
			},
		},
	}

	_, store, runErr := run(t, reg, r, nil)
	require.NoError(t, runErr)

	v, err := store.Get("second")
	require.NoError(t, err)
	assert.Equal(t, "ok:first", v)
}

func TestState_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "failed", StateFailed.String())
}
