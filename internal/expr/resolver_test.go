package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/ladle/internal/ctxstore"
	"github.com/vk/ladle/internal/recipe"
)

func leaf(t *testing.T, src string) recipe.Value {
	t.Helper()
	e, err := TemplateExpr(src, "test.yaml")
	require.NoError(t, err)
	return recipe.ExprValue(e)
}

func TestResolve_TemplateInterpolation(t *testing.T) {
	t.Parallel()
	store := ctxstore.New()
	store.Set("fetch", map[string]any{"body": "hello"}, "fetch")
	scope := &Scope{Store: store}

	r := New()
	v, err := r.ResolveValue(leaf(t, "${ctx.fetch.body}, world"), scope)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", v)
}

// A bare reference keeps its value's type instead of flattening to a
// string.
func TestResolve_BareReferenceKeepsType(t *testing.T) {
	t.Parallel()
	store := ctxstore.New()
	store.Set("fetch", map[string]any{"status": int64(200), "ok": true}, "fetch")
	scope := &Scope{Store: store}

	r := New()

	v, err := r.ResolveValue(leaf(t, "${ctx.fetch.status}"), scope)
	require.NoError(t, err)
	assert.Equal(t, int64(200), v)

	v, err = r.ResolveValue(leaf(t, "${ctx.fetch}"), scope)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": int64(200), "ok": true}, v)
}

func TestResolve_ParamRootAndPrecedence(t *testing.T) {
	t.Parallel()
	store := ctxstore.New()
	store.Set("env", "from-store", "setup")
	scope := &Scope{
		Params: map[string]any{"env": "from-params"},
		Store:  store,
	}
	r := New()

	// Unrooted lookup prefers static configuration over context.
	v, err := r.ResolveValue(leaf(t, "${env}"), scope)
	require.NoError(t, err)
	assert.Equal(t, "from-params", v)

	// Explicit roots pin the source either way.
	v, err = r.ResolveValue(leaf(t, "${param.env}"), scope)
	require.NoError(t, err)
	assert.Equal(t, "from-params", v)

	v, err = r.ResolveValue(leaf(t, "${ctx.env}"), scope)
	require.NoError(t, err)
	assert.Equal(t, "from-store", v)
}

// Dotted store keys win by longest prefix before structural navigation
// takes over.
func TestResolve_LongestPrefixStoreKey(t *testing.T) {
	t.Parallel()
	store := ctxstore.New()
	store.Set("deploy.result", map[string]any{"replicas": int64(3)}, "sub:deploy")
	store.Set("deploy", "whole-step-value", "deploy")
	scope := &Scope{Store: store}

	r := New()
	v, err := r.ResolveValue(leaf(t, "${ctx.deploy.result.replicas}"), scope)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestResolve_UnresolvedReference(t *testing.T) {
	t.Parallel()
	scope := &Scope{Store: ctxstore.New()}

	r := New()
	_, err := r.ResolveValue(leaf(t, "${ctx.nope.body}"), scope)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedReference)

	var unresolved *UnresolvedReferenceError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "ctx.nope.body", unresolved.Path)
}

// Values fetched from the store are data: placeholder-looking text
// inside them is never re-scanned.
func TestResolve_NoRecursiveResolution(t *testing.T) {
	t.Parallel()
	store := ctxstore.New()
	store.Set("a", "${ctx.b}", "a")
	store.Set("b", "inner", "b")
	scope := &Scope{Store: store}

	r := New()
	v, err := r.ResolveValue(leaf(t, "${ctx.a}"), scope)
	require.NoError(t, err)
	assert.Equal(t, "${ctx.b}", v)
}

func TestResolveValue_Composites(t *testing.T) {
	t.Parallel()
	store := ctxstore.New()
	store.Set("fetch", map[string]any{"body": "data"}, "fetch")
	scope := &Scope{Store: store}

	val := recipe.ObjectValue(map[string]recipe.Value{
		"payload": leaf(t, "${ctx.fetch.body}"),
		"items": recipe.TupleValue([]recipe.Value{
			leaf(t, "first"),
			leaf(t, "${ctx.fetch.body}"),
		}),
	})

	r := New()
	v, err := r.ResolveValue(val, scope)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"payload": "data",
		"items":   []any{"first", "data"},
	}, v)
}

func TestResolveArgs_WrapsArgumentName(t *testing.T) {
	t.Parallel()
	scope := &Scope{Store: ctxstore.New()}
	args := map[string]recipe.Value{"url": leaf(t, "${ctx.missing}")}

	r := New()
	_, err := r.ResolveArgs(args, scope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `argument "url"`)
}

func TestEvalCondition(t *testing.T) {
	t.Parallel()
	store := ctxstore.New()
	store.Set("fetch", map[string]any{"status": int64(200), "body": "hello world"}, "fetch")
	scope := &Scope{Params: map[string]any{"env": "staging"}, Store: store}
	r := New()

	cond := func(src string) bool {
		t.Helper()
		e, err := ParseExpr(src, "cond")
		require.NoError(t, err)
		ok, evalErr := r.EvalCondition(e, scope)
		require.NoError(t, evalErr)
		return ok
	}

	assert.True(t, cond(`ctx.fetch.status == 200`))
	assert.False(t, cond(`ctx.fetch.status != 200`))
	assert.True(t, cond(`env == "staging" && ctx.fetch.status < 300`))
	assert.True(t, cond(`contains(ctx.fetch.body, "world")`))
	assert.False(t, cond(`contains(ctx.fetch.body, "absent")`))
	assert.True(t, cond(`!(ctx.fetch.status >= 300)`))
}

func TestEvalCondition_ListMembership(t *testing.T) {
	t.Parallel()
	scope := &Scope{Params: map[string]any{"envs": []any{"dev", "staging"}}}
	r := New()

	e, err := ParseExpr(`contains(envs, "staging")`, "cond")
	require.NoError(t, err)
	ok, err := r.EvalCondition(e, scope)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalCondition_NonBoolean(t *testing.T) {
	t.Parallel()
	store := ctxstore.New()
	store.Set("fetch", map[string]any{"body": "text"}, "fetch")
	scope := &Scope{Store: store}
	r := New()

	e, err := ParseExpr(`ctx.fetch.body`, "cond")
	require.NoError(t, err)
	_, evalErr := r.EvalCondition(e, scope)
	require.Error(t, evalErr)
	assert.ErrorIs(t, evalErr, ErrNotBoolean)
}
