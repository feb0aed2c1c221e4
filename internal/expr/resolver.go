// Package expr resolves reference placeholders inside step arguments and
// conditions against the run's parameters and context store.
//
// Arguments are a load-time AST (recipe.Value): leaves are HCL
// expressions, so "${ctx.fetch.body}" placeholders are native HCL template
// syntax and a bare reference keeps its value's type. Resolution is
// single-pass: the resolver collects the variables an expression names,
// looks each dotted path up once (static configuration before context),
// and evaluates the expression against exactly those values. Values
// fetched from the store are data; they are never re-scanned for nested
// placeholders.
package expr

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/ladle/internal/recipe"
	"github.com/zclconf/go-cty/cty"
)

// Resolver evaluates argument values and conditions. It is stateless and
// safe for concurrent use by scheduler workers.
type Resolver struct{}

// New returns a Resolver.
func New() *Resolver {
	return &Resolver{}
}

// ResolveArgs resolves every value in a step's argument map.
func (r *Resolver) ResolveArgs(args map[string]recipe.Value, scope *Scope) (map[string]any, error) {
	resolved := make(map[string]any, len(args))

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, err := r.ResolveValue(args[name], scope)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		resolved[name] = v
	}
	return resolved, nil
}

// ResolveValue resolves a single argument value. Composites are walked
// recursively; leaf expressions are evaluated against the scope.
func (r *Resolver) ResolveValue(v recipe.Value, scope *Scope) (any, error) {
	switch {
	case v.Object != nil:
		out := make(map[string]any, len(v.Object))
		for key, field := range v.Object {
			inner, err := r.ResolveValue(field, scope)
			if err != nil {
				return nil, err
			}
			out[key] = inner
		}
		return out, nil
	case v.Tuple != nil:
		out := make([]any, len(v.Tuple))
		for i, elem := range v.Tuple {
			inner, err := r.ResolveValue(elem, scope)
			if err != nil {
				return nil, err
			}
			out[i] = inner
		}
		return out, nil
	case v.Expr != nil:
		val, err := r.Evaluate(v.Expr, scope)
		if err != nil {
			return nil, err
		}
		return fromCty(val)
	default:
		return nil, nil
	}
}

// Evaluate evaluates one HCL expression against the scope and returns the
// raw cty result.
func (r *Resolver) Evaluate(expr hcl.Expression, scope *Scope) (cty.Value, error) {
	evalCtx, err := r.buildEvalContext(expr, scope)
	if err != nil {
		return cty.NilVal, err
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("expression evaluation failed: %s", diags.Error())
	}
	return val, nil
}

// buildEvalContext looks up every variable the expression references and
// assembles a minimal evaluation context holding just those values.
func (r *Resolver) buildEvalContext(expr hcl.Expression, scope *Scope) (*hcl.EvalContext, error) {
	tree := make(varTree)

	for _, traversal := range expr.Variables() {
		segments := traversalSegments(traversal)
		value, err := scope.Lookup(segments)
		if err != nil {
			return nil, err
		}
		cv, err := toCty(value)
		if err != nil {
			return nil, fmt.Errorf("reference %q: %w", joinPath(segments), err)
		}
		tree.insert(segments, cv)
	}

	return &hcl.EvalContext{
		Variables: tree.toVariables(),
		Functions: stdFunctions,
	}, nil
}

// traversalSegments extracts the root name and the leading attribute
// chain of a traversal. Index steps and anything after them are left for
// HCL to apply against the placed value.
func traversalSegments(traversal hcl.Traversal) []string {
	var segments []string
	for _, step := range traversal {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			segments = append(segments, s.Name)
		case hcl.TraverseAttr:
			segments = append(segments, s.Name)
		default:
			return segments
		}
	}
	return segments
}

func joinPath(segments []string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "."
		}
		out += s
	}
	return out
}

// varTree assembles nested evaluation variables from dotted reference
// paths; leaves are cty values, interior nodes are nested trees.
type varTree map[string]any

func (t varTree) insert(path []string, val cty.Value) {
	node := t
	for i, seg := range path {
		if i == len(path)-1 {
			// Never replace a subtree other references already built.
			if _, isTree := node[seg].(varTree); !isTree {
				node[seg] = val
			}
			return
		}

		switch existing := node[seg].(type) {
		case varTree:
			node = existing
		case cty.Value:
			// A shorter reference placed a whole object here; expand it
			// so the longer path can merge in.
			child := make(varTree)
			if existing.Type().IsObjectType() || existing.Type().IsMapType() {
				for key, elem := range existing.AsValueMap() {
					child[key] = elem
				}
			}
			node[seg] = child
			node = child
		default:
			child := make(varTree)
			node[seg] = child
			node = child
		}
	}
}

func (t varTree) toVariables() map[string]cty.Value {
	out := make(map[string]cty.Value, len(t))
	for key, v := range t {
		switch node := v.(type) {
		case varTree:
			out[key] = cty.ObjectVal(node.toVariables())
		case cty.Value:
			out[key] = node
		}
	}
	return out
}
