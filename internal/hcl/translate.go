package hcl

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/ladle/internal/expr"
	"github.com/vk/ladle/internal/recipe"
	"github.com/vk/ladle/internal/schema"
)

// translateRecipe converts one decoded recipe block into the model.
func translateRecipe(raw *schema.Recipe, file string) (*recipe.Recipe, error) {
	rec := &recipe.Recipe{
		Name:    raw.Name,
		Version: raw.Version,
	}

	for _, p := range raw.Params {
		spec, err := translateParam(p)
		if err != nil {
			return nil, fmt.Errorf("%s: recipe %s: %w", file, raw.Name, err)
		}
		rec.Params = append(rec.Params, spec)
	}

	for i, s := range raw.Steps {
		spec, err := translateStep(s, i)
		if err != nil {
			return nil, fmt.Errorf("%s: recipe %s: %w", file, raw.Name, err)
		}
		rec.Steps = append(rec.Steps, spec)
	}
	return rec, nil
}

// translateParam evaluates the declared default once with nothing in
// scope. Defaults are static values, not expressions over the run.
func translateParam(raw *schema.Param) (recipe.ParamSpec, error) {
	spec := recipe.ParamSpec{Name: raw.Name, Required: raw.Required}
	if raw.Default == nil {
		return spec, nil
	}
	val, diags := raw.Default.Value(nil)
	if diags.HasErrors() {
		return spec, fmt.Errorf("param %s: default is not a static value: %s", raw.Name, diags.Error())
	}
	if val.IsNull() {
		return spec, nil
	}
	native, err := expr.Native(val)
	if err != nil {
		return spec, fmt.Errorf("param %s: %w", raw.Name, err)
	}
	spec.Default = native
	spec.HasDefault = true
	return spec, nil
}

func translateStep(raw *schema.Step, index int) (recipe.StepSpec, error) {
	spec := recipe.StepSpec{
		Name:          raw.Name,
		Index:         index,
		Uses:          raw.Uses,
		Recipe:        raw.Recipe,
		DependsOn:     raw.DependsOn,
		ParallelGroup: raw.ParallelGroup,
	}

	switch {
	case raw.Uses != "" && raw.Recipe != "":
		return spec, fmt.Errorf("step %s: uses and recipe are mutually exclusive", raw.Name)
	case raw.Recipe != "":
		spec.Kind = recipe.KindSubRecipe
	default:
		spec.Kind = recipe.KindCapability
	}

	if raw.Condition != nil {
		// gohcl never leaves an hcl.Expression field nil: an absent
		// optional attribute decodes to a static null expression. Only a
		// statically-null, error-free expression marks absence; anything
		// referencing variables or functions errors under a nil context
		// and is kept.
		if v, diags := raw.Condition.Value(nil); diags.HasErrors() || !v.IsNull() {
			spec.Condition = raw.Condition
		}
	}

	switch raw.Trigger {
	case "", "normal":
		spec.Trigger = recipe.TriggerNormal
	case "on_error":
		spec.Trigger = recipe.TriggerOnError
	default:
		return spec, fmt.Errorf("step %s: unknown trigger %q", raw.Name, raw.Trigger)
	}

	if raw.Arguments != nil {
		args, err := translateArguments(raw.Arguments.Body)
		if err != nil {
			return spec, fmt.Errorf("step %s: %w", raw.Name, err)
		}
		spec.Arguments = args
	}

	if raw.Retry != nil {
		policy, err := translateRetry(raw.Retry)
		if err != nil {
			return spec, fmt.Errorf("step %s: %w", raw.Name, err)
		}
		spec.Retry = policy
	}

	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return spec, fmt.Errorf("step %s: invalid timeout %q: %w", raw.Name, raw.Timeout, err)
		}
		spec.Timeout = d
	}
	return spec, nil
}

// translateArguments keeps each attribute as an unevaluated expression.
// Nested objects and lists stay inside a single expression; the resolver
// evaluates them whole.
func translateArguments(body hcl.Body) (map[string]recipe.Value, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("decoding arguments: %s", diags.Error())
	}
	args := make(map[string]recipe.Value, len(attrs))
	for name, attr := range attrs {
		args[name] = recipe.ExprValue(attr.Expr)
	}
	return args, nil
}

func translateRetry(raw *schema.Retry) (*recipe.RetryPolicy, error) {
	policy := &recipe.RetryPolicy{MaxAttempts: raw.MaxAttempts, Exponential: raw.Exponential}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if raw.Backoff != "" {
		d, err := time.ParseDuration(raw.Backoff)
		if err != nil {
			return nil, fmt.Errorf("invalid backoff %q: %w", raw.Backoff, err)
		}
		policy.Backoff = d
	}
	return policy, nil
}
