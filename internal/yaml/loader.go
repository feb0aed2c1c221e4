// Package yaml loads recipe definitions from .yaml files. Strings pass
// through template parsing so ${...} placeholders behave exactly as in
// HCL recipes; other scalars become literal expressions, and maps and
// sequences become composite argument values walked by the resolver.
package yaml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vk/ladle/internal/ctxlog"
	"github.com/vk/ladle/internal/expr"
	"github.com/vk/ladle/internal/fsutil"
	"github.com/vk/ladle/internal/recipe"
)

// Loader parses YAML recipe files.
type Loader struct{}

// NewLoader creates a new YAML recipe loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions reports the file extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// document is the decode target for one YAML document.
type document struct {
	Recipe *yamlRecipe `yaml:"recipe"`
}

type yamlRecipe struct {
	Name    string       `yaml:"name"`
	Version string       `yaml:"version"`
	Params  []*yamlParam `yaml:"params"`
	Steps   []*yamlStep  `yaml:"steps"`
}

type yamlParam struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
	// Default is a pointer so a falsy default (0, "", false) is still
	// distinguishable from an absent one.
	Default *any `yaml:"default"`
}

type yamlStep struct {
	Name          string         `yaml:"name"`
	Uses          string         `yaml:"uses"`
	Recipe        string         `yaml:"recipe"`
	Arguments     map[string]any `yaml:"arguments"`
	DependsOn     []string       `yaml:"depends_on"`
	Condition     string         `yaml:"condition"`
	ParallelGroup string         `yaml:"parallel_group"`
	Trigger       string         `yaml:"trigger"`
	Retry         *yamlRetry     `yaml:"retry"`
	Timeout       string         `yaml:"timeout"`
}

type yamlRetry struct {
	MaxAttempts int    `yaml:"max_attempts"`
	Backoff     string `yaml:"backoff"`
	Exponential bool   `yaml:"exponential"`
}

// Load discovers every .yaml and .yml file under the given paths,
// decodes each document and adds the recipes to the set. One file may
// hold several documents separated by ---.
func (l *Loader) Load(ctx context.Context, set *recipe.Set, paths ...string) error {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		found, err := fsutil.FindFilesByExtensions(path, l.Extensions()...)
		if err != nil {
			return fmt.Errorf("discovering recipe files under %s: %w", path, err)
		}
		files = append(files, found...)
	}
	logger.Debug("Discovered YAML recipe files.", "count", len(files))

	for _, file := range files {
		if err := l.loadFile(ctx, set, file); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadFile(ctx context.Context, set *recipe.Set, file string) error {
	logger := ctxlog.FromContext(ctx)

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	for {
		var doc document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("parsing %s: %w", file, err)
		}
		if doc.Recipe == nil {
			continue
		}
		rec, err := translateRecipe(doc.Recipe, file)
		if err != nil {
			return err
		}
		if err := set.Add(rec); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		logger.Debug("Loaded recipe.", "recipe", rec.Name, "steps", len(rec.Steps), "file", file)
	}
}

func translateRecipe(raw *yamlRecipe, file string) (*recipe.Recipe, error) {
	rec := &recipe.Recipe{
		Name:    raw.Name,
		Version: raw.Version,
	}
	for _, p := range raw.Params {
		spec := recipe.ParamSpec{Name: p.Name, Required: p.Required}
		if p.Default != nil {
			spec.Default = *p.Default
			spec.HasDefault = true
		}
		rec.Params = append(rec.Params, spec)
	}
	for i, s := range raw.Steps {
		spec, err := translateStep(s, i, file)
		if err != nil {
			return nil, fmt.Errorf("%s: recipe %s: %w", file, raw.Name, err)
		}
		rec.Steps = append(rec.Steps, spec)
	}
	return rec, nil
}

func translateStep(raw *yamlStep, index int, file string) (recipe.StepSpec, error) {
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

	if raw.Condition != "" {
		cond, err := expr.ParseExpr(raw.Condition, file)
		if err != nil {
			return spec, fmt.Errorf("step %s: condition: %w", raw.Name, err)
		}
		spec.Condition = cond
	}

	switch raw.Trigger {
	case "", "normal":
		spec.Trigger = recipe.TriggerNormal
	case "on_error":
		spec.Trigger = recipe.TriggerOnError
	default:
		return spec, fmt.Errorf("step %s: unknown trigger %q", raw.Name, raw.Trigger)
	}

	if len(raw.Arguments) > 0 {
		args := make(map[string]recipe.Value, len(raw.Arguments))
		for name, v := range raw.Arguments {
			val, err := translateValue(v, file)
			if err != nil {
				return spec, fmt.Errorf("step %s: argument %s: %w", raw.Name, name, err)
			}
			args[name] = val
		}
		spec.Arguments = args
	}

	if raw.Retry != nil {
		policy := &recipe.RetryPolicy{MaxAttempts: raw.Retry.MaxAttempts, Exponential: raw.Retry.Exponential}
		if policy.MaxAttempts < 1 {
			policy.MaxAttempts = 1
		}
		if raw.Retry.Backoff != "" {
			d, err := time.ParseDuration(raw.Retry.Backoff)
			if err != nil {
				return spec, fmt.Errorf("step %s: invalid backoff %q: %w", raw.Name, raw.Retry.Backoff, err)
			}
			policy.Backoff = d
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

// translateValue converts a decoded YAML value into the argument AST.
// Strings go through template parsing so embedded ${...} placeholders
// resolve at dispatch time; everything else is literal structure.
func translateValue(v any, file string) (recipe.Value, error) {
	switch tv := v.(type) {
	case string:
		e, err := expr.TemplateExpr(tv, file)
		if err != nil {
			return recipe.Value{}, err
		}
		return recipe.ExprValue(e), nil
	case map[string]any:
		fields := make(map[string]recipe.Value, len(tv))
		for k, elem := range tv {
			fv, err := translateValue(elem, file)
			if err != nil {
				return recipe.Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = fv
		}
		return recipe.ObjectValue(fields), nil
	case []any:
		elems := make([]recipe.Value, len(tv))
		for i, elem := range tv {
			ev, err := translateValue(elem, file)
			if err != nil {
				return recipe.Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			elems[i] = ev
		}
		return recipe.TupleValue(elems), nil
	default:
		e, err := expr.LiteralExpr(tv)
		if err != nil {
			return recipe.Value{}, err
		}
		return recipe.ExprValue(e), nil
	}
}
