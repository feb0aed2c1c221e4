// Package schema defines the decode targets for recipe files written in
// HCL. The structs mirror the on-disk block structure one to one; the
// hcl loader translates them into the recipe model.
package schema

import "github.com/hashicorp/hcl/v2"

// File is the root of one recipe file.
type File struct {
	Recipes []*Recipe `hcl:"recipe,block"`
}

// Recipe is one `recipe "name" { ... }` block.
type Recipe struct {
	Name    string   `hcl:"name,label"`
	Version string   `hcl:"version,optional"`
	Params  []*Param `hcl:"param,block"`
	Steps   []*Step  `hcl:"step,block"`
}

// Param is one `param "name" { ... }` block. The default stays an
// expression so the loader can evaluate it once with no variables in
// scope.
type Param struct {
	Name     string         `hcl:"name,label"`
	Required bool           `hcl:"required,optional"`
	Default  hcl.Expression `hcl:"default,optional"`
}

// Step is one `step "name" { ... }` block. Exactly one of Uses and
// Recipe is set; the translator enforces that.
type Step struct {
	Name          string         `hcl:"name,label"`
	Uses          string         `hcl:"uses,optional"`
	Recipe        string         `hcl:"recipe,optional"`
	Arguments     *ArgsBlock     `hcl:"arguments,block"`
	DependsOn     []string       `hcl:"depends_on,optional"`
	Condition     hcl.Expression `hcl:"condition,optional"`
	ParallelGroup string         `hcl:"parallel_group,optional"`
	Trigger       string         `hcl:"trigger,optional"`
	Retry         *Retry         `hcl:"retry,block"`
	Timeout       string         `hcl:"timeout,optional"`
}

// ArgsBlock captures the raw arguments body. Attribute expressions are
// kept unevaluated; the resolver evaluates them per step at run time.
type ArgsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Retry is one `retry { ... }` block.
type Retry struct {
	MaxAttempts int    `hcl:"max_attempts,optional"`
	Backoff     string `hcl:"backoff,optional"`
	Exponential bool   `hcl:"exponential,optional"`
}
