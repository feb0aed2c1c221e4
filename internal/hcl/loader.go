// Package hcl loads recipe definitions from .hcl files into the recipe
// model. Argument and condition expressions are kept unevaluated so the
// resolver can bind them against parameters and the context store at
// dispatch time.
package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/ladle/internal/ctxlog"
	"github.com/vk/ladle/internal/fsutil"
	"github.com/vk/ladle/internal/recipe"
	"github.com/vk/ladle/internal/schema"
)

// Loader parses HCL recipe files.
type Loader struct{}

// NewLoader creates a new HCL recipe loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions reports the file extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".hcl"}
}

// Load discovers every .hcl file under the given paths, decodes them and
// adds each recipe to the set. Duplicate recipe names across files are
// an error.
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
	logger.Debug("Discovered HCL recipe files.", "count", len(files))

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return fmt.Errorf("parsing %s: %s", file, diags.Error())
		}

		var root schema.File
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return fmt.Errorf("decoding %s: %s", file, diags.Error())
		}

		for _, raw := range root.Recipes {
			rec, err := translateRecipe(raw, file)
			if err != nil {
				return err
			}
			if err := set.Add(rec); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			logger.Debug("Loaded recipe.", "recipe", rec.Name, "steps", len(rec.Steps), "file", file)
		}
	}
	return nil
}
