package recipe

// Validate checks the definition-level invariants of a recipe: step names
// present and unique, every step targets a capability or a sub-recipe, and
// on_error steps declare no dependencies. Dependency reference and cycle
// checks belong to the graph builder, not the loader.
func (r *Recipe) Validate() error {
	if len(r.Steps) == 0 {
		return &ValidationError{Recipe: r.Name, Err: ErrEmptySteps}
	}

	seen := make(map[string]bool, len(r.Steps))
	for i := range r.Steps {
		step := &r.Steps[i]
		if step.Name == "" {
			return &ValidationError{Recipe: r.Name, Err: ErrEmptyStepName}
		}
		if seen[step.Name] {
			return &ValidationError{Recipe: r.Name, Step: step.Name, Err: ErrDuplicateStepName}
		}
		seen[step.Name] = true

		switch step.Kind {
		case KindCapability:
			if step.Uses == "" {
				return &ValidationError{Recipe: r.Name, Step: step.Name, Err: ErrMissingTarget}
			}
		case KindSubRecipe:
			if step.Recipe == "" {
				return &ValidationError{Recipe: r.Name, Step: step.Name, Err: ErrMissingTarget}
			}
		}

		if step.Trigger == TriggerOnError && len(step.DependsOn) > 0 {
			return &ValidationError{Recipe: r.Name, Step: step.Name, Err: ErrOnErrorDependencies}
		}
	}
	return nil
}
