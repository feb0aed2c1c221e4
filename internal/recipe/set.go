package recipe

import (
	"fmt"
	"sort"
	"sync"
)

// Set is the library of loaded recipes, used for sub-recipe lookup.
// Loaders may populate it concurrently.
type Set struct {
	mu      sync.Mutex
	recipes map[string]*Recipe
}

// NewSet returns an empty recipe set.
func NewSet() *Set {
	return &Set{recipes: make(map[string]*Recipe)}
}

// Add validates the recipe and stores it. Adding two recipes with the
// same name is a definition error.
func (s *Set) Add(r *Recipe) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.recipes[r.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRecipe, r.Name)
	}
	s.recipes[r.Name] = r
	return nil
}

// Get returns the recipe with the given name.
func (s *Set) Get(name string) (*Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecipe, name)
	}
	return r, nil
}

// Names returns the sorted names of all loaded recipes.
func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.recipes))
	for name := range s.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded recipes.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recipes)
}
