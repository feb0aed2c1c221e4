package expr

import (
	"strings"

	"github.com/vk/ladle/internal/ctxstore"
)

// Scope is what references resolve against: the static configuration
// (recipe or sub-recipe parameters) and the run's context store. Lookup
// order is static configuration first, then context, per dotted path.
type Scope struct {
	Params map[string]any
	Store  *ctxstore.Store
}

// Lookup resolves a dotted reference path. The roots "param" and "ctx"
// pin the lookup to one source; any other root is treated as the start of
// a plain dotted path tried against parameters first, then the store.
func (sc *Scope) Lookup(segments []string) (any, error) {
	if len(segments) == 0 {
		return nil, &UnresolvedReferenceError{Path: ""}
	}

	switch segments[0] {
	case "param":
		return sc.lookupParams(segments[1:], strings.Join(segments, "."))
	case "ctx":
		return sc.lookupStore(segments[1:], strings.Join(segments, "."))
	default:
		if v, err := sc.lookupParams(segments, ""); err == nil {
			return v, nil
		}
		return sc.lookupStore(segments, strings.Join(segments, "."))
	}
}

// lookupParams tries the full dotted name, then the first segment with
// structural navigation through the remainder.
func (sc *Scope) lookupParams(segments []string, refPath string) (any, error) {
	if refPath == "" {
		refPath = strings.Join(segments, ".")
	}
	if len(segments) == 0 || sc.Params == nil {
		return nil, &UnresolvedReferenceError{Path: refPath}
	}

	joined := strings.Join(segments, ".")
	if v, ok := sc.Params[joined]; ok {
		return v, nil
	}
	if v, ok := sc.Params[segments[0]]; ok {
		return navigate(v, segments[1:], refPath)
	}
	return nil, &UnresolvedReferenceError{Path: refPath}
}

// lookupStore finds the longest dotted prefix present as a store key and
// navigates the remaining segments into the stored value.
func (sc *Scope) lookupStore(segments []string, refPath string) (any, error) {
	if len(segments) == 0 || sc.Store == nil {
		return nil, &UnresolvedReferenceError{Path: refPath}
	}

	for i := len(segments); i >= 1; i-- {
		key := strings.Join(segments[:i], ".")
		if sc.Store.Contains(key) {
			v, err := sc.Store.Get(key)
			if err != nil {
				return nil, &UnresolvedReferenceError{Path: refPath}
			}
			return navigate(v, segments[i:], refPath)
		}
	}
	return nil, &UnresolvedReferenceError{Path: refPath}
}

// navigate walks attribute segments into a composite value.
func navigate(v any, rest []string, refPath string) (any, error) {
	for _, seg := range rest {
		switch m := v.(type) {
		case map[string]any:
			inner, ok := m[seg]
			if !ok {
				return nil, &UnresolvedReferenceError{Path: refPath}
			}
			v = inner
		case map[string]string:
			inner, ok := m[seg]
			if !ok {
				return nil, &UnresolvedReferenceError{Path: refPath}
			}
			v = inner
		default:
			return nil, &UnresolvedReferenceError{Path: refPath}
		}
	}
	return v, nil
}
