package registry

import "fmt"

// Argument accessors. Resolved argument values are native Go values
// (string, bool, int64, float64, map[string]any, []any); these helpers
// give capabilities typed access with uniform error messages.

// String returns the named argument as a string.
func (c *Call) String(name string) (string, error) {
	v, ok := c.Args[name]
	if !ok {
		return "", fmt.Errorf("step %s: missing argument %q", c.Step, name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("step %s: argument %q: expected string, got %T", c.Step, name, v)
	}
	return s, nil
}

// StringOr returns the named argument as a string, or def when absent.
func (c *Call) StringOr(name, def string) (string, error) {
	if _, ok := c.Args[name]; !ok {
		return def, nil
	}
	return c.String(name)
}

// Bool returns the named argument as a bool, or def when absent.
func (c *Call) Bool(name string, def bool) (bool, error) {
	v, ok := c.Args[name]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("step %s: argument %q: expected bool, got %T", c.Step, name, v)
	}
	return b, nil
}

// Int returns the named argument as an int64, or def when absent.
// Resolved numbers arrive as int64 or float64 depending on the source.
func (c *Call) Int(name string, def int64) (int64, error) {
	v, ok := c.Args[name]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("step %s: argument %q: expected number, got %T", c.Step, name, v)
	}
}

// Object returns the named argument as a map, or nil when absent.
func (c *Call) Object(name string) (map[string]any, error) {
	v, ok := c.Args[name]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("step %s: argument %q: expected object, got %T", c.Step, name, v)
	}
	return m, nil
}

// List returns the named argument as a slice, or nil when absent.
func (c *Call) List(name string) ([]any, error) {
	v, ok := c.Args[name]
	if !ok || v == nil {
		return nil, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("step %s: argument %q: expected list, got %T", c.Step, name, v)
	}
	return l, nil
}
