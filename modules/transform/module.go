// Package transform reshapes values between steps: picking fields out
// of objects, merging objects and encoding or decoding JSON.
package transform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/ladle/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Invoke dispatches on the 'op' argument.
//
//	pick:        returns input[field] for an object input
//	merge:       merges the 'with' object over the 'input' object
//	json_encode: renders the input as a JSON string
//	json_decode: parses the input string as JSON
func Invoke(ctx context.Context, call *registry.Call) (any, error) {
	op, err := call.String("op")
	if err != nil {
		return nil, err
	}

	switch op {
	case "pick":
		input, err := call.Object("input")
		if err != nil {
			return nil, err
		}
		field, err := call.String("field")
		if err != nil {
			return nil, err
		}
		v, ok := input[field]
		if !ok {
			return nil, fmt.Errorf("step %s: pick: no field %q in input", call.Step, field)
		}
		return v, nil

	case "merge":
		input, err := call.Object("input")
		if err != nil {
			return nil, err
		}
		with, err := call.Object("with")
		if err != nil {
			return nil, err
		}
		merged := make(map[string]any, len(input)+len(with))
		for k, v := range input {
			merged[k] = v
		}
		for k, v := range with {
			merged[k] = v
		}
		return merged, nil

	case "json_encode":
		data, err := json.Marshal(call.Args["input"])
		if err != nil {
			return nil, fmt.Errorf("step %s: json_encode: %w", call.Step, err)
		}
		return string(data), nil

	case "json_decode":
		input, err := call.String("input")
		if err != nil {
			return nil, err
		}
		var decoded any
		if err := json.Unmarshal([]byte(input), &decoded); err != nil {
			return nil, fmt.Errorf("step %s: json_decode: %w", call.Step, err)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("step %s: unknown transform op %q", call.Step, op)
	}
}

// Register registers the capability with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("transform", registry.Func(Invoke))
}
