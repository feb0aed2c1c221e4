package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/ladle/internal/registry"
)

func invoke(t *testing.T, args map[string]any) (any, error) {
	t.Helper()
	return Invoke(context.Background(), &registry.Call{Step: "t", Args: args})
}

func TestTransform_Pick(t *testing.T) {
	t.Parallel()
	v, err := invoke(t, map[string]any{
		"op":    "pick",
		"input": map[string]any{"status": int64(200), "body": "x"},
		"field": "status",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200), v)

	_, err = invoke(t, map[string]any{
		"op":    "pick",
		"input": map[string]any{},
		"field": "absent",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no field")
}

func TestTransform_Merge(t *testing.T) {
	t.Parallel()
	v, err := invoke(t, map[string]any{
		"op":    "merge",
		"input": map[string]any{"a": 1, "b": 1},
		"with":  map[string]any{"b": 2, "c": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": 2, "c": 3}, v)
}

func TestTransform_JSONRoundTrip(t *testing.T) {
	t.Parallel()
	encoded, err := invoke(t, map[string]any{
		"op":    "json_encode",
		"input": map[string]any{"k": "v"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"v"}`, encoded)

	decoded, err := invoke(t, map[string]any{
		"op":    "json_decode",
		"input": encoded,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, decoded)

	_, err = invoke(t, map[string]any{"op": "json_decode", "input": "{broken"})
	require.Error(t, err)
}

func TestTransform_UnknownOp(t *testing.T) {
	t.Parallel()
	_, err := invoke(t, map[string]any{"op": "teleport"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transform op")
}
