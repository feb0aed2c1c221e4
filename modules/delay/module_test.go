package delay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/ladle/internal/registry"
)

func TestDelay_Sleeps(t *testing.T) {
	t.Parallel()
	start := time.Now()
	v, err := Invoke(context.Background(), &registry.Call{
		Step: "d",
		Args: map[string]any{"duration": "20ms"},
	})
	require.NoError(t, err)
	assert.Equal(t, "20ms", v)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestDelay_Cancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Invoke(ctx, &registry.Call{
		Step: "d",
		Args: map[string]any{"duration": "5s"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDelay_InvalidDuration(t *testing.T) {
	t.Parallel()
	_, err := Invoke(context.Background(), &registry.Call{
		Step: "d",
		Args: map[string]any{"duration": "a while"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}
