// Package testutil provides shared helpers for engine tests: a temp
// recipe workspace, a concurrency-safe log buffer and a one-call app
// runner.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/ladle/internal/app"
	"github.com/vk/ladle/internal/registry"
	"github.com/vk/ladle/internal/report"
)

// SafeBuffer is a bytes.Buffer safe for concurrent writers, used to
// capture log output from parallel steps.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// WriteRecipes materializes the given relative path to content mapping
// in a fresh temp dir and returns its root.
func WriteRecipes(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// RunResult carries everything an integration test asserts against.
type RunResult struct {
	Report *report.RunReport
	Err    error
	Logs   *SafeBuffer
}

// RunRecipe loads the given recipe files, registers the given modules
// and runs one recipe to completion. App construction failures fail the
// test; run failures are returned for assertion.
func RunRecipe(t *testing.T, files map[string]string, recipeName string, params map[string]any, modules ...registry.Module) *RunResult {
	t.Helper()

	root := WriteRecipes(t, files)
	logs := &SafeBuffer{}

	a, err := app.New(logs, &app.Config{
		RecipePaths: []string{root},
		LogLevel:    "debug",
		Workers:     4,
	}, modules...)
	require.NoError(t, err, "app construction failed")

	rep, runErr := a.Run(context.Background(), recipeName, params)
	return &RunResult{Report: rep, Err: runErr, Logs: logs}
}
