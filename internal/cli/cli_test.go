package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	t.Parallel()

	got, err := parseParams([]string{"env=staging", "replicas=3", "dry_run=true", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"env":      "staging",
		"replicas": 3,
		"dry_run":  true,
		"note":     "a=b",
	}, got)

	got, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseParams([]string{"missing-separator"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected name=value")
}

func writeRecipe(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "r.hcl"), []byte(content), 0o644))
	return root
}

func TestRunCommand_EndToEnd(t *testing.T) {
	t.Parallel()
	root := writeRecipe(t, `
		recipe "hello" {
			param "who" {
				required = true
			}

			step "greet" {
				uses = "print"
				arguments {
					message = "hello ${param.who}"
				}
			}
		}
	`)

	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetArgs([]string{"run", "hello", "-r", root, "--param", "who=ops", "--log-level", "error"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Recipe hello: completed")
	assert.Contains(t, out.String(), "greet")
	assert.Contains(t, out.String(), "succeeded")
}

func TestRunCommand_FailedRunExitsNonZero(t *testing.T) {
	t.Parallel()
	root := writeRecipe(t, `
		recipe "broken" {
			step "explode" {
				uses = "transform"
				arguments {
					op = "no_such_op"
				}
			}
		}
	`)

	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetArgs([]string{"run", "broken", "-r", root, "--log-level", "error"})

	err := cmd.Execute()
	require.Error(t, err)
	// The report still renders before the error propagates.
	assert.Contains(t, out.String(), "Recipe broken: failed")
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()
	root := writeRecipe(t, `
		recipe "ok" {
			step "a" {
				uses = "print"
			}
		}
	`)

	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetArgs([]string{"validate", "-r", root, "--log-level", "error"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1 recipe(s) valid.")
}

func TestListCommand(t *testing.T) {
	t.Parallel()
	root := writeRecipe(t, `
		recipe "alpha" {
			step "a" {
				uses = "print"
			}
		}

		recipe "beta" {
			step "b" {
				uses = "print"
			}
			step "c" {
				uses = "print"
			}
		}
	`)

	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetArgs([]string{"list", "-r", root})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "alpha\t1 step(s)")
	assert.Contains(t, out.String(), "beta\t2 step(s)")
}
