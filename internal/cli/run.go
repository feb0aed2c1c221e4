package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vk/ladle/internal/app"
)

func newRunCmd(flags *rootFlags, outW io.Writer) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "run <recipe>",
		Short: "Execute one recipe",
		Long: `Execute one loaded recipe by name.

Usage:
  ladle run deploy -r recipes/ --param env=staging --param replicas=3

Parameter values are parsed as YAML scalars, so numbers and booleans
arrive typed: --param replicas=3 binds the integer 3 and
--param dry_run=true binds a boolean.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings, err := parseParams(params)
			if err != nil {
				return err
			}

			a, err := app.New(outW, &app.Config{
				RecipePaths: flags.recipePaths,
				LogFormat:   flags.logFormat,
				LogLevel:    flags.logLevel,
				Workers:     flags.workers,
			})
			if err != nil {
				return err
			}

			rep, err := a.Run(cmd.Context(), args[0], bindings)
			if rep != nil {
				fmt.Fprintln(outW)
				rep.Render(outW)
			}
			return err
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Recipe parameter binding as name=value (repeatable)")
	return cmd
}

// parseParams turns name=value pairs into typed bindings. The value part
// goes through YAML scalar parsing so quoting works the obvious way.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	bindings := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected name=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		bindings[name] = value
	}
	return bindings, nil
}
