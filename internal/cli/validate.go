package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vk/ladle/internal/app"
)

func newValidateCmd(flags *rootFlags, outW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load every recipe and check graphs, capabilities and sub-recipe references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(outW, &app.Config{
				RecipePaths: flags.recipePaths,
				LogFormat:   flags.logFormat,
				LogLevel:    flags.logLevel,
				Workers:     flags.workers,
			})
			if err != nil {
				return err
			}
			if err := a.Validate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(outW, "%d recipe(s) valid.\n", a.Recipes().Len())
			return nil
		},
	}
}

func newListCmd(flags *rootFlags, outW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(io.Discard, &app.Config{
				RecipePaths: flags.recipePaths,
				LogFormat:   flags.logFormat,
				LogLevel:    "error",
			})
			if err != nil {
				return err
			}
			for _, name := range a.Recipes().Names() {
				rec, err := a.Recipes().Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(outW, "%s\t%d step(s)\n", name, len(rec.Steps))
			}
			return nil
		},
	}
}
