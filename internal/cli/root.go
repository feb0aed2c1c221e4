// Package cli defines the ladle command tree.
package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// rootFlags are shared by every subcommand.
type rootFlags struct {
	recipePaths []string
	logLevel    string
	logFormat   string
	workers     int
}

// NewRootCmd builds the root command with all subcommands attached.
// Output goes to outW so tests can capture it.
func NewRootCmd(outW io.Writer) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "ladle",
		Short: "Dependency-ordered recipe orchestration engine",
		Long: "Ladle executes recipes: named workflows of steps wired by data\n" +
			"dependencies, run concurrently where the dependency graph allows.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	rootCmd.Version = version
	rootCmd.SetOut(outW)
	rootCmd.SetErr(outW)

	pf := rootCmd.PersistentFlags()
	pf.StringSliceVarP(&flags.recipePaths, "recipes", "r", []string{"."}, "Recipe file or directory (repeatable)")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log format: text or json")
	pf.IntVar(&flags.workers, "workers", 0, "Worker pool size (0 = available parallelism)")

	rootCmd.AddCommand(newRunCmd(flags, outW))
	rootCmd.AddCommand(newValidateCmd(flags, outW))
	rootCmd.AddCommand(newListCmd(flags, outW))
	return rootCmd
}
