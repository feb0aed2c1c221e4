package main

import (
	"fmt"
	"os"

	"github.com/vk/ladle/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCmd(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
