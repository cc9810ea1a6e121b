// Command stageflow expands matrix definition files and runs a shell
// command per combination, optionally under the conditional retry policy.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stageflow",
		Short:         "Matrix stage expansion and conditional retry for CI-style jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExpandCmd())
	root.AddCommand(newRunCmd())
	return root
}
