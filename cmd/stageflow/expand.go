package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ci-utils/stageflow/pkg/config"
	"github.com/ci-utils/stageflow/pkg/matrix"
)

func newExpandCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Print the stage combinations a definition file expands to",
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := config.Load(file)
			if err != nil {
				return err
			}

			for _, g := range def.Groups {
				combos, err := matrix.Expand(g.MatrixAxes())
				if err != nil {
					return err
				}
				sep := g.Separator
				if sep == "" {
					sep = matrix.DefaultSeparator
				}
				fmt.Fprintf(cmd.OutOrStdout(), "group %s (%d stages, fail_fast=%v)\n", g.Name, len(combos), g.FailFast)
				for _, c := range combos {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %s\n", c.StageName(sep), c.Identifier())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "stageflow.yaml", "definition file")
	return cmd
}
