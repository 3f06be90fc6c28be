package cmd

import (
	"github.com/spf13/cobra"

	"github.com/repoctx/repoctx/internal/rdiff"
)

func newDiffCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "diff <before-dir> <after-dir>",
		Short: "Compare two export runs' output directories",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := rdiff.Compare(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return rdiff.Write(cmd.OutOrStdout(), summary, rdiff.Format(format))
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "text | markdown | json")
	return cmd
}
