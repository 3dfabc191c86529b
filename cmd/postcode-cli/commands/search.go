package commands

import (
	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <fragment>",
		Short: "Look a postal code fragment up in every panel country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := agg.Execute(cmd.Context(), args[0])
			return printResults(cmd.OutOrStdout(), list)
		},
	}
}
