package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enrichDataset bool

var enrichCmd = &cobra.Command{
	Use:   "enrich <competition-id>...",
	Short: "Generate summaries, metrics, and tags for competitions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		for _, compID := range args {
			if err := env.Orch.Enrich(cmd.Context(), compID, enrichDataset); err != nil {
				return err
			}
			fmt.Printf("%s: enriched\n", compID)
		}
		return nil
	},
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichDataset, "dataset", false, "also fetch the data tab and extract dataset info")
	rootCmd.AddCommand(enrichCmd)
}
