package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	discoverPages   int
	discoverIngest  bool
	discoverWorkers int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find competitions the catalog has not seen yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		added, err := env.Orch.Discover(cmd.Context(), discoverPages)
		if err != nil {
			return err
		}
		for _, id := range added {
			fmt.Println(id)
		}
		fmt.Printf("%d new competitions\n", len(added))

		if discoverIngest && len(added) > 0 {
			return env.Orch.IngestBatch(cmd.Context(), added, discoverWorkers, env.newFetcher)
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().IntVar(&discoverPages, "pages", 1, "listing pages to walk")
	discoverCmd.Flags().BoolVar(&discoverIngest, "ingest", false, "ingest discussions for new competitions")
	discoverCmd.Flags().IntVar(&discoverWorkers, "workers", 2, "parallel workers for --ingest, one browser each")
	rootCmd.AddCommand(discoverCmd)
}
