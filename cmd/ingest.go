package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	ingestPages     int
	ingestEnrich    bool
	ingestNotebooks bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <competition-id>...",
	Short: "Ingest metadata and discussions for competitions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		for _, compID := range args {
			comp, err := env.Orch.IngestMetadata(cmd.Context(), compID)
			if err != nil {
				return err
			}
			if comp == nil {
				fmt.Printf("%s: not found on platform\n", compID)
				continue
			}

			counters, err := env.Orch.IngestDiscussions(cmd.Context(), compID, ingestPages)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d discussions (%d new), %d solutions (%d new)\n",
				compID,
				counters["discussions"].Total, counters["discussions"].Saved,
				counters["solutions"].Total, counters["solutions"].Saved)

			if ingestNotebooks {
				nb, err := env.Orch.FetchNotebooks(cmd.Context(), compID, 1)
				if err != nil {
					return eris.Wrapf(err, "notebooks for %s", compID)
				}
				fmt.Printf("%s: %d notebooks (%d new)\n", compID, nb.Total, nb.Saved)
			}
			if ingestEnrich {
				if err := env.Orch.Enrich(cmd.Context(), compID, false); err != nil {
					return eris.Wrapf(err, "enrich %s", compID)
				}
			}
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestPages, "pages", 3, "list pages per tab")
	ingestCmd.Flags().BoolVar(&ingestEnrich, "enrich", false, "run LLM enrichment after ingesting")
	ingestCmd.Flags().BoolVar(&ingestNotebooks, "notebooks", false, "also ingest the code tab")
	rootCmd.AddCommand(ingestCmd)
}
