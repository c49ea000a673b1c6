package main

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var notebooksPages int

var notebooksCmd = &cobra.Command{
	Use:   "notebooks",
	Short: "Work with competition notebooks",
}

var notebooksFetchCmd = &cobra.Command{
	Use:   "fetch <competition-id>",
	Short: "Ingest the code tab as notebook solutions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		counters, err := env.Orch.FetchNotebooks(cmd.Context(), args[0], notebooksPages)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d notebooks (%d new)\n", args[0], counters.Total, counters.Saved)
		return nil
	},
}

var notebooksSummarizeCmd = &cobra.Command{
	Use:   "summarize <notebook-id>...",
	Short: "Generate didactic summaries for notebooks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		for _, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return eris.Errorf("notebook id must be numeric: %s", arg)
			}
			if err := env.Orch.SummarizeNotebook(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("%d: summarized\n", id)
		}
		return nil
	},
}

func init() {
	notebooksFetchCmd.Flags().IntVar(&notebooksPages, "pages", 1, "code list pages to walk")
	notebooksCmd.AddCommand(notebooksFetchCmd, notebooksSummarizeCmd)
	rootCmd.AddCommand(notebooksCmd)
}
