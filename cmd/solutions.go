package main

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/compass-ml/compkb/internal/model"
)

var solutionsEnableAI bool

var solutionsCmd = &cobra.Command{
	Use:   "solutions",
	Short: "Work with promoted solutions",
}

var solutionsFetchCmd = &cobra.Command{
	Use:   "fetch <competition-id>",
	Short: "Refresh the solution set for a competition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		counters, err := env.Orch.FetchSolutions(cmd.Context(), args[0], solutionsEnableAI)
		if err != nil {
			return err
		}
		sc := counters["solutions"]
		fmt.Printf("%s: %d solutions (%d new, %d analyzed)\n",
			args[0], sc.Total, sc.Saved, sc.AIAnalyzed)
		return nil
	},
}

var solutionsDetailCmd = &cobra.Command{
	Use:   "detail <solution-id>...",
	Short: "Render write-up bodies and extract techniques",
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
				return eris.Errorf("solution id must be numeric: %s", arg)
			}
			if err := env.Orch.FetchSolutionDetail(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("%d: fetched\n", id)
		}
		return nil
	},
}

var solutionsListCmd = &cobra.Command{
	Use:   "list <competition-id>",
	Short: "List a competition's solutions by rank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := env.Store.ListSolutions(cmd.Context(), args[0],
			model.SolutionTypeDiscussion, "rank", "asc", 50)
		if err != nil {
			return err
		}
		for _, sol := range list {
			rank := "  -"
			if sol.Rank != nil {
				rank = fmt.Sprintf("%3d", *sol.Rank)
			}
			fmt.Printf("%6d  %s  %-6s  %s\n", sol.ID, rank, sol.Medal, sol.Title)
		}
		return nil
	},
}

func init() {
	solutionsFetchCmd.Flags().BoolVar(&solutionsEnableAI, "enable-ai", false, "summarize solutions still missing one")
	solutionsCmd.AddCommand(solutionsFetchCmd, solutionsDetailCmd, solutionsListCmd)
	rootCmd.AddCommand(solutionsCmd)
}
