package main

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var discussionsCmd = &cobra.Command{
	Use:   "discussions",
	Short: "Work with ingested discussions",
}

var discussionsFetchCmd = &cobra.Command{
	Use:   "fetch <discussion-id>...",
	Short: "Render thread bodies and generate structured summaries",
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
				return eris.Errorf("discussion id must be numeric: %s", arg)
			}
			if err := env.Orch.FetchDiscussionDetail(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("%d: fetched\n", id)
		}
		return nil
	},
}

var discussionsListCmd = &cobra.Command{
	Use:   "list <competition-id>",
	Short: "List a competition's discussions by votes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := env.Store.ListDiscussions(cmd.Context(), args[0], "vote_count", "desc", 50)
		if err != nil {
			return err
		}
		for _, d := range list {
			marker := " "
			if d.IsPinned {
				marker = "*"
			}
			fmt.Printf("%s %6d  %4dv  %s\n", marker, d.ID, d.VoteCount, d.Title)
		}
		return nil
	},
}

func init() {
	discussionsCmd.AddCommand(discussionsFetchCmd, discussionsListCmd)
	rootCmd.AddCommand(discussionsCmd)
}
