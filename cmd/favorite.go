package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var favoriteCmd = &cobra.Command{
	Use:   "favorite <competition-id>",
	Short: "Toggle a competition's favorite flag",
	Long:  "Toggles the favorite flag. Unfavoriting deletes the competition's ingested discussions; favorites gate deep ingestion storage.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		comp, err := env.Store.GetCompetition(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if comp == nil {
			return eris.Errorf("competition not found: %s", args[0])
		}

		deleted, err := env.Store.SetFavorite(cmd.Context(), args[0], !comp.IsFavorite)
		if err != nil {
			return err
		}
		if comp.IsFavorite {
			fmt.Printf("%s: unfavorited, %d discussions deleted\n", args[0], deleted)
		} else {
			fmt.Printf("%s: favorited\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(favoriteCmd)
}
