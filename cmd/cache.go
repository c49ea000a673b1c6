package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compass-ml/compkb/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the scrape cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cache.Open(cfg.Cache.Path)
		defer c.Close()

		n := c.PurgeExpired(cmd.Context())
		fmt.Printf("%d expired entries removed\n", n)
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <competition-id>...",
	Short: "Drop cached pages for competitions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		for _, compID := range args {
			n := env.Orch.InvalidateCompetition(cmd.Context(), compID)
			fmt.Printf("%s: %d entries dropped\n", compID, n)
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd, cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}
