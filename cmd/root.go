package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/compass-ml/compkb/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "compkb",
	Short: "Competition knowledge-base builder",
	Long:  "Scrapes competition pages through a headless browser, classifies solution write-ups, enriches everything with LLM summaries, and serves the catalog over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
