package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/menuscan/menuscan/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "menuscan",
	Short: "Daily lunch-menu extraction service",
	Long:  "Fetches restaurant pages, gates them through a daily-menu heuristic, extracts structured menu items via Claude with a price-normalization tool, and caches results per calendar day.",
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
