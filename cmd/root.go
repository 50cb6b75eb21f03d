package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenloop/carbon-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "carbon-cli",
	Short: "Carbon footprint scoring engine",
	Long:  "Scores lifestyle surveys into CO2 estimates and reward points, settles provisional and verified awards, and serves the scoring API.",
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
