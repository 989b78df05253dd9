package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kvirves/rik-screener/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Screens companies using multi-year registry financials",
	Long: "Merges per-year business registry datasets, computes financial ratios from\n" +
		"built-in and custom formulas, scores them against threshold rules, and ranks\n" +
		"the results.",
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
