package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FWeynschenk/dotsmap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dotsmap",
	Short: "Dot-density country classification engine",
	Long:  "Classifies dense grids of projected sample points against country polygons using a tiered spatial-filtering pipeline, with parallel workers and a two-tier result cache.",
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
