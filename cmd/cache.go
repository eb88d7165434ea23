package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cache"); err != nil {
			return err
		}

		rc, err := openCache(ctx, cfg)
		if err != nil {
			return err
		}
		defer rc.Close() //nolint:errcheck

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rc.Stats(ctx))
	},
}

var cacheEvictAggressive bool

var cacheEvictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Evict stale cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cache"); err != nil {
			return err
		}

		rc, err := openCache(ctx, cfg)
		if err != nil {
			return err
		}
		defer rc.Close() //nolint:errcheck

		removed, err := rc.Evict(ctx, cacheEvictAggressive)
		if err != nil {
			return err
		}
		zap.L().Info("cache eviction complete",
			zap.Int("removed", removed),
			zap.Bool("aggressive", cacheEvictAggressive),
		)
		return nil
	},
}

func init() {
	cacheEvictCmd.Flags().BoolVar(&cacheEvictAggressive, "aggressive", false, "use the 1-day TTL and force-evict when nothing is stale")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheEvictCmd)
	rootCmd.AddCommand(cacheCmd)
}
