package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var lookupFlags struct {
	width      int
	height     int
	projection string
	resolution int
}

var lookupMapCmd = &cobra.Command{
	Use:   "lookupmap",
	Short: "Precompute a pixel-to-country lookup raster on every worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("lookupmap"); err != nil {
			return err
		}

		sched, err := newScheduler(ctx, cfg)
		if err != nil {
			return err
		}

		log := zap.L().With(zap.String("projection", lookupFlags.projection))

		start := time.Now()
		err = sched.BuildLookupMap(ctx,
			lookupFlags.projection,
			lookupFlags.width, lookupFlags.height, lookupFlags.resolution,
			func(percent float64) {
				log.Info("lookup map progress", zap.Float64("percent", percent))
			},
		)
		if err != nil {
			return err
		}

		log.Info("lookup map complete",
			zap.Int("workers", sched.Workers()),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil
	},
}

func init() {
	lookupMapCmd.Flags().IntVar(&lookupFlags.width, "width", 960, "viewport width in pixels")
	lookupMapCmd.Flags().IntVar(&lookupFlags.height, "height", 500, "viewport height in pixels")
	lookupMapCmd.Flags().StringVar(&lookupFlags.projection, "projection", "equirectangular", "projection name")
	lookupMapCmd.Flags().IntVar(&lookupFlags.resolution, "resolution", 2, "raster resolution in pixels per cell")
	lookupMapCmd.Flags().StringVar(&topologyPath, "topology", "", "topology file (overrides config)")
	rootCmd.AddCommand(lookupMapCmd)
}
