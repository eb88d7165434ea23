package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FWeynschenk/dotsmap/internal/scheduler"
)

var classifyFlags struct {
	width      int
	height     int
	projection string
	spacing    int
	ocean      bool
	noCache    bool
	out        string
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a sampling grid against the loaded topology",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("classify"); err != nil {
			return err
		}

		q := scheduler.Query{
			Width:          classifyFlags.width,
			Height:         classifyFlags.height,
			ProjectionName: classifyFlags.projection,
			Spacing:        classifyFlags.spacing,
			IncludeOcean:   classifyFlags.ocean,
		}
		if err := q.Validate(); err != nil {
			return err
		}

		runID := uuid.New().String()
		log := zap.L().With(
			zap.String("run_id", runID),
			zap.String("fingerprint", q.Fingerprint()),
		)

		rc, err := openCache(ctx, cfg)
		if err != nil {
			return err
		}
		defer rc.Close() //nolint:errcheck

		out := &scheduler.Output{}
		if !classifyFlags.noCache {
			if e := rc.Get(ctx, q.Fingerprint()); e != nil {
				log.Info("cache hit", zap.Int("dots", len(e.Dots)))
				out.Dots = e.Dots
				out.Debug = e.Debug
				return writeOutput(out, classifyFlags.out)
			}
		}

		sched, err := newScheduler(ctx, cfg)
		if err != nil {
			return err
		}

		start := time.Now()
		out, err = sched.ClassifyGrid(ctx, q)
		if err != nil {
			return eris.Wrap(err, "classify grid")
		}
		log.Info("grid classified",
			zap.Int("dots", len(out.Dots)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int64("total_checks", out.Debug.TotalChecks),
			zap.Int64("circle_checks", out.Debug.CircleChecks),
			zap.Int64("full_checks", out.Debug.FullChecks),
		)

		if !classifyFlags.noCache {
			rc.Set(ctx, q.Fingerprint(), out.Dots, out.Debug)
		}

		return writeOutput(out, classifyFlags.out)
	},
}

// writeOutput emits the result JSON to a file or stdout.
func writeOutput(out *scheduler.Output, path string) error {
	w := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(out), "encode output")
}

func init() {
	classifyCmd.Flags().IntVar(&classifyFlags.width, "width", 960, "viewport width in pixels")
	classifyCmd.Flags().IntVar(&classifyFlags.height, "height", 500, "viewport height in pixels")
	classifyCmd.Flags().StringVar(&classifyFlags.projection, "projection", "equirectangular", "projection name")
	classifyCmd.Flags().IntVar(&classifyFlags.spacing, "spacing", 8, "grid spacing in pixels")
	classifyCmd.Flags().BoolVar(&classifyFlags.ocean, "ocean", false, "include ocean dots")
	classifyCmd.Flags().BoolVar(&classifyFlags.noCache, "no-cache", false, "bypass the result cache")
	classifyCmd.Flags().StringVar(&classifyFlags.out, "out", "", "output file (default stdout)")
	classifyCmd.Flags().StringVar(&topologyPath, "topology", "", "topology file (overrides config)")
	rootCmd.AddCommand(classifyCmd)
}
