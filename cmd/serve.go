package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/FWeynschenk/dotsmap/internal/cache"
	"github.com/FWeynschenk/dotsmap/internal/projection"
	"github.com/FWeynschenk/dotsmap/internal/scheduler"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve grid classification over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		sched, err := newScheduler(ctx, cfg)
		if err != nil {
			return err
		}
		rc, err := openCache(ctx, cfg)
		if err != nil {
			return err
		}
		defer rc.Close() //nolint:errcheck

		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildMux(sched, rc, limiter),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Int("workers", sched.Workers()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// buildMux assembles the HTTP surface: health, projection discovery,
// cache-backed grid classification, lookup raster builds, and cache
// maintenance.
func buildMux(sched *scheduler.Scheduler, rc *cache.Cache, limiter *rate.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))
	if limiter != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if !limiter.Allow() {
					writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
					return
				}
				next.ServeHTTP(w, req)
			})
		})
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/projections", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"projections": projection.Names()})
	})

	r.Post("/classify", func(w http.ResponseWriter, req *http.Request) {
		q, err := queryFromRequest(req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		if e := rc.Get(req.Context(), q.Fingerprint()); e != nil {
			writeJSON(w, http.StatusOK, scheduler.Output{Dots: e.Dots, Debug: e.Debug})
			return
		}

		out, err := sched.ClassifyGrid(req.Context(), q)
		if err != nil {
			if eris.Is(err, scheduler.ErrBusy) {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "classification already in progress"})
				return
			}
			zap.L().Error("classification failed",
				zap.String("fingerprint", q.Fingerprint()),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "classification failed"})
			return
		}

		rc.Set(req.Context(), q.Fingerprint(), out.Dots, out.Debug)
		writeJSON(w, http.StatusOK, out)
	})

	r.Post("/lookupmap", func(w http.ResponseWriter, req *http.Request) {
		width, height, resolution, projName, err := lookupParamsFromRequest(req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		// Classify queries with matching viewport and projection take the
		// raster fast path on every worker from here on.
		err = sched.BuildLookupMap(req.Context(), projName, width, height, resolution,
			func(percent float64) {
				zap.L().Debug("lookup map progress", zap.Float64("percent", percent))
			},
		)
		if err != nil {
			if eris.Is(err, scheduler.ErrBusy) {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "a build or classification is already in progress"})
				return
			}
			zap.L().Error("lookup map build failed",
				zap.String("projection", projName),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup map build failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "built"})
	})

	r.Get("/cache/stats", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, rc.Stats(req.Context()))
	})

	r.Post("/cache/evict", func(w http.ResponseWriter, req *http.Request) {
		aggressive := req.URL.Query().Get("aggressive") == "true"
		removed, err := rc.Evict(req.Context(), aggressive)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "eviction failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	})

	return r
}

// queryFromRequest parses classification parameters from the query string.
func queryFromRequest(req *http.Request) (scheduler.Query, error) {
	v := req.URL.Query()

	width, err := strconv.Atoi(v.Get("width"))
	if err != nil {
		return scheduler.Query{}, eris.New("width is required")
	}
	height, err := strconv.Atoi(v.Get("height"))
	if err != nil {
		return scheduler.Query{}, eris.New("height is required")
	}
	spacing := 8
	if s := v.Get("spacing"); s != "" {
		if spacing, err = strconv.Atoi(s); err != nil {
			return scheduler.Query{}, eris.New("invalid spacing")
		}
	}
	projName := v.Get("projection")
	if projName == "" {
		projName = "equirectangular"
	}

	q := scheduler.Query{
		Width:          width,
		Height:         height,
		ProjectionName: projName,
		Spacing:        spacing,
		IncludeOcean:   v.Get("ocean") == "true",
	}
	return q, q.Validate()
}

// lookupParamsFromRequest parses raster build parameters from the query
// string, validating the projection up front so bad input never reaches the
// worker pool.
func lookupParamsFromRequest(req *http.Request) (width, height, resolution int, projName string, err error) {
	v := req.URL.Query()

	width, err = strconv.Atoi(v.Get("width"))
	if err != nil || width <= 0 {
		return 0, 0, 0, "", eris.New("width is required")
	}
	height, err = strconv.Atoi(v.Get("height"))
	if err != nil || height <= 0 {
		return 0, 0, 0, "", eris.New("height is required")
	}
	resolution = 2
	if s := v.Get("resolution"); s != "" {
		if resolution, err = strconv.Atoi(s); err != nil || resolution < 1 {
			return 0, 0, 0, "", eris.New("invalid resolution")
		}
	}
	projName = v.Get("projection")
	if projName == "" {
		projName = "equirectangular"
	}
	if _, err = projection.New(projName, width, height); err != nil {
		return 0, 0, 0, "", err
	}
	return width, height, resolution, projName, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&topologyPath, "topology", "", "topology file (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
