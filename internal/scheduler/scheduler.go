// Package scheduler partitions the sampling grid into spacing-aligned column
// chunks, dispatches them to a fixed pool of isolated workers, and reconciles
// the results. Every worker owns its own copy of the preprocessed geometry
// and spatial index; the one-time duplication buys the absence of any shared
// mutable state during classification.
package scheduler

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FWeynschenk/dotsmap/internal/geo"
	"github.com/FWeynschenk/dotsmap/internal/lookup"
	"github.com/FWeynschenk/dotsmap/internal/projection"
)

// Hard cap on pool size; beyond this the per-worker geometry duplication
// costs more than the parallelism returns.
const maxWorkers = 8

// ErrBusy is returned when a grid classification is requested while another
// one is still in flight on the same scheduler.
var ErrBusy = eris.New("scheduler: classification already in progress")

// Options tunes the pool.
type Options struct {
	// Workers bounds the pool size. Zero means min(8, GOMAXPROCS).
	Workers int
}

// worker is one isolated execution context.
type worker struct {
	id         int
	classifier *geo.Classifier
	lookup     *lookup.Map
}

// Scheduler owns the worker pool for one topology.
type Scheduler struct {
	workers []*worker
	busy    atomic.Bool
}

// Output is the aggregate of one grid classification.
type Output struct {
	Dots  []geo.ClassificationResult `json:"dots"`
	Debug geo.DebugInfo              `json:"debugInfo"`
}

// chunkResult pairs a chunk with what its worker produced.
type chunkResult struct {
	Chunk chunk
	Dots  []geo.ClassificationResult
	Debug geo.DebugInfo
}

// New builds the pool: each worker clones the countries and builds its own
// world index, in parallel. The input slice itself is never retained.
func New(ctx context.Context, countries []*geo.Country, opts Options) (*Scheduler, error) {
	if len(countries) == 0 {
		return nil, eris.New("scheduler: empty topology")
	}

	n := opts.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}

	s := &Scheduler{workers: make([]*worker, n)}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "scheduler: init canceled")
			}
			world := geo.BuildWorldIndex(geo.CloneCountries(countries))
			s.workers[i] = &worker{id: i, classifier: geo.NewClassifier(world)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("scheduler: worker pool ready",
		zap.Int("workers", n),
		zap.Int("countries", len(countries)),
	)
	return s, nil
}

// Workers returns the pool size.
func (s *Scheduler) Workers() int { return len(s.workers) }

// BuildLookupMap has the first worker build the raster (reporting progress),
// then broadcasts a copy to every other worker. It returns only once all
// workers hold the map. The build shares the pool's busy flag with
// ClassifyGrid, so an overlapping invocation of either is rejected with
// ErrBusy.
func (s *Scheduler) BuildLookupMap(ctx context.Context, projectionName string, width, height, resolution int, onProgress lookup.ProgressFunc) error {
	proj, err := projection.New(projectionName, width, height)
	if err != nil {
		return err
	}
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	first := s.workers[0]
	m, err := lookup.Build(ctx, first.classifier, proj, width, height, resolution, onProgress)
	if err != nil {
		return err
	}
	first.lookup = m

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range s.workers[1:] {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "scheduler: lookup broadcast canceled")
			}
			w.lookup = m.Clone()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	zap.L().Info("scheduler: lookup map distributed",
		zap.String("projection", projectionName),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("resolution", resolution),
		zap.Int("workers", len(s.workers)),
	)
	return nil
}

// ClassifyGrid runs the full pipeline for one query: chunk the x-axis,
// classify each chunk on its own worker, join all-or-first-failure, then
// apply the two dedup passes. No partial results are returned on failure, and
// overlapping invocations are rejected with ErrBusy.
func (s *Scheduler) ClassifyGrid(ctx context.Context, q Query) (*Output, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	chunks := splitChunks(q.Width, q.Spacing, len(s.workers))
	results := make([]chunkResult, len(chunks))

	// splitChunks yields at most one chunk per worker, so worker i is
	// exclusively owned by chunk i for the duration of the batch.
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		w := s.workers[i]
		g.Go(func() error {
			res, err := w.processChunk(gctx, c, q)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scheduler: classify grid")
	}

	boundaryRemoved := boundaryDedup(results, q.Spacing)

	out := &Output{}
	for _, r := range results {
		out.Dots = append(out.Dots, r.Dots...)
		out.Debug.Add(r.Debug)
	}

	var globalRemoved int
	out.Dots, globalRemoved = globalDedup(out.Dots)

	zap.L().Debug("scheduler: grid classified",
		zap.String("fingerprint", q.Fingerprint()),
		zap.Int("chunks", len(chunks)),
		zap.Int("dots", len(out.Dots)),
		zap.Int("boundary_dedup", boundaryRemoved),
		zap.Int("global_dedup", globalRemoved),
	)
	return out, nil
}

// processChunk samples the chunk's columns in column-major order, inverting
// each point through the projection and classifying it. Uses the worker's
// lookup raster when one matches the query viewport.
func (w *worker) processChunk(ctx context.Context, c chunk, q Query) (chunkResult, error) {
	proj, err := projection.New(q.ProjectionName, q.Width, q.Height)
	if err != nil {
		return chunkResult{}, err
	}

	useLookup := w.lookup.Matches(q.Width, q.Height, q.ProjectionName)
	world := w.classifier.World()
	w.classifier.ResetDebug()

	res := chunkResult{Chunk: c}
	for x := c.StartX; x < c.EndX && x < q.Width; x += q.Spacing {
		if err := ctx.Err(); err != nil {
			return chunkResult{}, eris.Wrap(err, "scheduler: chunk canceled")
		}
		for y := 0; y < q.Height; y += q.Spacing {
			lon, lat, ok := proj.Invert(float64(x), float64(y))
			if !ok {
				continue
			}

			var country *geo.Country
			if useLookup {
				if idx := w.lookup.CountryIndex(float64(x), float64(y)); idx > 0 {
					country = world.Countries[idx-1]
				}
			} else {
				country = w.classifier.Classify(lon, lat)
			}

			if country == nil && !q.IncludeOcean {
				continue
			}

			dot := geo.ClassificationResult{
				X:           float64(x),
				Y:           float64(y),
				Coordinates: &[2]float64{geo.WrapLongitude(lon), lat},
			}
			if country != nil {
				name := country.Name
				dot.CountryName = &name
			}
			res.Dots = append(res.Dots, dot)
		}
	}

	res.Debug = w.classifier.Debug()
	return res, nil
}
