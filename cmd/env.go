package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/FWeynschenk/dotsmap/internal/cache"
	"github.com/FWeynschenk/dotsmap/internal/config"
	"github.com/FWeynschenk/dotsmap/internal/geo"
	"github.com/FWeynschenk/dotsmap/internal/scheduler"
	"github.com/FWeynschenk/dotsmap/internal/topo"
)

// topologyPath overrides config when set by a flag.
var topologyPath string

// loadTopology reads the configured country geometry source.
func loadTopology(cfg *config.Config) ([]*geo.Country, error) {
	path := cfg.Topology.Path
	if topologyPath != "" {
		path = topologyPath
	}
	if path == "" {
		return nil, eris.New("no topology configured: set topology.path or --topology")
	}

	switch cfg.Topology.Format {
	case "", "geojson":
		return topo.LoadGeoJSONFile(path)
	case "shapefile":
		return topo.LoadShapefile(path, cfg.Topology.NameField)
	default:
		return nil, eris.Errorf("unknown topology format %q", cfg.Topology.Format)
	}
}

// openCache builds the result cache over the configured persistent driver.
func openCache(ctx context.Context, cfg *config.Config) (*cache.Cache, error) {
	opts := cache.Options{
		MemoryEntries: cfg.Cache.MemoryEntries,
		TTL:           time.Duration(cfg.Cache.TTLHours) * time.Hour,
		AggressiveTTL: time.Duration(cfg.Cache.AggressiveTTLHours) * time.Hour,
		MaxEntryBytes: cfg.Cache.MaxEntryBytes,
	}

	var store cache.Store
	switch cfg.Cache.Driver {
	case "memory":
		// no persistent tier
	case "", "sqlite":
		s, err := cache.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		store = s
	case "postgres":
		s, err := cache.NewPostgres(ctx, cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, eris.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}

	if store != nil {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return cache.New(store, opts), nil
}

// newScheduler loads the topology and builds the worker pool.
func newScheduler(ctx context.Context, cfg *config.Config) (*scheduler.Scheduler, error) {
	countries, err := loadTopology(cfg)
	if err != nil {
		return nil, err
	}
	return scheduler.New(ctx, countries, scheduler.Options{Workers: cfg.Workers})
}
