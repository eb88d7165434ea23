// Package config loads application configuration from config.yaml and the
// environment, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Workers  int            `yaml:"workers" mapstructure:"workers"`
	Topology TopologyConfig `yaml:"topology" mapstructure:"topology"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// TopologyConfig locates the country geometry source.
type TopologyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
	// Format is "geojson" or "shapefile".
	Format string `yaml:"format" mapstructure:"format"`
	// NameField is the attribute carrying the country name in shapefiles.
	NameField string `yaml:"name_field" mapstructure:"name_field"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	// Driver is "sqlite", "postgres", or "memory".
	Driver             string `yaml:"driver" mapstructure:"driver"`
	Path               string `yaml:"path" mapstructure:"path"`
	DatabaseURL        string `yaml:"database_url" mapstructure:"database_url"`
	MemoryEntries      int    `yaml:"memory_entries" mapstructure:"memory_entries"`
	TTLHours           int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	AggressiveTTLHours int    `yaml:"aggressive_ttl_hours" mapstructure:"aggressive_ttl_hours"`
	MaxEntryBytes      int64  `yaml:"max_entry_bytes" mapstructure:"max_entry_bytes"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration for a given mode. "classify" and
// "lookupmap" need a topology source; "serve" additionally needs a usable
// listen port and rate limit.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Topology.Format {
	case "", "geojson", "shapefile":
	default:
		errs = append(errs, "topology.format must be geojson or shapefile")
	}
	switch c.Cache.Driver {
	case "", "memory", "sqlite", "postgres":
	default:
		errs = append(errs, "cache.driver must be memory, sqlite, or postgres")
	}
	if c.Cache.Driver == "postgres" && c.Cache.DatabaseURL == "" {
		errs = append(errs, "cache.database_url is required for the postgres driver")
	}
	if c.Workers < 0 {
		errs = append(errs, "workers must be >= 0")
	}

	switch mode {
	case "classify", "lookupmap", "cache":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.Server.RateLimit <= 0 {
			errs = append(errs, "server.rate_limit must be > 0")
		}
		if c.Server.RateBurst < 1 {
			errs = append(errs, "server.rate_burst must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// setDefaults registers every default on a viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 0) // 0 = min(8, host parallelism)
	v.SetDefault("topology.format", "geojson")
	v.SetDefault("topology.name_field", "NAME")
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "dotsmap-cache.db")
	v.SetDefault("cache.memory_entries", 10)
	v.SetDefault("cache.ttl_hours", 168)
	v.SetDefault("cache.aggressive_ttl_hours", 24)
	v.SetDefault("cache.max_entry_bytes", 8<<20)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOTSMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Default returns the configuration with every default applied and no file or
// environment input. Used by `config init` to emit a starter config.
func Default() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal defaults")
	}
	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
