// Package config defines the engine's configuration structures and loading.
// Plain data types plus validation; components receive their own sub-struct
// and never read viper state directly.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/WinWin-Intelligence/internal/application/roadmap"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/graphexport"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// CacheConfig selects and tunes the valuation cache.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string `mapstructure:"backend"`
}

// RedisConfig holds Redis connection parameters, used when the cache backend
// is "redis".
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// ListenAddr serves /metrics when Enabled, e.g. ":9090".
	ListenAddr string `mapstructure:"listen_addr"`
	Namespace  string `mapstructure:"namespace"`
}

// ExportConfig controls the optional Neo4j hypergraph mirror.
type ExportConfig struct {
	Enabled bool                    `mapstructure:"enabled"`
	Neo4j   graphexport.StoreConfig `mapstructure:"neo4j"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration for the engine binary.
type Config struct {
	Log       logging.LogConfig `mapstructure:"log"`
	Optimizer roadmap.Tunables  `mapstructure:"optimizer"`
	Cache     CacheConfig       `mapstructure:"cache"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
	Export    ExportConfig      `mapstructure:"export"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found.  Any error is fatal at startup.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("log.format %q is invalid; expected json|console", c.Log.Format))
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("cache.backend %q is invalid; expected memory|redis", c.Cache.Backend))
	}
	if c.Cache.Backend == "redis" {
		if c.Redis.Addr == "" {
			return errors.New(errors.CodeConfigInvalid, "redis.addr is required when cache.backend is redis")
		}
		if c.Redis.DB < 0 {
			return errors.New(errors.CodeConfigInvalid,
				fmt.Sprintf("redis.db must be >= 0, got %d", c.Redis.DB))
		}
	}

	if c.Optimizer.LookaheadDepth < 0 {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("optimizer.lookahead_depth must be >= 0, got %d", c.Optimizer.LookaheadDepth))
	}
	if c.Optimizer.MaxBranches < 0 {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("optimizer.max_branches must be >= 0, got %d", c.Optimizer.MaxBranches))
	}
	if c.Optimizer.WeightOwnValue < 0 || c.Optimizer.WeightWinFlip < 0 || c.Optimizer.WeightConnectivity < 0 {
		return errors.New(errors.CodeConfigInvalid, "optimizer weights must be non-negative")
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return errors.New(errors.CodeConfigInvalid, "metrics.listen_addr is required when metrics are enabled")
	}

	if c.Export.Enabled && c.Export.Neo4j.URI == "" {
		return errors.New(errors.CodeConfigInvalid, "export.neo4j.uri is required when export is enabled")
	}

	return nil
}
