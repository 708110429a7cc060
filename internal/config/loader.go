package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
)

// envPrefix is the environment variable prefix for all engine settings.
const envPrefix = "WINWIN"

// configKeys lists every settable key.  Unmarshal only sees keys viper knows
// about, so each is bound explicitly; without this, env-only settings would
// be invisible to LoadFromEnv.
var configKeys = []string{
	"log.level", "log.format", "log.output_paths", "log.error_output_paths",
	"optimizer.lookahead_depth", "optimizer.weight_own_value",
	"optimizer.weight_win_flip", "optimizer.weight_connectivity",
	"optimizer.exhaustive_threshold", "optimizer.max_branches",
	"optimizer.pool_size", "optimizer.parallel_threshold",
	"cache.backend",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout",
	"redis.write_timeout", "redis.default_ttl", "redis.key_prefix",
	"metrics.enabled", "metrics.listen_addr", "metrics.namespace",
	"export.enabled", "export.neo4j.uri", "export.neo4j.username",
	"export.neo4j.password", "export.neo4j.database",
}

// newViper builds a pre-configured viper instance: YAML file type, WINWIN_
// env prefix, automatic env binding, and a "." → "_" key replacer so nested
// keys like "redis.addr" resolve to "WINWIN_REDIS_ADDR".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges WINWIN_* environment
// overrides, applies defaults for unset fields, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigLoad,
			fmt.Sprintf("reading config file %q", configPath))
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from WINWIN_* environment variables,
// with no config file required.  Preferred for containerised deployments:
//
//	WINWIN_<SECTION>_<FIELD>   e.g.  WINWIN_REDIS_ADDR, WINWIN_LOG_LEVEL
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigLoad, "unmarshalling configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file changes on disk.  Intended for hot-reloading settings
// like log level and optimizer tunables; callers apply only the safe subset
// at runtime.  A change that fails to parse or validate is dropped without
// invoking onChange.
//
// Watch is non-blocking; viper manages the background goroutine.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Callers are expected to have called Load first; the initial read here
	// only primes the watcher.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on error, for use in main() where a
// config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
