package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/graftwood/pkg/cache"
	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/provider"
	"github.com/matzehuels/graftwood/pkg/query"
	"github.com/matzehuels/graftwood/pkg/tree"
	"github.com/matzehuels/graftwood/pkg/tree/balance"
)

// Cache backends selectable in [cache].
const (
	backendFile  = "file"
	backendRedis = "redis"
	backendNone  = "none"
)

// Environment overrides, usually set through a .env file.
const (
	envCacheBackend  = "GRAFTWOOD_CACHE"
	envRedisAddr     = "GRAFTWOOD_REDIS_ADDR"
	envRedisPassword = "GRAFTWOOD_REDIS_PASSWORD"
)

// Config is the contents of config.toml.
//
//	depth = 2
//
//	[balance]
//	max_children_per_level = [20, 10]
//	label_truncate_count = 3
//
//	[balance.style]
//	fill_color = "lightgrey"
//
//	[sql]
//	row_limit = 200
//	[sql.macros]
//	"query.people" = "SELECT * FROM people WHERE age >= ${min_age}"
//	min_age = "18"
//	[[sql.clauses]]
//	name = "city"
//	template = "city = ${city}"
//
//	[mongo]
//	document_limit = 100
//
//	[cache]
//	backend = "redis"
//	ttl = "12h"
//	prefix = "graftwood:staging:"
//	[cache.redis]
//	addr = "localhost:6379"
type Config struct {
	Depth    int           `toml:"depth"`
	MaxBytes int           `toml:"max_bytes"`
	Balance  BalanceConfig `toml:"balance"`
	SQL      SQLConfig     `toml:"sql"`
	Mongo    MongoConfig   `toml:"mongo"`
	Cache    CacheConfig   `toml:"cache"`
	Server   ServerConfig  `toml:"server"`
}

// BalanceConfig holds the hierarchizer limits and the group node style.
type BalanceConfig struct {
	balance.Config
	Style tree.Style `toml:"style"`
}

// SQLConfig holds statement macros and narrowing clauses.
type SQLConfig struct {
	RowLimit int               `toml:"row_limit"`
	Macros   map[string]string `toml:"macros"`
	Clauses  []query.Clause    `toml:"clauses"`
}

// MongoConfig limits document listings.
type MongoConfig struct {
	DocumentLimit int `toml:"document_limit"`
}

// CacheConfig selects where fetched documents are cached.
type CacheConfig struct {
	Backend string            `toml:"backend"`
	TTL     duration          `toml:"ttl"`
	Prefix  string            `toml:"prefix"` // Redis key prefix
	Redis   cache.RedisConfig `toml:"redis"`
}

// ServerConfig configures "graftwood serve".
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// duration decodes TOML strings such as "24h".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// defaultConfig returns the configuration used without a config file.
func defaultConfig() Config {
	return Config{
		Balance: BalanceConfig{Config: balance.DefaultConfig()},
		Cache:   CacheConfig{Backend: backendFile, Prefix: appName + ":"},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// loadConfig reads path over the defaults. A missing file at the default
// location is not an error; a missing file named with --config is.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		case err != nil:
			return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read config %s", path)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				return Config{}, errs.New(errs.ErrCodeInvalidConfig, "unknown config key %s in %s", undecoded[0], path)
			}
		}
	}
	cfg.applyEnv()
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envCacheBackend); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv(envRedisAddr); v != "" {
		c.Cache.Redis.Addr = v
		if os.Getenv(envCacheBackend) == "" {
			c.Cache.Backend = backendRedis
		}
	}
	if v := os.Getenv(envRedisPassword); v != "" {
		c.Cache.Redis.Password = v
	}
}

func (c Config) validate() error {
	if err := c.Balance.Validate(); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "[balance]")
	}
	switch c.Cache.Backend {
	case backendFile, backendNone:
	case backendRedis:
		if c.Cache.Redis.Addr == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "[cache] redis backend needs redis.addr or %s", envRedisAddr)
		}
	default:
		return errs.New(errs.ErrCodeInvalidConfig, "[cache] unknown backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Depth < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "depth must not be negative, got %d", c.Depth)
	}
	seen := make(map[string]bool, len(c.SQL.Clauses))
	for i, cl := range c.SQL.Clauses {
		if cl.Name == "" || cl.Template == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "[[sql.clauses]] entry %d needs a name and a template", i+1)
		}
		if seen[cl.Name] {
			return errs.New(errs.ErrCodeInvalidConfig, "[[sql.clauses]] %q is defined twice", cl.Name)
		}
		seen[cl.Name] = true
	}
	return nil
}

// providerOptions turns the configuration into provider options.
func (c Config) providerOptions() provider.Options {
	return provider.Options{
		Balance:       c.Balance.Config,
		GroupStyle:    c.Balance.Style,
		Depth:         c.Depth,
		RowLimit:      c.SQL.RowLimit,
		DocumentLimit: c.Mongo.DocumentLimit,
		MaxBytes:      c.MaxBytes,
		Macros:        c.SQL.Macros,
		Clauses:       c.SQL.Clauses,
	}
}

// configPath returns the default config file using the XDG standard
// (~/.config/graftwood/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate config: %w", err)
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
