package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/graftwood/pkg/buildinfo"
	"github.com/matzehuels/graftwood/pkg/cache"
	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/provider"
	"github.com/matzehuels/graftwood/pkg/provider/builtin"
	"github.com/matzehuels/graftwood/pkg/source"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "graftwood"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configFile string
	noCache    bool
	refresh    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Graftwood browses documents and databases as lazily grown trees",
		Long:         `Graftwood turns text outlines, XML, Graphviz graphs, ontologies, SQL and MongoDB databases into trees whose branches are fetched on demand and grafted in place.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/graftwood/config.toml)")
	flags.BoolVar(&c.noCache, "no-cache", false, "do not cache fetched documents")
	flags.BoolVar(&c.refresh, "refresh", false, "refetch remote documents even when cached")

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.expandCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Workspace Factory
// =============================================================================

// workspace bundles what a command needs to build trees from one
// configuration.
type workspace struct {
	cfg     Config
	cache   cache.Cache
	fetcher *source.Fetcher
	logger  *log.Logger
}

// config loads --config, or the default config file when it exists. It
// returns the path that was consulted.
func (c *CLI) config() (Config, string, error) {
	path, explicit := c.configFile, c.configFile != ""
	if !explicit {
		var err error
		if path, err = configPath(); err != nil {
			c.Logger.Debug("no config directory", "err", err)
		}
	}
	cfg, err := loadConfig(path, explicit)
	return cfg, path, err
}

// open loads the configuration and the document cache.
func (c *CLI) open(ctx context.Context) (*workspace, error) {
	cfg, path, err := c.config()
	if err != nil {
		return nil, err
	}

	store, err := newCache(ctx, cfg.Cache, c.noCache)
	if err != nil {
		return nil, err
	}
	ttl := cfg.Cache.TTL.Duration
	if ttl <= 0 {
		ttl = source.DefaultTTL
	}
	fetcher := source.NewFetcher(store, ttl)
	if cfg.Cache.Backend == backendRedis {
		fetcher = fetcher.WithKeyer(cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Cache.Prefix))
	}
	fetcher.Refresh = c.refresh
	fetcher.Logger = c.Logger
	c.Logger.Debug("workspace ready", "config", path, "cache", cfg.Cache.Backend, "ttl", ttl)

	return &workspace{cfg: cfg, cache: store, fetcher: fetcher, logger: c.Logger}, nil
}

// newRegistry creates a registry of every builtin format. Each tree session
// gets its own registry so backend connections and recursion guards are not
// shared between sessions.
func (w *workspace) newRegistry() *provider.Registry {
	opts := w.cfg.providerOptions()
	opts.Logger = w.logger
	opts.Fetcher = w.fetcher
	return builtin.NewRegistry(opts)
}

// newEngine returns an engine over a fresh registry. Closing the registry
// releases the backend sessions the engine opened.
func (w *workspace) newEngine() (*mount.Engine, *provider.Registry) {
	reg := w.newRegistry()
	return mount.NewEngine(reg, w.logger), reg
}

func (w *workspace) Close() error {
	return w.cache.Close()
}

func newCache(ctx context.Context, cfg CacheConfig, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Backend == backendNone {
		return cache.NewNullCache(), nil
	}
	if cfg.Backend == backendRedis {
		rc, err := cache.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "document cache")
		}
		return rc, nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/graftwood/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	return cache.DefaultDir()
}
