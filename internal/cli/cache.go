package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graftwood/pkg/cache"
	"github.com/matzehuels/graftwood/pkg/source"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the fetched document cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePruneCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheInfoCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.config()
			if err != nil {
				return err
			}

			if cfg.Cache.Backend == backendRedis {
				store, err := newCache(cmd.Context(), cfg.Cache, false)
				if err != nil {
					return err
				}
				defer store.Close()
				count, err := store.(*cache.RedisCache).Clear(cmd.Context(), cfg.Cache.Prefix)
				if err != nil {
					return fmt.Errorf("clear redis cache: %w", err)
				}
				printSuccess("Cleared %d cached entries", count)
				printDetail("Redis: %s (prefix %q)", cfg.Cache.Redis.Addr, cfg.Cache.Prefix)
				return nil
			}

			fc, ok, err := openFileCache()
			if err != nil || !ok {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

// cachePruneCommand creates the "cache prune" subcommand.
func (c *CLI) cachePruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired entries from the file cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, ok, err := openFileCache()
			if err != nil || !ok {
				return err
			}
			count, err := fc.Prune()
			if err != nil {
				return err
			}
			printSuccess("Pruned %d expired entries", count)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}

// cacheInfoCommand creates the "cache info" subcommand.
func (c *CLI) cacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the cache configuration in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := c.config()
			if err != nil {
				return err
			}

			backend := cfg.Cache.Backend
			if c.noCache {
				backend = backendNone
			}
			ttl := cfg.Cache.TTL.Duration
			if ttl <= 0 {
				ttl = source.DefaultTTL
			}

			printKeyValue("config", path)
			printKeyValue("backend", backend)
			printKeyValue("ttl", ttl.String())
			switch backend {
			case backendFile:
				fc, ok, err := openFileCache()
				if err != nil {
					return err
				}
				dir, _ := cacheDir()
				printKeyValue("directory", dir)
				if ok {
					st, err := fc.Stats()
					if err != nil {
						return err
					}
					printKeyValue("entries", fmt.Sprintf("%d (%d expired)", st.Entries, st.Expired))
					printKeyValue("size", fmt.Sprintf("%.1f KiB", float64(st.Bytes)/1024))
				}
			case backendRedis:
				printKeyValue("address", cfg.Cache.Redis.Addr)
				printKeyValue("prefix", cfg.Cache.Prefix)
			}
			return nil
		},
	}
}

// openFileCache opens the CLI file cache. ok is false when the directory
// does not exist yet, in which case an info line has been printed.
func openFileCache() (*cache.FileCache, bool, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, false, fmt.Errorf("get cache dir: %w", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		printInfo("Cache is empty")
		return nil, false, nil
	}
	store, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, false, err
	}
	return store.(*cache.FileCache), true, nil
}
