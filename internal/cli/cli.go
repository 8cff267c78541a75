// Package cli implements the refbump command-line interface.
package cli

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/refbump/pkg/buildinfo"
	"github.com/matzehuels/refbump/pkg/cache"
	"github.com/matzehuels/refbump/pkg/history"
	"github.com/matzehuels/refbump/pkg/integrations/nuget"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "refbump"

	// redisPrefix namespaces refbump keys in a shared Redis.
	redisPrefix = "refbump:"
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

	configPath string
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
		Short:        "refbump keeps NuGet package references up to date",
		Long:         `refbump rewrites PackageReference versions in .NET project files, either floating every package forward or applying an explicit migration, and writes the result locally or as a GitHub pull request.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/refbump/config.toml)")

	root.AddCommand(c.updateCommand())
	root.AddCommand(c.migrateCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) config() (Config, error) {
	return loadConfig(c.configPath)
}

// =============================================================================
// Factories
// =============================================================================

// newCache returns the response cache: Redis when configured, otherwise the
// local cache directory.
func (c *CLI) newCache(ctx context.Context, cfg Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.RedisURL != "" {
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL, redisPrefix)
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newFeed creates the NuGet client for cfg. Responses from feeds other than
// nuget.org are cached under the feed's host.
func newFeed(c cache.Cache, cfg Config) *nuget.Client {
	client := nuget.NewClient(c, cfg.Registry.CacheTTL.Duration, cfg.Registry.URL)
	if cfg.Registry.URL != nuget.DefaultServiceIndex {
		if u, err := url.Parse(cfg.Registry.URL); err == nil && u.Host != "" {
			client.SetKeyer(cache.NewScopedKeyer(nil, u.Host+":"))
		}
	}
	return client
}

// newHistory opens the run history store: MongoDB when configured,
// otherwise JSON files in the config directory.
func newHistory(ctx context.Context, cfg Config) (history.Store, error) {
	if cfg.History.MongoURI != "" {
		return history.NewMongoStore(ctx, cfg.History.MongoURI, cfg.History.Database)
	}
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return history.NewFileStore(filepath.Join(dir, "history"))
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/refbump/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
