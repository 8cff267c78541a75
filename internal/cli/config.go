package cli

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/refbump/pkg/errors"
	"github.com/matzehuels/refbump/pkg/history"
	"github.com/matzehuels/refbump/pkg/integrations/nuget"
)

const (
	defaultCacheTTL = 6 * time.Hour
	defaultTokenEnv = "GITHUB_TOKEN"
)

// Config is the user configuration read from config.toml. Flags override
// file values.
type Config struct {
	Registry RegistryConfig `toml:"registry"`
	Cache    CacheConfig    `toml:"cache"`
	History  HistoryConfig  `toml:"history"`
	GitHub   GitHubConfig   `toml:"github"`
	Update   UpdateConfig   `toml:"update"`
}

type RegistryConfig struct {
	URL      string   `toml:"url"`
	CacheTTL duration `toml:"cache_ttl"`
}

type CacheConfig struct {
	// RedisURL shares registry responses through Redis instead of the
	// local cache directory.
	RedisURL string `toml:"redis_url"`
}

type HistoryConfig struct {
	// MongoURI stores run history in MongoDB instead of local files.
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

type GitHubConfig struct {
	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `toml:"token_env"`
}

type UpdateConfig struct {
	Workers int `toml:"workers"`
}

// duration decodes TOML strings such as "90m" or "6h".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

// defaultConfig returns the values used when no file overrides them.
func defaultConfig() Config {
	return Config{
		Registry: RegistryConfig{URL: nuget.DefaultServiceIndex, CacheTTL: duration{defaultCacheTTL}},
		History:  HistoryConfig{Database: history.DefaultDatabase},
		GitHub:   GitHubConfig{TokenEnv: defaultTokenEnv},
	}
}

// loadConfig reads path over the defaults. An empty path reads the default
// location, where a missing file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && stderrors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
	}
	if err := errors.ValidateURL(cfg.Registry.URL); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s: registry.url", path)
	}
	if cfg.Update.Workers < 0 {
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "%s: update.workers must not be negative", path)
	}
	return cfg, nil
}

// token returns the GitHub token from the configured environment variable.
func (c Config) token() string {
	return os.Getenv(c.GitHub.TokenEnv)
}

// configDir returns the config directory using XDG standard (~/.config/refbump/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
