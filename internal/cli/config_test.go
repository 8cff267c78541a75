package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/refbump/pkg/errors"
	"github.com/matzehuels/refbump/pkg/integrations/nuget"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, nuget.DefaultServiceIndex, cfg.Registry.URL)
	assert.Equal(t, defaultCacheTTL, cfg.Registry.CacheTTL.Duration)
	assert.Equal(t, "GITHUB_TOKEN", cfg.GitHub.TokenEnv)
	assert.Equal(t, "refbump", cfg.History.Database)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
[registry]
url = "https://nuget.example.com/v3/index.json"
cache_ttl = "90m"

[cache]
redis_url = "redis://localhost:6379/0"

[history]
mongo_uri = "mongodb://localhost:27017"

[github]
token_env = "REFBUMP_TOKEN"

[update]
workers = 4
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://nuget.example.com/v3/index.json", cfg.Registry.URL)
	assert.Equal(t, 90*time.Minute, cfg.Registry.CacheTTL.Duration)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, "mongodb://localhost:27017", cfg.History.MongoURI)
	assert.Equal(t, "refbump", cfg.History.Database, "unset keys keep defaults")
	assert.Equal(t, 4, cfg.Update.Workers)

	t.Setenv("REFBUMP_TOKEN", "s3cret")
	assert.Equal(t, "s3cret", cfg.token())
}

func TestLoadConfigFromXDG(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "refbump"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(base, "refbump", "config.toml"), []byte("[update]\nworkers = 2\n"), 0o600))

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Update.Workers)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "[registry]\nurl = \"x\"\ntimeout = 3\n"},
		{"bad duration", "[registry]\ncache_ttl = \"soon\"\n"},
		{"negative workers", "[update]\nworkers = -1\n"},
		{"syntax", "[registry\n"},
		{"registry url scheme", "[registry]\nurl = \"ftp://feed\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body))
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "got %v", err)
		})
	}

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err, "an explicit config path must exist")
}
