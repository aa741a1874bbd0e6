package config

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPaths_XDG(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("XDG variables only apply on Linux")
	}

	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv("XDG_CACHE_HOME", "/xdg/cache")

	assert.Equal(t, filepath.Join("/xdg/config", appName, "config.toml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join("/xdg/data", appName, "journal.db"), DefaultJournalPath())
	assert.Equal(t, filepath.Join("/xdg/cache", appName, "token.json"), DefaultTokenCachePath())
}

func TestConfigPaths_Overrides(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultJournalPath(), cfg.JournalPath())
	assert.Equal(t, DefaultTokenCachePath(), cfg.TokenCachePath())

	cfg.Journal.Path = "/srv/journal.db"
	cfg.Auth.TokenCache = "/srv/token.json"
	assert.Equal(t, "/srv/journal.db", cfg.JournalPath())
	assert.Equal(t, "/srv/token.json", cfg.TokenCachePath())
}
