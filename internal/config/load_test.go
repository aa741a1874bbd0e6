package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

const fullConfig = `
log_level = "debug"

[auth]
tenant_id = "tenant-1"
client_id = "client-1"
client_secret = "s3cret"
page_size = 50

[move]
buffer_fraction = 0.5
max_buffer = "512MiB"
recovery_timeout = "90s"
verify_restore = false

[journal]
path = "/var/lib/sharepoint-go/journal.db"

[sites.HORTA]
site_id = "contoso.sharepoint.com,aaa,bbb"
drive_id = "b!xyz"
site_url = "https://contoso.sharepoint.com/sites/horta"

[sites.archive]
site_id = "contoso.sharepoint.com,ccc,ddd"
drive_id = "b!abc"
`

func TestLoad_ValidFullConfig(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "tenant-1", cfg.Auth.TenantID)
	assert.Equal(t, "s3cret", cfg.Auth.ClientSecret)
	assert.Equal(t, 50, cfg.Auth.PageSize)
	assert.Equal(t, defaultScope, cfg.Auth.Scope, "unset keys keep defaults")
	assert.Equal(t, defaultAPIBaseURL, cfg.Auth.APIBaseURL)
	assert.InDelta(t, 0.5, cfg.Move.BufferFraction, 1e-9)
	assert.False(t, cfg.Move.VerifyRestore)
	assert.Equal(t, "/var/lib/sharepoint-go/journal.db", cfg.JournalPath())

	maxBuf, err := cfg.MaxBufferBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(512*1024*1024), maxBuf)
	assert.Equal(t, "1m30s", cfg.Move.RecoveryTimeoutDuration().String())

	assert.Equal(t, []string{"HORTA", "archive"}, cfg.SiteNames())

	site, err := cfg.Site("HORTA")
	require.NoError(t, err)
	assert.Equal(t, "b!xyz", site.DriveID)
	assert.Equal(t, "https://contoso.sharepoint.com/sites/horta", site.SiteURL)
}

func TestLoad_MinimalUsesDefaults(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, "\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_UnknownKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"top level typo", `log_levl = "info"`, `unknown config key "log_levl", did you mean "log_level"?`},
		{"auth typo", "[auth]\nclient_secrt = \"x\"", `unknown key in [auth] "client_secrt", did you mean "client_secret"?`},
		{"site typo", "[sites.a]\nsite_id = \"s\"\ndrive_id = \"d\"\ndriveid = \"d\"", `unknown key in [sites.a] "driveid", did you mean "drive_id"?`},
		{"no suggestion", `completely_unrelated = 1`, `unknown config key "completely_unrelated"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTestConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"log level", `log_level = "loud"`, "log_level"},
		{"fraction zero", "[move]\nbuffer_fraction = 0.0", "buffer_fraction"},
		{"fraction above one", "[move]\nbuffer_fraction = 1.5", "buffer_fraction"},
		{"bad size", "[move]\nmax_buffer = \"lots\"", "max_buffer"},
		{"bad timeout", "[move]\nrecovery_timeout = \"soon\"", "recovery_timeout"},
		{"page size", "[auth]\npage_size = 5000", "page_size"},
		{"base url", "[auth]\napi_base_url = \"graph\"", "api_base_url"},
		{"missing site id", "[sites.a]\ndrive_id = \"d\"", "site_id"},
		{"missing drive id", "[sites.a]\nsite_id = \"s\"", "drive_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTestConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ReportsAllErrors(t *testing.T) {
	_, err := Load(writeTestConfig(t, "log_level = \"loud\"\n[sites.a]\ndrive_id = \"d\""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "[sites.a]")
}

func TestLoad_MalformedTOML(t *testing.T) {
	_, err := Load(writeTestConfig(t, "[auth\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSite_Lookup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sites["HORTA"] = SiteConfig{SiteID: "s", DriveID: "d"}
	cfg.Sites["Archive"] = SiteConfig{SiteID: "s2", DriveID: "d2"}

	got, err := cfg.Site("horta")
	require.NoError(t, err)
	assert.Equal(t, "s", got.SiteID)

	_, err = cfg.Site("missing")
	require.ErrorIs(t, err, ErrUnknownSite)
	assert.Contains(t, err.Error(), "Archive, HORTA")

	_, err = DefaultConfig().Site("any")
	require.ErrorIs(t, err, ErrUnknownSite)
	assert.Contains(t, err.Error(), "no sites configured")
}

func TestResolve_Precedence(t *testing.T) {
	path := writeTestConfig(t, fullConfig)

	env := EnvOverrides{
		ConfigPath:   path,
		Site:         "archive",
		ClientSecret: "from-env",
		LogLevel:     "warn",
	}

	r, err := Resolve(env, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, path, r.Path)
	assert.Equal(t, "archive", r.Site)
	assert.Equal(t, "from-env", r.Auth.ClientSecret, "env beats file")
	assert.Equal(t, "warn", r.LogLevel)
	assert.Equal(t, "client-1", r.Auth.ClientID, "file value kept when env is empty")

	r, err = Resolve(env, CLIOverrides{Site: "HORTA", LogLevel: "error"})
	require.NoError(t, err)
	assert.Equal(t, "HORTA", r.Site, "CLI beats env")
	assert.Equal(t, "error", r.LogLevel)
}

func TestResolve_CLIConfigPathWins(t *testing.T) {
	envPath := writeTestConfig(t, `log_level = "debug"`)
	cliPath := writeTestConfig(t, `log_level = "error"`)

	r, err := Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{ConfigPath: cliPath})
	require.NoError(t, err)
	assert.Equal(t, "error", r.LogLevel)
}

func TestResolve_UnknownSite(t *testing.T) {
	path := writeTestConfig(t, fullConfig)

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path, Site: "nope"})
	require.ErrorIs(t, err, ErrUnknownSite)
}

func TestResolve_InvalidOverride(t *testing.T) {
	path := writeTestConfig(t, fullConfig)

	_, err := Resolve(EnvOverrides{LogLevel: "chatty"}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestValidateCredentials(t *testing.T) {
	a := DefaultConfig().Auth
	err := ValidateCredentials(&a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant_id")
	assert.Contains(t, err.Error(), "client_secret")

	a.TenantID, a.ClientID, a.ClientSecret = "t", "c", "s"
	assert.NoError(t, ValidateCredentials(&a))
}
