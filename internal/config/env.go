package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for overrides.
const (
	EnvConfig       = "SHAREPOINT_GO_CONFIG"
	EnvSite         = "SHAREPOINT_GO_SITE"
	EnvTenantID     = "SHAREPOINT_GO_TENANT_ID"
	EnvClientID     = "SHAREPOINT_GO_CLIENT_ID"
	EnvClientSecret = "SHAREPOINT_GO_CLIENT_SECRET"
	EnvLogLevel     = "SHAREPOINT_GO_LOG_LEVEL"
	EnvJournal      = "SHAREPOINT_GO_JOURNAL"
	EnvDotenv       = "SHAREPOINT_GO_DOTENV"
)

// defaultDotenvFile is read from the working directory when present.
const defaultDotenvFile = ".env"

// EnvOverrides holds values derived from the environment and .env file.
// Empty fields mean "not set".
type EnvOverrides struct {
	ConfigPath   string
	Site         string
	TenantID     string
	ClientID     string
	ClientSecret string
	LogLevel     string
	JournalPath  string
}

// ReadEnvOverrides reads the .env file (SHAREPOINT_GO_DOTENV, else ./.env)
// and the process environment. Process variables win over .env entries.
// A missing .env file is not an error.
func ReadEnvOverrides() (EnvOverrides, error) {
	dotenvPath := os.Getenv(EnvDotenv)
	explicit := dotenvPath != ""

	if !explicit {
		dotenvPath = defaultDotenvFile
	}

	file, err := godotenv.Read(dotenvPath)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			file = nil
		} else {
			return EnvOverrides{}, fmt.Errorf("reading %s: %w", dotenvPath, err)
		}
	}

	return envOverridesFrom(func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}

		return file[key]
	}), nil
}

func envOverridesFrom(get func(string) string) EnvOverrides {
	return EnvOverrides{
		ConfigPath:   get(EnvConfig),
		Site:         get(EnvSite),
		TenantID:     get(EnvTenantID),
		ClientID:     get(EnvClientID),
		ClientSecret: get(EnvClientSecret),
		LogLevel:     get(EnvLogLevel),
		JournalPath:  get(EnvJournal),
	}
}

// apply copies the set fields onto cfg.
func (e EnvOverrides) apply(cfg *Config) {
	setIf(&cfg.Auth.TenantID, e.TenantID)
	setIf(&cfg.Auth.ClientID, e.ClientID)
	setIf(&cfg.Auth.ClientSecret, e.ClientSecret)
	setIf(&cfg.LogLevel, e.LogLevel)
	setIf(&cfg.Journal.Path, e.JournalPath)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
