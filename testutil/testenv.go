// Package testutil provides shared environment helpers for live end-to-end
// tests. E2E tests cannot import internal/, so nothing here does either.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// AllowedSitesEnv names the comma-separated list of site names live tests
// may write to.
const AllowedSitesEnv = "SHAREPOINT_GO_ALLOWED_TEST_SITES"

// LoadDotEnv loads KEY=VALUE pairs from the .env file at envPath.
// A missing file is not an error (CI sets env vars directly). Existing
// env vars take precedence over .env values.
func LoadDotEnv(envPath string) error {
	if _, err := os.Stat(envPath); err != nil {
		return nil
	}

	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("loading %s: %w", envPath, err)
	}

	return nil
}

// ValidateAllowlist crashes the process if AllowedSitesEnv is not set or
// if the site named by siteEnvVar is not in it.
func ValidateAllowlist(siteEnvVar string) {
	allowlist := os.Getenv(AllowedSitesEnv)
	if allowlist == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", AllowedSitesEnv)
		fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable.")
		fmt.Fprintf(os.Stderr, "Example: %s=sandbox\n", AllowedSitesEnv)
		os.Exit(1)
	}

	site := os.Getenv(siteEnvVar)
	if site == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", siteEnvVar)
		os.Exit(1)
	}

	if !Allowed(allowlist, site) {
		fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in %s=%q\n",
			siteEnvVar, site, AllowedSitesEnv, allowlist)
		os.Exit(1)
	}
}

// Allowed reports whether site appears in the comma-separated allowlist.
func Allowed(allowlist, site string) bool {
	for _, a := range strings.Split(allowlist, ",") {
		if strings.EqualFold(strings.TrimSpace(a), site) {
			return true
		}
	}

	return false
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
