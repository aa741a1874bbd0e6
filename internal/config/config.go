// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for sharepoint-go. Values resolve through
// a layered override chain: defaults -> config file -> .env file ->
// environment -> CLI flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownSite is returned when a site name has no [sites.NAME] table.
var ErrUnknownSite = errors.New("config: unknown site")

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	LogLevel string                `toml:"log_level" json:"log_level"`
	Auth     AuthConfig            `toml:"auth" json:"auth"`
	Move     MoveConfig            `toml:"move" json:"move"`
	Journal  JournalConfig         `toml:"journal" json:"journal"`
	Sites    map[string]SiteConfig `toml:"sites" json:"sites"`
}

// AuthConfig holds the app registration used for the client-credentials
// grant, plus the Graph endpoint settings.
type AuthConfig struct {
	TenantID     string `toml:"tenant_id" json:"tenant_id"`
	ClientID     string `toml:"client_id" json:"client_id"`
	ClientSecret string `toml:"client_secret" json:"client_secret"`
	Scope        string `toml:"scope" json:"scope"`
	Authority    string `toml:"authority" json:"authority"`
	APIBaseURL   string `toml:"api_base_url" json:"api_base_url"`
	PageSize     int    `toml:"page_size" json:"page_size"`
	TokenCache   string `toml:"token_cache" json:"token_cache"`
}

// MoveConfig bounds the in-memory backup taken by a safe move.
type MoveConfig struct {
	BufferFraction  float64 `toml:"buffer_fraction" json:"buffer_fraction"`
	MaxBuffer       string  `toml:"max_buffer" json:"max_buffer"`
	RecoveryTimeout string  `toml:"recovery_timeout" json:"recovery_timeout"`
	VerifyRestore   bool    `toml:"verify_restore" json:"verify_restore"`
}

// JournalConfig locates the move journal database.
type JournalConfig struct {
	Path     string `toml:"path" json:"path"`
	Disabled bool   `toml:"disabled" json:"disabled"`
}

// SiteConfig addresses one document library.
type SiteConfig struct {
	SiteID  string `toml:"site_id" json:"site_id"`
	DriveID string `toml:"drive_id" json:"drive_id"`
	SiteURL string `toml:"site_url" json:"site_url"`
}

// Site looks up a named site. Names match case-insensitively; the error for
// an unknown name lists the configured ones.
func (c *Config) Site(name string) (SiteConfig, error) {
	if sc, ok := c.Sites[name]; ok {
		return sc, nil
	}

	for k, sc := range c.Sites {
		if strings.EqualFold(k, name) {
			return sc, nil
		}
	}

	known := c.SiteNames()
	if len(known) == 0 {
		return SiteConfig{}, fmt.Errorf("%w %q: no sites configured", ErrUnknownSite, name)
	}

	return SiteConfig{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownSite, name, strings.Join(known, ", "))
}

// SiteNames returns the configured site names in sorted order.
func (c *Config) SiteNames() []string {
	names := make([]string, 0, len(c.Sites))
	for k := range c.Sites {
		names = append(names, k)
	}

	slices.Sort(names)

	return names
}

// MaxBufferBytes returns the parsed move.max_buffer hard cap; 0 means none.
func (c *Config) MaxBufferBytes() (int64, error) {
	return ParseSize(c.Move.MaxBuffer)
}
