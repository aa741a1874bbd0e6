package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffective(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.TenantID = "tenant-1"
	cfg.Auth.ClientSecret = "do-not-print"
	cfg.Journal.Path = "/tmp/journal.db"
	cfg.Sites["HORTA"] = SiteConfig{SiteID: "s1", DriveID: "d1", SiteURL: "https://contoso.sharepoint.com/sites/horta"}
	cfg.Sites["archive"] = SiteConfig{SiteID: "s2", DriveID: "d2"}

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(&Resolved{Config: cfg, Path: "/etc/sp.toml", Site: "HORTA"}, &buf))

	out := buf.String()
	assert.Contains(t, out, "file: /etc/sp.toml")
	assert.Contains(t, out, `tenant_id = "tenant-1"`)
	assert.Contains(t, out, `client_secret = "<redacted>"`)
	assert.NotContains(t, out, "do-not-print")
	assert.Contains(t, out, `path = "/tmp/journal.db"`)
	assert.Contains(t, out, "[sites.HORTA]  # selected")
	assert.Contains(t, out, "[sites.archive]\n")
	assert.Contains(t, out, `buffer_fraction = 0.2`)
}
