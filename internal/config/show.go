package config

import (
	"fmt"
	"io"
)

const redacted = "<redacted>"

// RenderEffective writes the resolved configuration as TOML-like text to w.
// The client secret is never printed.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", r.Path)
	ew.printf("log_level = %q\n\n", r.LogLevel)

	renderAuth(ew, &r.Auth)
	renderMove(ew, &r.Move)

	ew.printf("[journal]\n")
	ew.printf("path = %q\n", r.JournalPath())
	ew.printf("disabled = %t\n\n", r.Journal.Disabled)

	for _, name := range r.SiteNames() {
		sc := r.Sites[name]
		marker := ""

		if name == r.Site {
			marker = "  # selected"
		}

		ew.printf("[sites.%s]%s\n", name, marker)
		ew.printf("site_id = %q\n", sc.SiteID)
		ew.printf("drive_id = %q\n", sc.DriveID)

		if sc.SiteURL != "" {
			ew.printf("site_url = %q\n", sc.SiteURL)
		}

		ew.printf("\n")
	}

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderAuth(ew *errWriter, a *AuthConfig) {
	secret := ""
	if a.ClientSecret != "" {
		secret = redacted
	}

	ew.printf("[auth]\n")
	ew.printf("tenant_id = %q\n", a.TenantID)
	ew.printf("client_id = %q\n", a.ClientID)
	ew.printf("client_secret = %q\n", secret)
	ew.printf("scope = %q\n", a.Scope)
	ew.printf("authority = %q\n", a.Authority)
	ew.printf("api_base_url = %q\n", a.APIBaseURL)
	ew.printf("page_size = %d\n\n", a.PageSize)
}

func renderMove(ew *errWriter, m *MoveConfig) {
	ew.printf("[move]\n")
	ew.printf("buffer_fraction = %g\n", m.BufferFraction)
	ew.printf("max_buffer = %q\n", m.MaxBuffer)
	ew.printf("recovery_timeout = %q\n", m.RecoveryTimeout)
	ew.printf("verify_restore = %t\n\n", m.VerifyRestore)
}
