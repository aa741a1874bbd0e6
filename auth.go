package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wnmlab/sharepoint-go/internal/tokenfile"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Check or clear the app-only access token",
	}

	cmd.AddCommand(newAuthCheckCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Acquire a token with the configured client credentials",
		Args:  cobra.NoArgs,
		RunE:  runAuthCheck,
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached access token",
		Args:  cobra.NoArgs,
		RunE:  runAuthLogout,
	}
}

// authCheckOutput is the JSON schema for `auth check --json`.
type authCheckOutput struct {
	TenantID  string `json:"tenant_id"`
	ClientID  string `json:"client_id"`
	ExpiresAt string `json:"expires_at"`
	Cache     string `json:"cache"`
}

func runAuthCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := cliContextFrom(ctx)

	creds, err := cc.credentials()
	if err != nil {
		return err
	}

	if _, err := creds.Token(ctx); err != nil {
		return fmt.Errorf("acquiring token: %w", err)
	}

	expiry := creds.Expiry()
	a := cc.Cfg.Auth

	if cc.JSON {
		return printJSON(cc.Out, authCheckOutput{
			TenantID:  a.TenantID,
			ClientID:  a.ClientID,
			ExpiresAt: expiry.UTC().Format(time.RFC3339),
			Cache:     cc.Cfg.TokenCachePath(),
		})
	}

	fmt.Fprintf(cc.Out, "Tenant:  %s\n", a.TenantID)
	fmt.Fprintf(cc.Out, "Client:  %s\n", a.ClientID)
	fmt.Fprintf(cc.Out, "Expires: %s\n", formatTime(expiry))

	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	cc := cliContextFrom(cmd.Context())
	path := cc.Cfg.TokenCachePath()

	if err := tokenfile.Remove(path); err != nil {
		return err
	}

	cc.Logger.Info("token cache removed", "path", path)
	cc.Statusf("Logged out.\n")

	return nil
}
