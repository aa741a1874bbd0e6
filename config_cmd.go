package main

import (
	"github.com/spf13/cobra"

	"github.com/wnmlab/sharepoint-go/internal/config"
)

// redacted replaces secrets in `config show` output.
const redacted = "<redacted>"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := cliContextFrom(cmd.Context())

	if cc.JSON {
		cfg := *cc.Cfg.Config
		if cfg.Auth.ClientSecret != "" {
			cfg.Auth.ClientSecret = redacted
		}

		return printJSON(cc.Out, &cfg)
	}

	return config.RenderEffective(cc.Cfg, cc.Out)
}
