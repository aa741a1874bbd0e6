package main

import (
	"github.com/spf13/cobra"
)

func newSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the configured sites",
		Args:  cobra.NoArgs,
		RunE:  runSites,
	}
}

// siteJSON is the JSON output schema for one configured site.
type siteJSON struct {
	Name     string `json:"name"`
	SiteID   string `json:"site_id"`
	DriveID  string `json:"drive_id"`
	SiteURL  string `json:"site_url,omitempty"`
	Selected bool   `json:"selected"`
}

func runSites(cmd *cobra.Command, _ []string) error {
	cc := cliContextFrom(cmd.Context())
	selected, _ := cc.siteName()

	out := make([]siteJSON, 0, len(cc.Cfg.Sites))

	for _, name := range cc.Cfg.SiteNames() {
		site := cc.Cfg.Sites[name]
		out = append(out, siteJSON{
			Name:     name,
			SiteID:   site.SiteID,
			DriveID:  site.DriveID,
			SiteURL:  site.SiteURL,
			Selected: name == selected,
		})
	}

	if cc.JSON {
		return printJSON(cc.Out, out)
	}

	rows := make([][]string, 0, len(out))

	for _, s := range out {
		mark := ""
		if s.Selected {
			mark = "*"
		}

		rows = append(rows, []string{mark, s.Name, s.SiteID, s.DriveID})
	}

	printTable(cc.Out, []string{"", "NAME", "SITE ID", "DRIVE ID"}, rows)

	return nil
}
