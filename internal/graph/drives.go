package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// libraryResponse is one document library as listed under a site.
type libraryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
	WebURL    string `json:"webUrl"`
	Quota     *struct {
		Used  int64 `json:"used"`
		Total int64 `json:"total"`
	} `json:"quota"`
}

type siteLibrariesPage struct {
	Value    []libraryResponse `json:"value"`
	NextLink string            `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

func (l *libraryResponse) toDrive(boundID string) Drive {
	d := Drive{
		ID:        l.ID,
		Name:      l.Name,
		DriveType: l.DriveType,
		WebURL:    l.WebURL,
		Active:    l.ID == boundID,
	}

	if l.Quota != nil {
		d.QuotaUsed = l.Quota.Used
		d.QuotaTotal = l.Quota.Total
	}

	return d
}

// Drives lists the document libraries of the client's site, following
// pagination. The library the client is bound to has Active set.
func (c *Client) Drives(ctx context.Context) ([]Drive, error) {
	c.logger.Info("listing site libraries",
		slog.String("site_id", c.site.SiteID),
	)

	var drives []Drive

	apiPath := "/sites/" + escapeID(c.site.SiteID) + "/drives"
	for apiPath != "" {
		page, err := c.siteLibrariesPage(ctx, apiPath)
		if err != nil {
			return nil, err
		}

		for i := range page.Value {
			drives = append(drives, page.Value[i].toDrive(c.site.DriveID))
		}

		apiPath = ""
		if page.NextLink != "" {
			if apiPath, err = c.stripBaseURL(page.NextLink); err != nil {
				return nil, err
			}
		}
	}

	c.logger.Info("listed site libraries",
		slog.String("site_id", c.site.SiteID),
		slog.Int("count", len(drives)),
	)

	return drives, nil
}

func (c *Client) siteLibrariesPage(ctx context.Context, apiPath string) (*siteLibrariesPage, error) {
	resp, err := c.Do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var page siteLibrariesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("graph: decoding libraries of site %s: %w", c.site.SiteID, err)
	}

	return &page, nil
}
