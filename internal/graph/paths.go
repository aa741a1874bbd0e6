package graph

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanPath strips leading/trailing slashes and collapses empty segments.
// Returns "" for the drive root.
func CleanPath(p string) string {
	segments := strings.Split(p, "/")
	kept := segments[:0]

	for _, seg := range segments {
		if seg != "" {
			kept = append(kept, seg)
		}
	}

	return strings.Join(kept, "/")
}

// JoinPath joins a folder path and a name into a clean logical path.
func JoinPath(folder, name string) string {
	return CleanPath(folder + "/" + name)
}

// SplitParentAndName splits a logical path into parent path and name.
// For "foo/bar/baz" returns ("foo/bar", "baz"); for "baz" returns ("", "baz").
func SplitParentAndName(p string) (string, string) {
	clean := CleanPath(p)

	idx := strings.LastIndex(clean, "/")
	if idx < 0 {
		return "", clean
	}

	return clean[:idx], clean[idx+1:]
}

// encodePathSegments NFC-normalizes and URL-encodes each segment of a
// slash-separated path. SharePoint stores names in NFC; sending NFD from a
// macOS-sourced name would miss the item.
func encodePathSegments(p string) string {
	segments := strings.Split(CleanPath(p), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(norm.NFC.String(seg))
	}

	return strings.Join(segments, "/")
}

// drivePrefix is the site/drive scope shared by every item URL.
func (c *Client) drivePrefix() string {
	return fmt.Sprintf("/sites/%s/drives/%s", escapeID(c.site.SiteID), escapeID(c.site.DriveID))
}

// escapeID escapes an opaque identifier for use as one path segment. Site IDs
// are "{host},{site-guid},{web-guid}" and the commas must stay literal.
func escapeID(id string) string {
	return strings.ReplaceAll(url.PathEscape(id), "%2C", ",")
}

// itemPath returns the API path addressing an item by logical path, with an
// optional trailing action segment ("children", "content"). The root is
// addressed as /root.
func (c *Client) itemPath(p, action string) string {
	clean := CleanPath(p)

	if clean == "" {
		if action == "" {
			return c.drivePrefix() + "/root"
		}

		return c.drivePrefix() + "/root/" + action
	}

	base := c.drivePrefix() + "/root:/" + encodePathSegments(clean)
	if action == "" {
		return base
	}

	return base + ":/" + action
}

// itemIDPath returns the API path addressing an item by ID.
func (c *Client) itemIDPath(itemID string) string {
	return c.drivePrefix() + "/items/" + escapeID(itemID)
}

// ItemURL maps a logical path to its deterministic request target. The same
// path always yields the same URL for a given client.
func (c *Client) ItemURL(p string) string {
	return c.baseURL + c.itemPath(p, "")
}
