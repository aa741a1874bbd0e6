package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// listChildrenPageSize is the default $top value for children listings.
// 200 is the maximum allowed by the Graph API for drive item collections.
const listChildrenPageSize = 200

// driveItemResponse mirrors the Graph API driveItem JSON exactly.
// Callers use Item via toItem().
type driveItemResponse struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Size                 int64        `json:"size"`
	ETag                 string       `json:"eTag"`
	CTag                 string       `json:"cTag"`
	WebURL               string       `json:"webUrl"`
	CreatedDateTime      string       `json:"createdDateTime"`
	LastModifiedDateTime string       `json:"lastModifiedDateTime"`
	ParentReference      *parentRef   `json:"parentReference"`
	File                 *fileFacet   `json:"file"`
	Folder               *folderFacet `json:"folder"`
	DownloadURL          string       `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type parentRef struct {
	ID      string `json:"id"`
	DriveID string `json:"driveId"`
	Path    string `json:"path"`
}

type fileFacet struct {
	MimeType string     `json:"mimeType"`
	Hashes   *hashFacet `json:"hashes"`
}

type hashFacet struct {
	QuickXorHash string `json:"quickXorHash"`
	SHA1Hash     string `json:"sha1Hash"`
	SHA256Hash   string `json:"sha256Hash"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

type listChildrenResponse struct {
	Value    []driveItemResponse `json:"value"`
	NextLink string              `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

type createFolderRequest struct {
	Name             string      `json:"name"`
	Folder           folderFacet `json:"folder"`
	ConflictBehavior string      `json:"@microsoft.graph.conflictBehavior"` //nolint:tagliatelle // Graph API annotation key
}

type moveItemRequest struct {
	ParentReference *moveParentRef `json:"parentReference,omitempty"`
	Name            string         `json:"name,omitempty"`
}

type moveParentRef struct {
	ID string `json:"id"`
}

// toItem normalizes a Graph API driveItem response into our Item type.
func (d *driveItemResponse) toItem(logger *slog.Logger) Item {
	item := Item{
		ID:          d.ID,
		Name:        d.Name,
		Size:        d.Size,
		ETag:        d.ETag,
		CTag:        d.CTag,
		WebURL:      d.WebURL,
		IsFolder:    d.Folder != nil,
		ChildCount:  ChildCountUnknown,
		DownloadURL: d.DownloadURL,
	}

	if d.ParentReference != nil {
		item.DriveID = d.ParentReference.DriveID
		item.ParentID = d.ParentReference.ID
		item.ParentPath = d.ParentReference.Path
	}

	if d.Folder != nil {
		item.ChildCount = d.Folder.ChildCount
	}

	// File hashes; every level may be nil.
	if d.File != nil {
		item.MimeType = d.File.MimeType

		if d.File.Hashes != nil {
			item.QuickXorHash = d.File.Hashes.QuickXorHash
			item.SHA1Hash = d.File.Hashes.SHA1Hash
			item.SHA256Hash = d.File.Hashes.SHA256Hash
		}
	}

	item.CreatedAt = parseTimestamp(d.CreatedDateTime, "createdDateTime", d.ID, logger)
	item.ModifiedAt = parseTimestamp(d.LastModifiedDateTime, "lastModifiedDateTime", d.ID, logger)

	return item
}

// parseTimestamp parses an RFC3339 timestamp. Empty input yields the zero
// time; malformed input is logged and also yields the zero time.
func parseTimestamp(raw, field, itemID string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp in item response",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	return t
}

// decodeItem decodes a driveItem body and closes it.
func (c *Client) decodeItem(resp *http.Response, what string) (*Item, error) {
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding %s response: %w", what, err)
	}

	item := dir.toItem(c.logger)

	return &item, nil
}

// fetchItem fetches a single drive item from the given API path and decodes it.
func (c *Client) fetchItem(ctx context.Context, apiPath string) (*Item, error) {
	resp, err := c.Do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, err
	}

	return c.decodeItem(resp, "item")
}

// GetItem retrieves metadata for the item name inside folder.
// Returns an error matching ErrNotFound when the item is absent.
func (c *Client) GetItem(ctx context.Context, folder, name string) (*Item, error) {
	return c.GetItemByPath(ctx, JoinPath(folder, name))
}

// GetItemByPath retrieves a drive item by its path relative to the drive
// root. An empty path (or "/") returns the root folder.
func (c *Client) GetItemByPath(ctx context.Context, remotePath string) (*Item, error) {
	c.logger.Info("getting item by path",
		slog.String("drive_id", c.site.DriveID),
		slog.String("path", remotePath),
	)

	return c.fetchItem(ctx, c.itemPath(remotePath, ""))
}

// Root returns the drive's root folder.
func (c *Client) Root(ctx context.Context) (*Item, error) {
	return c.GetItemByPath(ctx, "")
}

// GetItemByID retrieves a drive item by ID.
func (c *Client) GetItemByID(ctx context.Context, itemID string) (*Item, error) {
	c.logger.Info("getting item",
		slog.String("drive_id", c.site.DriveID),
		slog.String("item_id", itemID),
	)

	return c.fetchItem(ctx, c.itemIDPath(itemID))
}

// Exists probes whether an item is present at remotePath. A 404 reports
// false with no error. Any other failure reports true together with the
// error: the item might exist, and callers about to write there must abort.
func (c *Client) Exists(ctx context.Context, remotePath string) (bool, error) {
	resp, err := c.Do(ctx, http.MethodGet, c.itemPath(remotePath, ""), nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}

		return true, err
	}

	resp.Body.Close()

	return true, nil
}

// ListChildren returns all children of folder (the root when empty),
// handling pagination automatically. Order follows the backend response.
func (c *Client) ListChildren(ctx context.Context, folder string) ([]Item, error) {
	c.logger.Info("listing children",
		slog.String("drive_id", c.site.DriveID),
		slog.String("path", folder),
	)

	apiPath := fmt.Sprintf("%s?$top=%d", c.itemPath(folder, "children"), c.pageSize)

	var items []Item

	page := 1
	for apiPath != "" {
		pageItems, nextPath, err := c.listChildrenPage(ctx, apiPath, page)
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)
		apiPath = nextPath
		page++
	}

	c.logger.Info("listed children complete",
		slog.String("path", folder),
		slog.Int("total_items", len(items)),
	)

	return items, nil
}

// ListNames returns the names of all children of folder in backend order.
func (c *Client) ListNames(ctx context.Context, folder string) ([]string, error) {
	items, err := c.ListChildren(ctx, folder)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(items))
	for i := range items {
		names = append(names, items[i].Name)
	}

	return names, nil
}

// listChildrenPage fetches a single page of children and returns the items
// and the next page path (empty if no more pages).
func (c *Client) listChildrenPage(ctx context.Context, path string, page int) ([]Item, string, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var lcr listChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lcr); err != nil {
		return nil, "", fmt.Errorf("graph: decoding children response: %w", err)
	}

	items := make([]Item, 0, len(lcr.Value))
	for i := range lcr.Value {
		items = append(items, lcr.Value[i].toItem(c.logger))
	}

	c.logger.Debug("fetched children page",
		slog.Int("page", page),
		slog.Int("count", len(items)),
	)

	var nextPath string
	if lcr.NextLink != "" {
		var stripErr error

		nextPath, stripErr = c.stripBaseURL(lcr.NextLink)
		if stripErr != nil {
			return nil, "", stripErr
		}
	}

	return items, nextPath, nil
}

// stripBaseURL removes the client's base URL prefix from a full URL,
// returning the path + query string for use with Do(). Refusing foreign
// hosts keeps the bearer token on the Graph endpoint.
func (c *Client) stripBaseURL(fullURL string) (string, error) {
	if !strings.HasPrefix(fullURL, c.baseURL) {
		return "", fmt.Errorf("graph: nextLink URL %q does not match base URL %q", fullURL, c.baseURL)
	}

	return fullURL[len(c.baseURL):], nil
}

// CreateFolder creates a new folder named name under parent.
// Uses conflictBehavior "fail": a name collision returns ErrConflict (409).
func (c *Client) CreateFolder(ctx context.Context, parent, name string) (*Item, error) {
	c.logger.Info("creating folder",
		slog.String("drive_id", c.site.DriveID),
		slog.String("parent", parent),
		slog.String("name", name),
	)

	reqBody := createFolderRequest{
		Name:             name,
		Folder:           folderFacet{},
		ConflictBehavior: string(ConflictFail),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("graph: marshaling create folder request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, c.itemPath(parent, "children"), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}

	return c.decodeItem(resp, "create folder")
}

// ErrMoveNoChanges is returned when MoveItem is called with both newParentID
// and newName empty; at least one must be specified.
var ErrMoveNoChanges = errors.New("graph: MoveItem requires at least one of newParentID or newName")

// MoveItem relocates and/or renames an item in one PATCH call.
// At least one of newParentID or newName must be non-empty. Not retried on
// transient failure: the caller decides how to recover.
func (c *Client) MoveItem(ctx context.Context, itemID, newParentID, newName string) (*Item, error) {
	if newParentID == "" && newName == "" {
		return nil, ErrMoveNoChanges
	}

	c.logger.Info("moving item",
		slog.String("drive_id", c.site.DriveID),
		slog.String("item_id", itemID),
		slog.String("new_parent_id", newParentID),
		slog.String("new_name", newName),
	)

	req := moveItemRequest{Name: newName}
	if newParentID != "" {
		req.ParentReference = &moveParentRef{ID: newParentID}
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("graph: marshaling move request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPatch, c.itemIDPath(itemID), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}

	return c.decodeItem(resp, "move")
}

// DeleteItem deletes a drive item. Returns nil on success (HTTP 204).
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	c.logger.Info("deleting item",
		slog.String("drive_id", c.site.DriveID),
		slog.String("item_id", itemID),
	)

	resp, err := c.Do(ctx, http.MethodDelete, c.itemIDPath(itemID), nil)
	if err != nil {
		return err
	}

	// 204 No Content: drain and close to reuse the connection.
	defer resp.Body.Close()

	if _, copyErr := io.Copy(io.Discard, resp.Body); copyErr != nil {
		return fmt.Errorf("graph: draining delete response body: %w", copyErr)
	}

	return nil
}
