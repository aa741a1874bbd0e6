package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// Content types for uploads.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeCSV    = "text/csv"
	ContentTypeText   = "text/plain"
	ContentTypeBinary = "application/octet-stream"
	ContentTypeXLSX   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ConflictBehavior is the @microsoft.graph.conflictBehavior policy applied
// when the target name is already taken.
type ConflictBehavior string

// Conflict policies understood by the Graph API.
const (
	ConflictReplace ConflictBehavior = "replace"
	ConflictFail    ConflictBehavior = "fail"
	ConflictRename  ConflictBehavior = "rename"
)

// PutContent uploads data as the file name inside folder using a single PUT
// (the simple-upload endpoint; the Graph API caps it at 250 MB). With
// ConflictFail an existing item yields an error matching ErrConflict.
// Uploads are not retried on transient failure because the caller owns
// recovery; a 401 still gets one refreshed retry.
func (c *Client) PutContent(
	ctx context.Context, folder, name string, data []byte, contentType string, behavior ConflictBehavior,
) (*Item, error) {
	if contentType == "" {
		contentType = ContentTypeBinary
	}

	if behavior == "" {
		behavior = ConflictReplace
	}

	c.logger.Info("uploading content",
		slog.String("drive_id", c.site.DriveID),
		slog.String("folder", folder),
		slog.String("name", name),
		slog.Int("size", len(data)),
		slog.String("content_type", contentType),
		slog.String("conflict_behavior", string(behavior)),
	)

	apiPath := c.itemPath(JoinPath(folder, name), "content")
	if behavior != ConflictReplace {
		apiPath += "?@microsoft.graph.conflictBehavior=" + url.QueryEscape(string(behavior))
	}

	// A zero-length body still has to be sent as an empty PUT, not as none.
	body := data
	if body == nil {
		body = []byte{}
	}

	resp, err := c.send(ctx, request{
		method:      http.MethodPut,
		url:         c.baseURL + apiPath,
		label:       apiPath,
		body:        body,
		contentType: contentType,
		authorize:   true,
	})
	if err != nil {
		c.logger.Error("upload failed",
			slog.String("folder", folder),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)

		return nil, err
	}

	item, err := c.decodeItem(resp, "upload")
	if err != nil {
		return nil, fmt.Errorf("graph: upload of %q: %w", name, err)
	}

	return item, nil
}
