package graph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrNoDownloadURL is returned when a drive item has no pre-authenticated download URL.
// Folders never carry one; SharePoint may also omit it for empty files.
var ErrNoDownloadURL = errors.New("graph: item has no download URL")

// FetchContent reads the full content of item into memory by following its
// pre-authenticated download URL. The URL is ephemeral, so callers should
// pass a freshly fetched Item. An empty file without a download URL reads as
// zero bytes.
func (c *Client) FetchContent(ctx context.Context, item *Item) ([]byte, error) {
	if item.DownloadURL == "" && item.Size == 0 && !item.IsFolder {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	if item.Size > 0 {
		buf.Grow(int(item.Size))
	}

	if _, err := c.Download(ctx, item, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Download streams the content of item to w and returns the number of bytes
// written. The URL is pre-authenticated by the Graph API, so no Authorization
// header is sent, and the URL itself is never logged because it embeds
// credentials. Only the request/response cycle is retried; a failure while
// streaming is returned to the caller.
func (c *Client) Download(ctx context.Context, item *Item, w io.Writer) (int64, error) {
	if item.DownloadURL == "" {
		c.logger.Warn("item has no download URL",
			slog.String("item_id", item.ID),
			slog.Bool("is_folder", item.IsFolder),
		)

		return 0, ErrNoDownloadURL
	}

	c.logger.Info("downloading item",
		slog.String("item_id", item.ID),
		slog.String("name", item.Name),
	)

	resp, err := c.send(ctx, request{
		method: http.MethodGet,
		url:    item.DownloadURL,
		label:  "download:" + item.ID,
		retry:  true,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, copyErr := io.Copy(w, resp.Body)
	if copyErr != nil {
		c.logger.Error("streaming download content failed",
			slog.String("item_id", item.ID),
			slog.String("error", copyErr.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("%w: streaming download content: %w", ErrTransport, copyErr)
	}

	c.logger.Debug("download complete",
		slog.String("item_id", item.ID),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}
