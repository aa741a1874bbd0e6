package driveops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wnmlab/sharepoint-go/internal/formats"
	"github.com/wnmlab/sharepoint-go/internal/graph"
)

// ListItems returns the children of folder (the root when empty) in
// backend order.
func (s *Session) ListItems(ctx context.Context, folder string) ([]graph.Item, error) {
	return s.Client.ListChildren(ctx, folder)
}

// ListNames returns the names of folder's children in backend order.
func (s *Session) ListNames(ctx context.Context, folder string) ([]string, error) {
	return s.Client.ListNames(ctx, folder)
}

// GetDocument returns the metadata of name inside folder.
func (s *Session) GetDocument(ctx context.Context, folder, name string) (*graph.Item, error) {
	return s.Client.GetItem(ctx, folder, name)
}

// ReadDocument returns the full content of name inside folder.
func (s *Session) ReadDocument(ctx context.Context, folder, name string) ([]byte, error) {
	item, err := s.Client.GetItem(ctx, folder, name)
	if err != nil {
		return nil, err
	}

	if item.IsFolder {
		return nil, fmt.Errorf("reading %s: %w", graph.JoinPath(folder, name), ErrIsFolder)
	}

	return s.Client.FetchContent(ctx, item)
}

// ReadSpreadsheet reads a .csv or .xlsx document as a table. Other
// extensions fail with formats.ErrUnsupportedFormat before any remote call.
func (s *Session) ReadSpreadsheet(ctx context.Context, folder, name string) (*formats.Table, error) {
	switch formats.FormatOf(name) {
	case formats.CSV, formats.XLSX:
	default:
		return nil, fmt.Errorf("reading %s as a spreadsheet: %w", name, formats.ErrUnsupportedFormat)
	}

	data, err := s.ReadDocument(ctx, folder, name)
	if err != nil {
		return nil, err
	}

	return formats.DecodeTable(name, data)
}

// ReadJSON decodes the JSON document name inside folder into v.
func (s *Session) ReadJSON(ctx context.Context, folder, name string, v any) error {
	data, err := s.ReadDocument(ctx, folder, name)
	if err != nil {
		return err
	}

	if err := formats.DecodeJSON(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", graph.JoinPath(folder, name), err)
	}

	return nil
}

// ReadSWC parses the SWC document name inside folder.
func (s *Session) ReadSWC(ctx context.Context, folder, name string) ([]formats.Point, error) {
	data, err := s.ReadDocument(ctx, folder, name)
	if err != nil {
		return nil, err
	}

	points, err := formats.DecodeSWC(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", graph.JoinPath(folder, name), err)
	}

	return points, nil
}

// UploadJSON writes v as indented JSON to name inside folder, replacing any
// existing file.
func (s *Session) UploadJSON(ctx context.Context, folder, name string, v any) (*graph.Item, error) {
	data, err := formats.EncodeJSON(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", name, err)
	}

	return s.upload(ctx, folder, name, data, graph.ContentTypeJSON)
}

// UploadCSV writes t as CSV to name inside folder.
func (s *Session) UploadCSV(ctx context.Context, folder, name string, t *formats.Table) (*graph.Item, error) {
	data, err := formats.EncodeCSV(t)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", name, err)
	}

	return s.upload(ctx, folder, name, data, graph.ContentTypeCSV)
}

// UploadXLSX writes t as a single-sheet workbook to name inside folder.
func (s *Session) UploadXLSX(ctx context.Context, folder, name string, t *formats.Table) (*graph.Item, error) {
	data, err := formats.EncodeXLSX(t)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", name, err)
	}

	return s.upload(ctx, folder, name, data, graph.ContentTypeXLSX)
}

// UploadSWC writes points in SWC text form to name inside folder.
func (s *Session) UploadSWC(ctx context.Context, folder, name string, points []formats.Point) (*graph.Item, error) {
	return s.upload(ctx, folder, name, formats.EncodeSWC(points), graph.ContentTypeText)
}

// CreateFolder creates name inside parent. An existing item with that name
// fails with an error matching graph.ErrConflict.
func (s *Session) CreateFolder(ctx context.Context, parent, name string) (*graph.Item, error) {
	return s.Client.CreateFolder(ctx, parent, name)
}

// Delete removes name inside folder. Folders are removed with their
// contents only when recursive is set; otherwise they fail with ErrIsFolder.
func (s *Session) Delete(ctx context.Context, folder, name string, recursive bool) error {
	if name == "" {
		return errors.New("driveops: refusing to delete the library root")
	}

	item, err := s.Client.GetItem(ctx, folder, name)
	if err != nil {
		return err
	}

	if item.IsFolder && !recursive {
		return fmt.Errorf("deleting %s: %w", graph.JoinPath(folder, name), ErrIsFolder)
	}

	return s.Client.DeleteItem(ctx, item.ID)
}

// ListDrives returns the document libraries of the session's site.
func (s *Session) ListDrives(ctx context.Context) ([]graph.Drive, error) {
	return s.Client.Drives(ctx)
}

func (s *Session) upload(ctx context.Context, folder, name string, data []byte, contentType string) (*graph.Item, error) {
	if len(data) > SimpleUploadLimit {
		return nil, &UploadTooLargeError{Name: name, Size: int64(len(data))}
	}

	item, err := s.Client.PutContent(ctx, folder, name, data, contentType, graph.ConflictReplace)
	if err != nil {
		return nil, err
	}

	s.logger.Info("uploaded document",
		slog.String("path", graph.JoinPath(folder, name)),
		slog.String("item_id", item.ID),
		slog.Int64("size", item.Size),
	)

	return item, nil
}
