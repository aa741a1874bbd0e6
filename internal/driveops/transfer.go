package driveops

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wnmlab/sharepoint-go/internal/graph"
	"github.com/wnmlab/sharepoint-go/pkg/quickxorhash"
)

// defaultMaxHashRetries is how many times a download whose content does not
// match the remote hash is fetched again before giving up.
const defaultMaxHashRetries = 2

// DownloadResult describes a completed DownloadFile.
type DownloadResult struct {
	Path         string
	Size         int64
	LocalHash    string
	HashVerified bool // false when the remote reported no hash
}

// UploadFile uploads the local file at localPath into folder, keeping its
// base name unless name is set. An existing remote file is replaced. When
// the server reports a QuickXorHash it must match the local file; otherwise
// the uploaded item is returned with ErrHashMismatch.
func (s *Session) UploadFile(ctx context.Context, localPath, folder, name string) (*graph.Item, error) {
	if name == "" {
		name = filepath.Base(localPath)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("upload: %s is a directory", localPath)
	}

	if info.Size() > SimpleUploadLimit {
		return nil, &UploadTooLargeError{Name: name, Size: info.Size()}
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("upload: reading %s: %w", localPath, err)
	}

	item, err := s.upload(ctx, folder, name, data, graph.ContentTypeBinary)
	if err != nil {
		return nil, err
	}

	if item.QuickXorHash == "" {
		return item, nil
	}

	ok, localHash, err := matchesRemote(localPath, item.QuickXorHash)
	if err != nil {
		return item, err
	}

	if !ok {
		s.logger.Warn("upload hash mismatch",
			slog.String("path", graph.JoinPath(folder, name)),
			slog.String("local_hash", localHash),
			slog.String("remote_hash", item.QuickXorHash),
		)

		return item, fmt.Errorf("upload %s: %w", graph.JoinPath(folder, name), ErrHashMismatch)
	}

	return item, nil
}

// DownloadFile downloads name inside folder to localPath. When localPath is
// an existing directory the remote name is kept inside it. Content is
// written to a .partial file, checked against the remote QuickXorHash
// (refetching on mismatch), and renamed into place only once it matches.
func (s *Session) DownloadFile(ctx context.Context, folder, name, localPath string) (*DownloadResult, error) {
	if localPath == "" {
		return nil, errors.New("download: target path must not be empty")
	}

	if info, err := os.Stat(localPath); err == nil && info.IsDir() {
		localPath = filepath.Join(localPath, name)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating parent dir for %s: %w", localPath, err)
	}

	partialPath := localPath + ".partial"

	for attempt := range defaultMaxHashRetries + 1 {
		// The download URL is ephemeral: fetch fresh metadata every attempt.
		item, err := s.Client.GetItem(ctx, folder, name)
		if err != nil {
			return nil, err
		}

		if item.IsFolder {
			return nil, fmt.Errorf("download %s: %w", graph.JoinPath(folder, name), ErrIsFolder)
		}

		localHash, size, err := s.downloadToPartial(ctx, item, partialPath)
		if err != nil {
			return nil, err
		}

		verified := item.QuickXorHash != ""
		if verified && localHash != item.QuickXorHash {
			os.Remove(partialPath)
			s.logger.Warn("download hash mismatch",
				slog.String("target", localPath),
				slog.Int("attempt", attempt+1),
				slog.String("local_hash", localHash),
				slog.String("remote_hash", item.QuickXorHash),
			)

			continue
		}

		if err := os.Rename(partialPath, localPath); err != nil {
			return nil, fmt.Errorf("renaming partial to %s: %w", localPath, err)
		}

		s.logger.Info("downloaded file",
			slog.String("path", graph.JoinPath(folder, name)),
			slog.String("target", localPath),
			slog.Int64("size", size),
		)

		return &DownloadResult{Path: localPath, Size: size, LocalHash: localHash, HashVerified: verified}, nil
	}

	return nil, fmt.Errorf("download %s: %w", graph.JoinPath(folder, name), ErrHashMismatch)
}

// downloadToPartial streams item to partialPath while computing its
// QuickXorHash.
func (s *Session) downloadToPartial(ctx context.Context, item *graph.Item, partialPath string) (string, int64, error) {
	f, err := os.OpenFile(partialPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("creating partial file %s: %w", partialPath, err)
	}

	h := quickxorhash.New()

	n, err := s.Client.Download(ctx, item, io.MultiWriter(f, h))
	if err != nil {
		f.Close()
		os.Remove(partialPath)

		return "", 0, err
	}

	if err := f.Close(); err != nil {
		os.Remove(partialPath)
		return "", 0, fmt.Errorf("closing partial file %s: %w", partialPath, err)
	}

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), n, nil
}
