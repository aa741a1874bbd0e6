package driveops

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnmlab/sharepoint-go/internal/graph"
	"github.com/wnmlab/sharepoint-go/internal/graph/graphtest"
	"github.com/wnmlab/sharepoint-go/pkg/quickxorhash"
)

func TestUploadFile(t *testing.T) {
	s, fake := newTestSession(t)
	fake.AddFolder("General/raw")

	local := filepath.Join(t.TempDir(), "scan 01.tif")
	require.NoError(t, os.WriteFile(local, []byte("\x00\x01binary"), 0o600))

	item, err := s.UploadFile(context.Background(), local, "General/raw", "")
	require.NoError(t, err)
	assert.Equal(t, "scan 01.tif", item.Name)
	assert.Equal(t, quickxorhash.Base64([]byte("\x00\x01binary")), item.QuickXorHash)

	got, ok := fake.Content("General/raw/scan 01.tif")
	require.True(t, ok)
	assert.Equal(t, []byte("\x00\x01binary"), got)
	assert.Equal(t, graph.ContentTypeBinary, fake.ContentType("General/raw/scan 01.tif"))
}

func TestUploadFile_HashMismatch(t *testing.T) {
	s, fake := newTestSession(t)
	fake.AddFolder("General")
	fake.SetUploadHash("AAAAAAAAAAAAAAAAAAAAAAAAAAA=")

	local := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(local, []byte("payload"), 0o600))

	item, err := s.UploadFile(context.Background(), local, "General", "")
	require.ErrorIs(t, err, ErrHashMismatch)
	require.NotNil(t, item)
	assert.Equal(t, "a.bin", item.Name)
}

func TestUploadFile_Rename(t *testing.T) {
	s, fake := newTestSession(t)
	fake.AddFolder("General")

	local := filepath.Join(t.TempDir(), "local.bin")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o600))

	_, err := s.UploadFile(context.Background(), local, "General", "remote.bin")
	require.NoError(t, err)
	assert.True(t, fake.Exists("General/remote.bin"))
}

func TestUploadFile_LocalErrors(t *testing.T) {
	s, fake := newTestSession(t)
	dir := t.TempDir()

	_, err := s.UploadFile(context.Background(), filepath.Join(dir, "missing"), "General", "")
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.UploadFile(context.Background(), dir, "General", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
	assert.Empty(t, fake.Requests())
}

func TestUploadTooLargeError(t *testing.T) {
	err := &UploadTooLargeError{Name: "huge.bin", Size: 300 << 20}

	assert.ErrorIs(t, err, ErrUploadTooLarge)
	assert.Equal(t, "driveops: huge.bin is 300 MiB, simple upload limit is 250 MiB", err.Error())
}

func TestDownloadFile_ToPath(t *testing.T) {
	s, fake := newTestSession(t)
	data := []byte("n,type\n1,1\n")
	fake.AddFile("General/a.csv", data)

	target := filepath.Join(t.TempDir(), "sub", "copy.csv")

	res, err := s.DownloadFile(context.Background(), "General", "a.csv", target)
	require.NoError(t, err)
	assert.Equal(t, target, res.Path)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.True(t, res.HashVerified)
	assert.Equal(t, quickxorhash.Base64(data), res.LocalHash)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = os.Stat(target + ".partial")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDownloadFile_IntoDirectory(t *testing.T) {
	s, fake := newTestSession(t)
	fake.AddFile("General/a.txt", []byte("hello"))

	dir := t.TempDir()

	res, err := s.DownloadFile(context.Background(), "General", "a.txt", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.txt"), res.Path)
}

func TestDownloadFile_HashMismatch(t *testing.T) {
	s, fake := newTestSession(t)
	fake.AddFolder("General")
	fake.SetUploadHash("AAAAAAAAAAAAAAAAAAAAAAAAAAA=")

	_, err := s.Client.PutContent(context.Background(), "General", "a.txt", []byte("hello"), "", graph.ConflictReplace)
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "a.txt")

	_, err = s.DownloadFile(context.Background(), "General", "a.txt", target)
	require.ErrorIs(t, err, ErrHashMismatch)

	_, statErr := os.Stat(target)
	assert.ErrorIs(t, statErr, os.ErrNotExist, "nothing is renamed into place")
	_, statErr = os.Stat(target + ".partial")
	assert.ErrorIs(t, statErr, os.ErrNotExist)

	downloads := 0
	for _, r := range fake.Requests() {
		if r.Method == http.MethodGet && strings.HasPrefix(r.Path, "/download/") {
			downloads++
		}
	}

	assert.Equal(t, defaultMaxHashRetries+1, downloads)
}

func TestDownloadFile_Errors(t *testing.T) {
	s, fake := newTestSession(t)
	fake.AddFolder("General/Reports")
	dir := t.TempDir()

	_, err := s.DownloadFile(context.Background(), "General", "absent.txt", filepath.Join(dir, "x"))
	require.ErrorIs(t, err, graph.ErrNotFound)

	_, err = s.DownloadFile(context.Background(), "General", "Reports", filepath.Join(dir, "y"))
	require.ErrorIs(t, err, ErrIsFolder)

	_, err = s.DownloadFile(context.Background(), "General", "a.txt", "")
	require.Error(t, err)
}

func TestDownloadFile_ContentGone(t *testing.T) {
	s, fake := newTestSession(t)
	fake.AddFile("General/a.txt", []byte("hello"))
	fake.Fail(graphtest.Fault{Method: http.MethodGet, PathContains: "/download/", Status: 404})

	target := filepath.Join(t.TempDir(), "a.txt")

	_, err := s.DownloadFile(context.Background(), "General", "a.txt", target)
	require.ErrorIs(t, err, graph.ErrNotFound)

	_, statErr := os.Stat(target + ".partial")
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}
