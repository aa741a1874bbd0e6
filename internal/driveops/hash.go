package driveops

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/wnmlab/sharepoint-go/pkg/quickxorhash"
)

// LocalQuickXorHash streams the local file at localPath through the hash
// SharePoint reports for library files and returns the base64 digest, ready
// to compare with graph.Item.QuickXorHash.
func LocalQuickXorHash(localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("hashing local copy: %w", err)
	}
	defer f.Close()

	h := quickxorhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing local copy %s: %w", localPath, err)
	}

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// matchesRemote reports whether the local file hashes to remoteHash. The
// local digest is returned for logging.
func matchesRemote(localPath, remoteHash string) (bool, string, error) {
	local, err := LocalQuickXorHash(localPath)
	if err != nil {
		return false, "", err
	}

	return local == remoteHash, local, nil
}
