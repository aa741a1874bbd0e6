package driveops

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// SimpleUploadLimit is the largest body the single-PUT upload endpoint
// accepts.
const SimpleUploadLimit = 250 << 20

var (
	// ErrIsFolder is returned when a document operation targets a folder.
	ErrIsFolder = errors.New("driveops: item is a folder")

	// ErrUploadTooLarge is matched by UploadTooLargeError.
	ErrUploadTooLarge = errors.New("driveops: file exceeds the simple upload limit")

	// ErrHashMismatch means transferred content does not match the
	// QuickXorHash the server reports for it.
	ErrHashMismatch = errors.New("driveops: content does not match remote hash")
)

// UploadTooLargeError reports a body over SimpleUploadLimit.
type UploadTooLargeError struct {
	Name string
	Size int64
}

func (e *UploadTooLargeError) Error() string {
	return fmt.Sprintf("driveops: %s is %s, simple upload limit is %s",
		e.Name, humanize.IBytes(uint64(e.Size)), humanize.IBytes(SimpleUploadLimit))
}

func (e *UploadTooLargeError) Unwrap() error { return ErrUploadTooLarge }
