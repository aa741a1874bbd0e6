package mover

import (
	"errors"
	"fmt"
)

var (
	// ErrTooLarge is matched by *TooLargeError.
	ErrTooLarge = errors.New("mover: file too large to buffer")

	// ErrRecoveryFailed is matched by *RecoveryError. The source file may be
	// in neither location and needs manual attention.
	ErrRecoveryFailed = errors.New("mover: recovery failed, remote state indeterminate")

	// ErrRestoreMismatch means the restored file's digest differs from the backup.
	ErrRestoreMismatch = errors.New("mover: restored content does not match backup")

	// ErrNotFolder means the destination folder path names a file.
	ErrNotFolder = errors.New("mover: destination is not a folder")

	// ErrInvalidRequest is returned for requests missing a file name or
	// carrying a name with a path separator.
	ErrInvalidRequest = errors.New("mover: invalid request")
)

// TooLargeError reports a file larger than the buffer ceiling.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("mover: file is %d bytes, buffer ceiling is %d bytes", e.Size, e.Limit)
}

func (e *TooLargeError) Unwrap() error { return ErrTooLarge }

// MoveError is a failed move that left the remote store consistent: either
// nothing was changed, or the source was restored from the backup.
type MoveError struct {
	Request  Request
	Stage    State // the state the move was trying to reach
	Err      error
	Restored bool
}

func (e *MoveError) Error() string {
	msg := fmt.Sprintf("mover: moving %q to %q failed at %s: %v", e.Request.SourcePath(), e.Request.DestPath(), e.Stage, e.Err)
	if e.Restored {
		msg += " (source restored)"
	}

	return msg
}

func (e *MoveError) Unwrap() error { return e.Err }

// RecoveryError is a failed move whose restoration also failed, or a
// relocation whose outcome could not be read back. Both causes stay
// reachable through errors.Is and errors.As.
type RecoveryError struct {
	Request  Request
	Stage    State
	Original error
	Recovery error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("mover: moving %q to %q failed at %s: %v; restoring %q also failed: %v",
		e.Request.SourcePath(), e.Request.DestPath(), e.Stage, e.Original, e.Request.SourcePath(), e.Recovery)
}

func (e *RecoveryError) Unwrap() []error {
	return []error{ErrRecoveryFailed, e.Original, e.Recovery}
}
