package mover

import (
	"fmt"
	"strings"

	"github.com/wnmlab/sharepoint-go/internal/graph"
)

// Request describes one move. An empty NewName keeps FileName.
type Request struct {
	SourceFolder string
	FileName     string
	DestFolder   string
	NewName      string
}

// DestName is the file name at the destination.
func (r Request) DestName() string {
	if r.NewName == "" {
		return r.FileName
	}

	return r.NewName
}

// SourcePath is the logical path of the file before the move.
func (r Request) SourcePath() string {
	return graph.JoinPath(r.SourceFolder, r.FileName)
}

// DestPath is the logical path of the file after the move.
func (r Request) DestPath() string {
	return graph.JoinPath(r.DestFolder, r.DestName())
}

// Validate rejects requests that cannot address a single file.
func (r Request) Validate() error {
	if strings.TrimSpace(r.FileName) == "" {
		return fmt.Errorf("%w: file name is required", ErrInvalidRequest)
	}

	for _, name := range []string{r.FileName, r.NewName} {
		if strings.Contains(name, "/") {
			return fmt.Errorf("%w: name %q contains a path separator", ErrInvalidRequest, name)
		}
	}

	return nil
}
