package driveops

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wnmlab/sharepoint-go/internal/graph"
)

// treeIndent is the indentation added per folder level.
const treeIndent = 4

// ListTopLevelFolders returns the folders directly under the drive root.
func (s *Session) ListTopLevelFolders(ctx context.Context) ([]graph.Item, error) {
	items, err := s.Client.ListChildren(ctx, "")
	if err != nil {
		return nil, err
	}

	folders := make([]graph.Item, 0, len(items))

	for i := range items {
		if items[i].IsFolder {
			folders = append(folders, items[i])
		}
	}

	return folders, nil
}

// PrintDirectory writes the folder tree under folder to w, one name per
// line, indented four spaces per level. Files are included when showFiles
// is set. A folder that cannot be listed is reported inline as
// "[ERROR] path - cause" and the walk continues with its siblings. The
// returned error is only ever a write error or the context's error.
func (s *Session) PrintDirectory(ctx context.Context, w io.Writer, folder string, showFiles bool) error {
	return s.printTree(ctx, w, graph.CleanPath(folder), 0, showFiles)
}

func (s *Session) printTree(ctx context.Context, w io.Writer, folder string, depth int, showFiles bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pad := strings.Repeat(" ", depth*treeIndent)

	items, err := s.Client.ListChildren(ctx, folder)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, werr := fmt.Fprintf(w, "%s[ERROR] %s - %v\n", pad, displayPath(folder), err)

		return werr
	}

	for i := range items {
		item := &items[i]

		if !item.IsFolder && !showFiles {
			continue
		}

		if _, err := fmt.Fprintf(w, "%s%s\n", pad, item.Name); err != nil {
			return err
		}

		if item.IsFolder {
			if err := s.printTree(ctx, w, graph.JoinPath(folder, item.Name), depth+1, showFiles); err != nil {
				return err
			}
		}
	}

	return nil
}

func displayPath(folder string) string {
	if folder == "" {
		return "/"
	}

	return folder
}
