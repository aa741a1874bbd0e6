package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wnmlab/sharepoint-go/internal/driveops"
	"github.com/wnmlab/sharepoint-go/internal/graph"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder]",
		Short: "List files and folders",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [folder]",
		Short: "Print the folder hierarchy",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTree,
	}

	cmd.Flags().Bool("files", false, "include files, not just folders")

	return cmd
}

func newCatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <remote-path>",
		Short: "Print a document's content",
		Args:  cobra.ExactArgs(1),
		RunE:  runCat,
	}

	cmd.Flags().Bool("table", false, "parse a .csv or .xlsx file and print it as a table")

	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <remote-path> [local-path]",
		Short: "Download a file, verifying its hash",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-path> [remote-folder]",
		Short: "Upload a file, replacing any existing one",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runPut,
	}

	cmd.Flags().String("name", "", "remote file name (default: local base name)")

	return cmd
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}
}

func newMvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv <remote-path> <dest-folder>",
		Short: "Move a file to another folder with recovery on failure",
		Long: `Move a file to another folder of the same library.

The file content is buffered in memory before the move so that a failed
move can be undone by re-uploading the original. Files larger than the
configured share of available memory are refused before any change.

Exit status 3 means the move failed and the source could not be restored;
the journal lists such moves until they are resolved.`,
		Args: cobra.ExactArgs(2),
		RunE: runMv,
	}

	cmd.Flags().String("name", "", "new file name at the destination")

	return cmd
}

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <remote-path>",
		Short: "Delete a file or folder (moves it to the site recycle bin)",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}

	cmd.Flags().BoolP("recursive", "r", false, "confirm recursive folder deletion")

	return cmd
}

func newDrivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drives",
		Short: "List the document libraries of the site",
		Args:  cobra.NoArgs,
		RunE:  runDrives,
	}
}

func runLs(cmd *cobra.Command, args []string) error {
	folder := ""
	if len(args) > 0 {
		folder = args[0]
	}

	ctx := cmd.Context()
	cc := cliContextFrom(ctx)

	s, done, err := cc.session(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	cc.Logger.Debug("ls", "folder", folder)

	items, err := s.ListItems(ctx, folder)
	if err != nil {
		return fmt.Errorf("listing %q: %w", folder, err)
	}

	if cc.JSON {
		return printItemsJSON(cc, items)
	}

	printItemsTable(cc, items)

	return nil
}

// itemJSON is the JSON output schema for a single item.
type itemJSON struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	IsFolder   bool   `json:"is_folder"`
	ModifiedAt string `json:"modified_at,omitempty"`
	ID         string `json:"id"`
	WebURL     string `json:"web_url,omitempty"`
}

func toItemJSON(item *graph.Item) itemJSON {
	out := itemJSON{
		Name:     item.Name,
		Size:     item.Size,
		IsFolder: item.IsFolder,
		ID:       item.ID,
		WebURL:   item.WebURL,
	}

	if !item.ModifiedAt.IsZero() {
		out.ModifiedAt = item.ModifiedAt.UTC().Format(time.RFC3339)
	}

	return out
}

func printItemsJSON(cc *CLIContext, items []graph.Item) error {
	out := make([]itemJSON, 0, len(items))
	for i := range items {
		out = append(out, toItemJSON(&items[i]))
	}

	return printJSON(cc.Out, out)
}

func printItemsTable(cc *CLIContext, items []graph.Item) {
	// Folders first, then alphabetical.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsFolder != items[j].IsFolder {
			return items[i].IsFolder
		}

		return items[i].Name < items[j].Name
	})

	rows := make([][]string, 0, len(items))

	for i := range items {
		name := items[i].Name
		size := formatSize(items[i].Size)

		if items[i].IsFolder {
			name += "/"
			size = "-"
		}

		rows = append(rows, []string{name, size, formatTime(items[i].ModifiedAt)})
	}

	printTable(cc.Out, []string{"NAME", "SIZE", "MODIFIED"}, rows)
}

func runTree(cmd *cobra.Command, args []string) error {
	folder := ""
	if len(args) > 0 {
		folder = args[0]
	}

	showFiles, err := cmd.Flags().GetBool("files")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cc := cliContextFrom(ctx)

	s, done, err := cc.session(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	return s.PrintDirectory(ctx, cc.Out, folder, showFiles)
}

func runCat(cmd *cobra.Command, args []string) error {
	asTable, err := cmd.Flags().GetBool("table")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cc := cliContextFrom(ctx)
	folder, name := graph.SplitParentAndName(args[0])

	s, done, err := cc.session(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	if !asTable {
		data, err := s.ReadDocument(ctx, folder, name)
		if err != nil {
			return fmt.Errorf("reading %q: %w", args[0], err)
		}

		_, err = cc.Out.Write(data)

		return err
	}

	table, err := s.ReadSpreadsheet(ctx, folder, name)
	if err != nil {
		return fmt.Errorf("reading %q: %w", args[0], err)
	}

	if cc.JSON {
		return printJSON(cc.Out, table.Records())
	}

	printTable(cc.Out, table.Columns, table.Rows)

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := cliContextFrom(ctx)
	folder, name := graph.SplitParentAndName(args[0])

	localPath := "."
	if len(args) > 1 {
		localPath = args[1]
	}

	s, done, err := cc.session(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	res, err := s.DownloadFile(ctx, folder, name, localPath)
	if err != nil {
		return fmt.Errorf("downloading %q: %w", args[0], err)
	}

	if !res.HashVerified {
		cc.Statusf("Warning: %s has no remote hash, content not verified\n", args[0])
	}

	cc.Statusf("Downloaded %s (%s)\n", res.Path, formatSize(res.Size))

	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}

	folder := ""
	if len(args) > 1 {
		folder = args[1]
	}

	ctx := cmd.Context()
	cc := cliContextFrom(ctx)

	s, done, err := cc.session(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	item, err := s.UploadFile(ctx, args[0], folder, name)
	if err != nil {
		return err
	}

	if cc.JSON {
		return printJSON(cc.Out, toItemJSON(item))
	}

	cc.Statusf("Uploaded %s (%s)\n", graph.JoinPath(folder, item.Name), formatSize(item.Size))

	return nil
}

func runMkdir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := cliContextFrom(ctx)
	parent, name := graph.SplitParentAndName(args[0])

	if name == "" {
		return fmt.Errorf("mkdir: %q names no folder", args[0])
	}

	s, done, err := cc.session(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	item, err := s.CreateFolder(ctx, parent, name)
	if err != nil {
		return fmt.Errorf("creating %q: %w", args[0], err)
	}

	if cc.JSON {
		return printJSON(cc.Out, toItemJSON(item))
	}

	cc.Statusf("Created %s\n", graph.JoinPath(parent, item.Name))

	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	recursive, err := cmd.Flags().GetBool("recursive")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cc := cliContextFrom(ctx)
	folder, name := graph.SplitParentAndName(args[0])

	s, done, err := cc.session(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	if err := s.Delete(ctx, folder, name, recursive); err != nil {
		if errors.Is(err, driveops.ErrIsFolder) {
			return fmt.Errorf("%q is a folder, use --recursive to delete it", args[0])
		}

		return fmt.Errorf("deleting %q: %w", args[0], err)
	}

	cc.Statusf("Deleted %s\n", graph.JoinPath(folder, name))

	return nil
}

// moveJSON is the JSON output schema for mv.
type moveJSON struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Item        itemJSON `json:"item"`
}

func runMv(cmd *cobra.Command, args []string) error {
	newName, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cc := cliContextFrom(ctx)
	srcFolder, fileName := graph.SplitParentAndName(args[0])
	destFolder := graph.CleanPath(args[1])

	s, done, err := cc.session(ctx, true)
	if err != nil {
		return err
	}
	defer done()

	item, err := s.Move(ctx, srcFolder, fileName, destFolder, newName)
	if err != nil {
		return err
	}

	dest := graph.JoinPath(destFolder, item.Name)

	if cc.JSON {
		return printJSON(cc.Out, moveJSON{
			Source:      graph.JoinPath(srcFolder, fileName),
			Destination: dest,
			Item:        toItemJSON(item),
		})
	}

	cc.Statusf("Moved %s -> %s\n", graph.JoinPath(srcFolder, fileName), dest)

	return nil
}

// driveJSON is the JSON output schema for drives.
type driveJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DriveType  string `json:"drive_type"`
	QuotaUsed  int64  `json:"quota_used"`
	QuotaTotal int64  `json:"quota_total"`
	Active     bool   `json:"active"`
}

func runDrives(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := cliContextFrom(ctx)

	s, done, err := cc.session(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	drives, err := s.ListDrives(ctx)
	if err != nil {
		return fmt.Errorf("listing drives: %w", err)
	}

	if cc.JSON {
		out := make([]driveJSON, 0, len(drives))
		for _, d := range drives {
			out = append(out, driveJSON{
				ID:         d.ID,
				Name:       d.Name,
				DriveType:  d.DriveType,
				QuotaUsed:  d.QuotaUsed,
				QuotaTotal: d.QuotaTotal,
				Active:     d.Active,
			})
		}

		return printJSON(cc.Out, out)
	}

	rows := make([][]string, 0, len(drives))
	for _, d := range drives {
		marker := ""
		if d.Active {
			marker = "*"
		}

		rows = append(rows, []string{marker, d.Name, d.DriveType, formatSize(d.QuotaUsed), formatSize(d.QuotaTotal), d.ID})
	}

	printTable(cc.Out, []string{"", "NAME", "TYPE", "USED", "TOTAL", "ID"}, rows)

	return nil
}
