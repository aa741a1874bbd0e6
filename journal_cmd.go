package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wnmlab/sharepoint-go/internal/journal"
)

// defaultJournalLimit caps `journal list --all`.
const defaultJournalLimit = 50

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded moves",
		Long: `Every move is recorded in a local journal. Moves whose recovery failed
stay listed until they are resolved by hand.`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List moves that need attention",
		Args:  cobra.NoArgs,
		RunE:  runJournalList,
	}
	list.Flags().Bool("all", false, "list recent moves of every outcome")
	list.Flags().Int("limit", defaultJournalLimit, "maximum entries with --all")

	cmd.AddCommand(list)
	cmd.AddCommand(&cobra.Command{
		Use:   "resolve <id>",
		Short: "Mark a failed recovery as handled",
		Args:  cobra.ExactArgs(1),
		RunE:  runJournalResolve,
	})

	return cmd
}

// openJournal opens the configured journal; it refuses when disabled.
func (cc *CLIContext) openJournal(cmd *cobra.Command) (*journal.Store, error) {
	if cc.Cfg.Journal.Disabled {
		return nil, fmt.Errorf("the move journal is disabled in %s", cc.Cfg.Path)
	}

	return journal.Open(cmd.Context(), cc.Cfg.JournalPath(), cc.Logger)
}

// entryJSON is the JSON output schema for one journal entry.
type entryJSON struct {
	ID         string `json:"id"`
	Site       string `json:"site"`
	Source     string `json:"source"`
	Dest       string `json:"dest"`
	ItemID     string `json:"item_id,omitempty"`
	Size       int64  `json:"size"`
	Outcome    string `json:"outcome"`
	Stage      string `json:"stage,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	ResolvedAt string `json:"resolved_at,omitempty"`
}

func runJournalList(cmd *cobra.Command, _ []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cc := cliContextFrom(ctx)

	store, err := cc.openJournal(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	var entries []journal.Entry
	if all {
		entries, err = store.Recent(ctx, limit)
	} else {
		entries, err = store.Unresolved(ctx)
	}

	if err != nil {
		return err
	}

	if cc.JSON {
		out := make([]entryJSON, 0, len(entries))
		for i := range entries {
			out = append(out, toEntryJSON(&entries[i]))
		}

		return printJSON(cc.Out, out)
	}

	if len(entries) == 0 {
		cc.Statusf("No moves need attention.\n")
		return nil
	}

	rows := make([][]string, 0, len(entries))

	for i := range entries {
		e := &entries[i]
		rows = append(rows, []string{
			e.ID, string(e.Outcome), e.SourcePath, e.DestPath, formatSize(e.Size), formatTime(e.CreatedAt),
		})
	}

	printTable(cc.Out, []string{"ID", "OUTCOME", "SOURCE", "DEST", "SIZE", "WHEN"}, rows)

	return nil
}

func toEntryJSON(e *journal.Entry) entryJSON {
	out := entryJSON{
		ID:        e.ID,
		Site:      e.Site,
		Source:    e.SourcePath,
		Dest:      e.DestPath,
		ItemID:    e.ItemID,
		Size:      e.Size,
		Outcome:   string(e.Outcome),
		Stage:     e.Stage,
		Error:     e.Error,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}

	if !e.ResolvedAt.IsZero() {
		out.ResolvedAt = e.ResolvedAt.UTC().Format(time.RFC3339)
	}

	return out
}

func runJournalResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := cliContextFrom(ctx)

	store, err := cc.openJournal(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Resolve(ctx, args[0]); err != nil {
		return err
	}

	cc.Statusf("Resolved %s\n", args[0])

	return nil
}
