package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/querysteps/internal/querysource"
	"github.com/roach88/querysteps/internal/stepwise"
	"github.com/roach88/querysteps/internal/store"
	"github.com/roach88/querysteps/internal/tree"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database  string
	QueryFile string
}

// RunView is the JSON payload of a single stored run.
type RunView struct {
	ID                string          `json:"id"`
	Seq               int64           `json:"seq"`
	QueryHash         string          `json:"query_hash"`
	IntermediateTable string          `json:"intermediate_table"`
	Steps             []stepwise.Step `json:"steps"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "List or inspect stored runs",
		Long: `Show decomposition runs saved with "decompose --save".

Without arguments all runs are listed, oldest first. With a run ID the
steps of that run are shown. --query lists the runs of one query file.

Examples:
  querysteps show --db ./querysteps.db
  querysteps show --db ./querysteps.db 0192d3c4-...
  querysteps show --query query.yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runShow(opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.QueryFile, "query", "", "only list runs of this query file")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.settings().Database
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if id != "" {
		return showRun(ctx, st, id, out)
	}
	return listRuns(ctx, st, opts.QueryFile, out)
}

func showRun(ctx context.Context, st *store.Store, id string, out *OutputFormatter) error {
	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		if outErr := out.Error(ErrCodeRunMissing, fmt.Sprintf("run not found: %s", id), nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitFailure, fmt.Sprintf("run not found: %s", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if out.JSON() {
		return out.Success(RunView{
			ID:                run.ID,
			Seq:               run.Seq,
			QueryHash:         run.QueryHash,
			IntermediateTable: run.IntermediateTable,
			Steps:             run.Steps,
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (seq %d)\n", run.ID, run.Seq)
	fmt.Fprintf(&b, "Query hash: %s\n", run.QueryHash)
	fmt.Fprintf(&b, "Intermediate table: %s\n", run.IntermediateTable)
	b.WriteString(stepsTable(run.Steps))
	return out.Success(b.String())
}

func listRuns(ctx context.Context, st *store.Store, queryFile string, out *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if queryFile != "" {
		query, err := querysource.LoadFile(queryFile)
		if err != nil {
			return out.LoadFailure(queryFile, err)
		}
		hash, err := tree.Fingerprint(query)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to fingerprint query", err)
		}
		ids, err := st.FindRunsByQuery(ctx, hash)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find runs", err)
		}
		runs = keepRuns(runs, ids)
	}

	if out.JSON() {
		return out.Success(runs)
	}
	if len(runs) == 0 {
		return out.Success("No runs found.")
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Seq", "Run", "Query", "Steps"})
	for _, r := range runs {
		tw.AppendRow(table.Row{r.Seq, r.ID, shortHash(r.QueryHash), r.StepCount})
	}
	return out.Success(tw.Render())
}

// keepRuns filters runs to the given IDs, keeping the order of runs.
func keepRuns(runs []store.RunSummary, ids []string) []store.RunSummary {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	kept := []store.RunSummary{}
	for _, r := range runs {
		if wanted[r.ID] {
			kept = append(kept, r)
		}
	}
	return kept
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
