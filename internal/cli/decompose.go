package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querysteps/internal/querysource"
	"github.com/roach88/querysteps/internal/stepwise"
	"github.com/roach88/querysteps/internal/store"
	"github.com/roach88/querysteps/internal/tree"
)

// DecomposeOptions holds flags for the decompose command.
type DecomposeOptions struct {
	*RootOptions
	Intermediate string
	Save         bool
	Database     string

	// RunIDs overrides the run ID generator of the store (for testing).
	RunIDs store.RunIDGenerator
}

// DecomposeResult is the JSON payload of the decompose command.
type DecomposeResult struct {
	Query string          `json:"query"`
	RunID string          `json:"run_id,omitempty"`
	Steps []stepwise.Step `json:"steps"`
}

// NewDecomposeCommand creates the decompose command.
func NewDecomposeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecomposeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decompose <query-file>",
		Short: "Split a query into evaluation steps",
		Long: `Decompose a query into the steps a relational engine conceptually
evaluates. Each step is a complete query that can be run on its own.

Query files hold the query tree as .json, .yaml/.yml or .cue.

Examples:
  querysteps decompose query.yaml
  querysteps decompose query.cue --intermediate "(previous)"
  querysteps decompose query.json --save --db ./querysteps.db
  querysteps decompose query.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecompose(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Intermediate, "intermediate", "", "placeholder for the joined tables in later cross steps")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "store the run in the database")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runDecompose(opts *DecomposeOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	query, steps, intermediate, err := decomposeFile(opts.RootOptions, path, opts.Intermediate, out)
	if err != nil {
		return err
	}

	result := DecomposeResult{Query: path, Steps: steps}
	if opts.Save {
		run, err := saveRun(cmd.Context(), opts, query, intermediate, steps)
		if err != nil {
			return err
		}
		result.RunID = run.ID
	}

	if out.JSON() {
		return out.Success(result)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d steps\n", path, len(steps))
	b.WriteString(stepsTable(steps))
	if result.RunID != "" {
		fmt.Fprintf(&b, "\nSaved run %s", result.RunID)
	}
	return out.Success(b.String())
}

// decomposeFile loads and decomposes a query file. Failures are reported
// through out and returned as ExitErrors.
func decomposeFile(opts *RootOptions, path, intermediate string, out *OutputFormatter) (tree.NodeModel, []stepwise.Step, string, error) {
	query, err := querysource.LoadFile(path)
	if err != nil {
		return tree.NodeModel{}, nil, "", out.LoadFailure(path, err)
	}

	if intermediate == "" {
		intermediate = opts.settings().IntermediateTable
	}
	out.VerboseLog("decomposing %s (intermediate table %q)", path, intermediate)

	steps, err := stepwise.New(stepwise.Options{IntermediateTable: intermediate}).Decompose(tree.New(query))
	if err != nil {
		if outErr := out.Error(ErrCodeDecompose, err.Error(), map[string]any{"path": path}); outErr != nil {
			return tree.NodeModel{}, nil, "", outErr
		}
		return tree.NodeModel{}, nil, "", WrapExitError(ExitCommandError, "failed to decompose query", err)
	}
	return query, steps, intermediate, nil
}

func saveRun(ctx context.Context, opts *DecomposeOptions, query tree.NodeModel, intermediate string, steps []stepwise.Step) (store.Run, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.settings().Database
	}

	var storeOpts []store.Option
	if opts.RunIDs != nil {
		storeOpts = append(storeOpts, store.WithRunIDGenerator(opts.RunIDs))
	}
	st, err := store.Open(dbPath, storeOpts...)
	if err != nil {
		return store.Run{}, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	run, err := st.SaveRun(ctx, query, intermediate, steps)
	if err != nil {
		return store.Run{}, WrapExitError(ExitFailure, "failed to save run", err)
	}
	return run, nil
}
