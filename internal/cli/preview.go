package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querysteps/internal/querysql"
	"github.com/roach88/querysteps/internal/resultset"
	"github.com/roach88/querysteps/internal/stepwise"
	"github.com/roach88/querysteps/internal/store"
)

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	Intermediate string
	Database     string
	SeedFile     string
	MaxRows      int
	Params       map[string]string
}

// PreviewStep is the outcome of running one step.
type PreviewStep struct {
	Index     int               `json:"index"`
	Kind      string            `json:"kind"`
	SQL       string            `json:"sql"`
	Rows      int               `json:"row_count"`
	Truncated bool              `json:"truncated,omitempty"`
	Result    resultset.Table   `json:"result"`
	Groups    *resultset.Groups `json:"groups,omitempty"`
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview <query-file>",
		Short: "Run every step against a database",
		Long: `Decompose a query and execute each step, showing the intermediate
result of every clause. A GROUP BY step is shown as the groups it forms.

The database is seeded first with the script given by --seed and the
preview.seed config setting. Without --db an in-memory database is used.

Examples:
  querysteps preview query.yaml --seed sample.sql
  querysteps preview query.yaml --db ./data.db --max-rows 10
  querysteps preview query.yaml --seed sample.sql --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Intermediate, "intermediate", "", "placeholder for the joined tables in later cross steps")
	cmd.Flags().StringVar(&opts.Database, "db", ":memory:", "path to SQLite database holding the data")
	cmd.Flags().StringVar(&opts.SeedFile, "seed", "", "SQL script to run before the steps")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", -1, "rows shown per step (default from config, 0 for all)")
	cmd.Flags().StringToStringVar(&opts.Params, "param", nil, "parameter value as name=value (repeatable)")

	return cmd
}

func runPreview(opts *PreviewOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)
	cfg := opts.settings()

	_, steps, _, err := decomposeFile(opts.RootOptions, path, opts.Intermediate, out)
	if err != nil {
		return err
	}

	maxRows := opts.MaxRows
	if maxRows < 0 {
		maxRows = cfg.Preview.MaxRows
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := seed(ctx, st, cfg.Preview.Seed, opts.SeedFile); err != nil {
		return WrapExitError(ExitCommandError, "failed to seed database", err)
	}

	compiler := querysql.NewCompiler()
	for name, value := range opts.Params {
		compiler.BoundValues[name] = value
	}

	results := make([]PreviewStep, 0, len(steps))
	for i, step := range steps {
		res, err := previewStep(ctx, st, compiler, i, step)
		if err != nil {
			if outErr := out.Error(ErrCodeExecute, err.Error(), map[string]any{"step": i}); outErr != nil {
				return outErr
			}
			return WrapExitError(ExitFailure, fmt.Sprintf("step %d failed", i), err)
		}
		res.Truncated = truncate(&res.Result, maxRows)
		results = append(results, res)
		out.VerboseLog("step %d: %d rows", i, res.Rows)
	}

	if out.JSON() {
		return out.Success(results)
	}

	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Step %d: %s %s\n", res.Index, res.Kind, describeStep(steps[i].Description))
		fmt.Fprintf(&b, "%s\n", res.SQL)
		if res.Groups != nil {
			b.WriteString(resultset.RenderGroups(*res.Groups))
		} else {
			b.WriteString(resultset.Render(res.Result))
		}
		if res.Truncated {
			fmt.Fprintf(&b, "\n(showing %d of %d rows)", len(res.Result.Rows), res.Rows)
		}
	}
	return out.Success(b.String())
}

// seed runs the configured seed script, then the seed file.
func seed(ctx context.Context, st *store.Store, script, file string) error {
	if script != "" {
		if err := st.Seed(ctx, script); err != nil {
			return err
		}
	}
	if file == "" {
		return nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	return st.Seed(ctx, string(data))
}

func previewStep(ctx context.Context, st *store.Store, compiler *querysql.Compiler, i int, step stepwise.Step) (PreviewStep, error) {
	sqlText, params, err := compiler.Compile(step.Tree)
	if err != nil {
		return PreviewStep{}, err
	}
	table, err := st.Query(ctx, sqlText, params...)
	if err != nil {
		return PreviewStep{}, err
	}
	res := PreviewStep{
		Index:  i,
		Kind:   string(step.Description.Kind()),
		SQL:    sqlText,
		Rows:   len(table.Rows),
		Result: table,
	}

	g, ok := step.Description.(stepwise.GroupBy)
	if !ok {
		return res, nil
	}
	preSQL, preParams, err := compiler.Compile(g.PreAggregation)
	if err != nil {
		return PreviewStep{}, fmt.Errorf("pre-aggregation: %w", err)
	}
	pre, err := st.Query(ctx, preSQL, preParams...)
	if err != nil {
		return PreviewStep{}, fmt.Errorf("pre-aggregation: %w", err)
	}
	groups, err := resultset.Group(pre, g.KeyColumns)
	if err != nil {
		return PreviewStep{}, err
	}
	res.Groups = &groups
	return res, nil
}

// truncate keeps the first maxRows rows of t. Zero keeps all of them.
func truncate(t *resultset.Table, maxRows int) bool {
	if maxRows == 0 || len(t.Rows) <= maxRows {
		return false
	}
	t.Rows = t.Rows[:maxRows]
	return true
}
