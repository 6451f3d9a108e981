package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querysteps/internal/querysql"
	"github.com/roach88/querysteps/internal/stepwise"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	Intermediate string
	Params       map[string]string
}

// StepSQL is one step rendered as SQL.
type StepSQL struct {
	Index  int    `json:"index"`
	Kind   string `json:"kind"`
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`

	// PreAggregation is set for groupBy steps.
	PreAggregation string `json:"pre_aggregation,omitempty"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <query-file>",
		Short: "Print the SQL of every step",
		Long: `Decompose a query and print each step as a SQLite statement.

Parameters are emitted as "?" placeholders. Values given with --param
are listed with the statement; they are never written into the SQL.

Examples:
  querysteps sql query.yaml
  querysteps sql query.yaml --param raum=A
  querysteps sql query.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Intermediate, "intermediate", "", "placeholder for the joined tables in later cross steps")
	cmd.Flags().StringToStringVar(&opts.Params, "param", nil, "parameter value as name=value (repeatable)")

	return cmd
}

func runSQL(opts *SQLOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	_, steps, _, err := decomposeFile(opts.RootOptions, path, opts.Intermediate, out)
	if err != nil {
		return err
	}

	compiler := querysql.NewCompiler()
	for name, value := range opts.Params {
		compiler.BoundValues[name] = value
	}

	rendered, err := compileSteps(compiler, steps)
	if err != nil {
		if outErr := out.Error(ErrCodeCompile, err.Error(), map[string]any{"path": path}); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "failed to render step", err)
	}

	if out.JSON() {
		return out.Success(rendered)
	}

	var b strings.Builder
	for i, s := range rendered {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "-- step %d: %s %s\n", s.Index, s.Kind, describeStep(steps[i].Description))
		fmt.Fprintf(&b, "%s;\n", s.SQL)
		if len(s.Params) > 0 {
			fmt.Fprintf(&b, "-- params: %v\n", s.Params)
		}
		if s.PreAggregation != "" {
			fmt.Fprintf(&b, "-- rows before grouping:\n-- %s;\n", s.PreAggregation)
		}
	}
	return out.Success(strings.TrimSuffix(b.String(), "\n"))
}

func compileSteps(compiler *querysql.Compiler, steps []stepwise.Step) ([]StepSQL, error) {
	rendered := make([]StepSQL, 0, len(steps))
	for i, step := range steps {
		sqlText, params, err := compiler.Compile(step.Tree)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		s := StepSQL{Index: i, Kind: string(step.Description.Kind()), SQL: sqlText, Params: params}

		if g, ok := step.Description.(stepwise.GroupBy); ok {
			pre, _, err := compiler.Compile(g.PreAggregation)
			if err != nil {
				return nil, fmt.Errorf("step %d pre-aggregation: %w", i, err)
			}
			s.PreAggregation = pre
		}
		rendered = append(rendered, s)
	}
	return rendered, nil
}
