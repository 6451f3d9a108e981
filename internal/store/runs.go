package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/querysteps/internal/canonical"
	"github.com/roach88/querysteps/internal/stepwise"
	"github.com/roach88/querysteps/internal/tree"
)

// Run is a stored decomposition.
type Run struct {
	ID                string
	Seq               int64
	Query             tree.NodeModel
	QueryHash         string
	IntermediateTable string
	Steps             []stepwise.Step
}

// RunSummary is a Run without its query and steps.
type RunSummary struct {
	ID        string `json:"id"`
	Seq       int64  `json:"seq"`
	QueryHash string `json:"query_hash"`
	StepCount int    `json:"step_count"`
}

// SaveRun stores a decomposition of query under a new run ID.
// The run and all its steps are written in one transaction.
func (s *Store) SaveRun(ctx context.Context, query tree.NodeModel, intermediate string, steps []stepwise.Step) (Run, error) {
	queryJSON, err := canonical.Marshal(query)
	if err != nil {
		return Run{}, fmt.Errorf("save run: marshal query: %w", err)
	}
	queryHash, err := tree.Fingerprint(query)
	if err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("save run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM qs_runs`).Scan(&seq); err != nil {
		return Run{}, fmt.Errorf("save run: next seq: %w", err)
	}

	run := Run{
		ID:                s.ids.Generate(),
		Seq:               seq,
		Query:             query,
		QueryHash:         queryHash,
		IntermediateTable: intermediate,
		Steps:             steps,
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO qs_runs (id, seq, query, query_hash, intermediate_table, step_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Seq, string(queryJSON), run.QueryHash, run.IntermediateTable, len(steps))
	if err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return Run{}, fmt.Errorf("save run: rows affected: %w", err)
	} else if n == 0 {
		return Run{}, fmt.Errorf("save run: run %q already exists", run.ID)
	}

	for i, step := range steps {
		if err := writeStep(ctx, tx, run.ID, i, step); err != nil {
			return Run{}, fmt.Errorf("save run: step %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("save run: commit: %w", err)
	}

	slog.Info("saved decomposition run",
		"run_id", run.ID,
		"seq", run.Seq,
		"steps", len(steps))
	return run, nil
}

func writeStep(ctx context.Context, tx *sql.Tx, runID string, idx int, step stepwise.Step) error {
	treeJSON, err := canonical.Marshal(step.Tree)
	if err != nil {
		return fmt.Errorf("marshal tree: %w", err)
	}
	treeHash, err := tree.Fingerprint(step.Tree)
	if err != nil {
		return err
	}
	desc, err := stepwise.MarshalDescription(step.Description)
	if err != nil {
		return fmt.Errorf("marshal description: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO qs_steps (run_id, idx, kind, tree, tree_hash, description)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, idx, string(step.Description.Kind()), string(treeJSON), treeHash, string(desc))
	return err
}

// ReadRun retrieves a run and its steps by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var (
		run       Run
		queryJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, query, query_hash, intermediate_table
		FROM qs_runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Seq, &queryJSON, &run.QueryHash, &run.IntermediateTable)
	if err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(queryJSON), &run.Query); err != nil {
		return Run{}, fmt.Errorf("read run %s: unmarshal query: %w", id, err)
	}

	steps, err := s.readSteps(ctx, id)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	run.Steps = steps
	return run, nil
}

func (s *Store) readSteps(ctx context.Context, runID string) ([]stepwise.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tree, description
		FROM qs_steps
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []stepwise.Step{}
	for rows.Next() {
		var treeJSON, descJSON string
		if err := rows.Scan(&treeJSON, &descJSON); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}

		var step stepwise.Step
		if err := json.Unmarshal([]byte(treeJSON), &step.Tree); err != nil {
			return nil, fmt.Errorf("unmarshal step tree: %w", err)
		}
		if step.Description, err = stepwise.UnmarshalDescription([]byte(descJSON)); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// ListRuns returns all runs ordered by seq ASC, id ASC COLLATE BINARY.
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, query_hash, step_count
		FROM qs_runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Seq, &r.QueryHash, &r.StepCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// FindRunsByQuery returns the IDs of runs whose input query has the given
// fingerprint, oldest first.
func (s *Store) FindRunsByQuery(ctx context.Context, queryHash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM qs_runs
		WHERE query_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, queryHash)
	if err != nil {
		return nil, fmt.Errorf("query runs by hash: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
