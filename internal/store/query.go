package store

import (
	"context"
	"fmt"

	"github.com/roach88/querysteps/internal/resultset"
)

// Query executes a read query, typically the compiled SQL of a step, and
// materialises the result. TEXT values scanned as []byte become strings.
func (s *Store) Query(ctx context.Context, query string, args ...any) (resultset.Table, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return resultset.Table{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return resultset.Table{}, fmt.Errorf("query columns: %w", err)
	}

	table := resultset.Table{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return resultset.Table{}, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return resultset.Table{}, fmt.Errorf("iterate rows: %w", err)
	}
	return table, nil
}
