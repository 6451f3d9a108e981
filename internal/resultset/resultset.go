// Package resultset holds query results and renders them as text tables.
//
// Group buckets the rows of a pre-aggregation query by its key columns, so a
// GROUP BY step can be shown as the groups it forms rather than as the
// aggregated rows it finally yields.
package resultset

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Null is how SQL NULL is rendered.
const Null = "NULL"

// Table is a materialised query result. Rows are in result order and each
// row has len(Columns) cells.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Bucket is one group of rows sharing a key.
type Bucket struct {
	Key  []any   `json:"key"`
	Rows [][]any `json:"rows"`
}

// Groups is a Table split into buckets. KeyColumns name the grouping
// columns, Columns the remaining ones; bucket rows hold only the latter.
type Groups struct {
	KeyColumns []string `json:"key_columns"`
	Columns    []string `json:"columns"`
	Buckets    []Bucket `json:"buckets"`
}

// Group splits t into buckets by the cells at keyPositions. Buckets appear
// in order of the first row carrying their key, and rows keep their
// relative order inside a bucket.
func Group(t Table, keyPositions []int) (Groups, error) {
	isKey := make(map[int]bool, len(keyPositions))
	for _, p := range keyPositions {
		if p < 0 || p >= len(t.Columns) {
			return Groups{}, fmt.Errorf("key position %d out of range [0,%d)", p, len(t.Columns))
		}
		isKey[p] = true
	}

	out := Groups{
		KeyColumns: make([]string, 0, len(keyPositions)),
		Columns:    make([]string, 0, len(t.Columns)-len(isKey)),
		Buckets:    []Bucket{},
	}
	for _, p := range keyPositions {
		out.KeyColumns = append(out.KeyColumns, t.Columns[p])
	}
	for i, c := range t.Columns {
		if !isKey[i] {
			out.Columns = append(out.Columns, c)
		}
	}

	index := make(map[string]int)
	for _, row := range t.Rows {
		key := make([]any, len(keyPositions))
		for i, p := range keyPositions {
			key[i] = row[p]
		}
		rest := make([]any, 0, len(out.Columns))
		for i, cell := range row {
			if !isKey[i] {
				rest = append(rest, cell)
			}
		}

		id := keyID(key)
		b, ok := index[id]
		if !ok {
			b = len(out.Buckets)
			index[id] = b
			out.Buckets = append(out.Buckets, Bucket{Key: key})
		}
		out.Buckets[b].Rows = append(out.Buckets[b].Rows, rest)
	}
	return out, nil
}

// keyID identifies a key by its rendered cells. The type prefix keeps the
// integer 1 and the string "1" apart. Numbers compare by value, as in SQLite,
// so the integer 1 and the real 1.0 share a bucket.
func keyID(key []any) string {
	var b strings.Builder
	for _, v := range key {
		if n, ok := numericKey(v); ok {
			fmt.Fprintf(&b, "num:%s\x00", n)
			continue
		}
		fmt.Fprintf(&b, "%T:%s\x00", v, Cell(v))
	}
	return b.String()
}

func numericKey(v any) (string, bool) {
	switch n := v.(type) {
	case int64:
		return strconv.FormatInt(n, 10), true
	case int:
		return strconv.Itoa(n), true
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64 {
			return strconv.FormatInt(int64(n), 10), true
		}
		return strconv.FormatFloat(n, 'g', -1, 64), true
	default:
		return "", false
	}
}

// Cell renders a single value.
func Cell(v any) string {
	switch val := v.(type) {
	case nil:
		return Null
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

func newWriter() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	return tbl
}

func header(columns []string) table.Row {
	row := make(table.Row, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	return row
}

func cells(values []any) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = Cell(v)
	}
	return row
}

// Render formats t as a text table with a row count footer.
func Render(t Table) string {
	tbl := newWriter()
	tbl.AppendHeader(header(t.Columns))
	for _, r := range t.Rows {
		tbl.AppendRow(cells(r))
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(t.Rows))})
	return tbl.Render()
}

// RenderGroups formats g with one block per bucket. The key cells are
// printed on the first row of each bucket only.
func RenderGroups(g Groups) string {
	tbl := newWriter()
	tbl.AppendHeader(header(slices.Concat(g.KeyColumns, g.Columns)))
	for i, b := range g.Buckets {
		if i > 0 {
			tbl.AppendSeparator()
		}
		blank := make(table.Row, len(b.Key))
		for j, r := range b.Rows {
			key := blank
			if j == 0 {
				key = cells(b.Key)
			}
			tbl.AppendRow(append(slices.Clone(key), cells(r)...))
		}
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d groups", len(g.Buckets))})
	return tbl.Render()
}
