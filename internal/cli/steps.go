package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/roach88/querysteps/internal/stepwise"
)

// describeStep renders a step description on one line.
func describeStep(d stepwise.Description) string {
	switch desc := d.(type) {
	case stepwise.Cross:
		return strings.Join(desc.Tables, " x ")
	case stepwise.On:
		return strings.Join(desc.Expressions, ", ")
	case stepwise.Using:
		return "(" + strings.Join(desc.Expressions, ", ") + ")"
	case stepwise.Where:
		return strings.Join(desc.Expressions, ", ")
	case stepwise.GroupBy:
		return fmt.Sprintf("%s (key columns %v)", strings.Join(desc.Expressions, ", "), desc.KeyColumns)
	case stepwise.Select:
		return strings.Join(desc.Expressions, ", ")
	case stepwise.OrderBy:
		return strings.Join(desc.Expressions, ", ")
	default:
		return ""
	}
}

// stepsTable renders steps as a numbered table.
func stepsTable(steps []stepwise.Step) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Kind", "Description"})
	for i, s := range steps {
		tw.AppendRow(table.Row{i, string(s.Description.Kind()), describeStep(s.Description)})
	}
	return tw.Render()
}
