package stepwise

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/querysteps/internal/tree"
)

// Kind names a step's description variant.
type Kind string

const (
	KindCross   Kind = "cross"
	KindOn      Kind = "on"
	KindUsing   Kind = "using"
	KindWhere   Kind = "where"
	KindGroupBy Kind = "groupBy"
	KindSelect  Kind = "select"
	KindOrderBy Kind = "orderBy"
)

// Description tells what a step added to the accumulated query.
//
// This is a sealed interface; the variants are Cross, On, Using, Where,
// GroupBy, Select and OrderBy.
type Description interface {
	Kind() Kind
	description() // seals the interface to this package
}

// Cross describes the cartesian product of two tables. The first table is
// IntermediateTable (or the configured placeholder) once more than one
// product has been formed.
type Cross struct {
	Tables []string
}

// On describes the filter of a JOIN ... ON.
type On struct {
	Expressions []string
}

// Using describes the columns of a JOIN ... USING.
type Using struct {
	Expressions []string
}

// Where describes the WHERE predicate.
type Where struct {
	Expressions []string
}

// GroupBy describes the grouping keys.
//
// PreAggregation is a query yielding the rows before aggregation: the
// grouping expressions first, followed by every column. KeyColumns holds
// the positions of the grouping expressions in that projection, so a
// result renderer can bucket the raw rows.
type GroupBy struct {
	Expressions    []string
	PreAggregation tree.NodeModel
	KeyColumns     []int
}

// Select describes the projected expressions.
type Select struct {
	Expressions []string
}

// OrderBy describes the sort items.
type OrderBy struct {
	Expressions []string
}

func (Cross) Kind() Kind   { return KindCross }
func (On) Kind() Kind      { return KindOn }
func (Using) Kind() Kind   { return KindUsing }
func (Where) Kind() Kind   { return KindWhere }
func (GroupBy) Kind() Kind { return KindGroupBy }
func (Select) Kind() Kind  { return KindSelect }
func (OrderBy) Kind() Kind { return KindOrderBy }

func (Cross) description()   {}
func (On) description()      {}
func (Using) description()   {}
func (Where) description()   {}
func (GroupBy) description() {}
func (Select) description()  {}
func (OrderBy) description() {}

// Step is one unit of decomposition output.
type Step struct {
	Tree        tree.NodeModel
	Description Description
}

// Kinds lists the description kinds of steps in order.
func Kinds(steps []Step) []Kind {
	kinds := make([]Kind, len(steps))
	for i, s := range steps {
		kinds[i] = s.Description.Kind()
	}
	return kinds
}

// EvaluationOrder matches the KindSequence of every decomposition: the
// products with their filters, then WHERE, GROUP BY, SELECT and ORDER BY.
var EvaluationOrder = regexp.MustCompile(`^(cross (on |using )?)*(where )?(groupBy )?select (orderBy )?$`)

// KindSequence lists the kinds of steps, each followed by a space.
func KindSequence(steps []Step) string {
	var b strings.Builder
	for _, k := range Kinds(steps) {
		b.WriteString(string(k))
		b.WriteString(" ")
	}
	return b.String()
}

// descriptionWire is the JSON shape of a Description.
type descriptionWire struct {
	Type           Kind            `json:"type"`
	Tables         []string        `json:"tables,omitempty"`
	Expressions    []string        `json:"expressions,omitempty"`
	PreAggregation *tree.NodeModel `json:"pre_aggregation,omitempty"`
	KeyColumns     []int           `json:"key_columns,omitempty"`
}

func toWire(d Description) (descriptionWire, error) {
	switch desc := d.(type) {
	case Cross:
		return descriptionWire{Type: KindCross, Tables: desc.Tables}, nil
	case On:
		return descriptionWire{Type: KindOn, Expressions: desc.Expressions}, nil
	case Using:
		return descriptionWire{Type: KindUsing, Expressions: desc.Expressions}, nil
	case Where:
		return descriptionWire{Type: KindWhere, Expressions: desc.Expressions}, nil
	case GroupBy:
		pre := desc.PreAggregation
		return descriptionWire{
			Type:           KindGroupBy,
			Expressions:    desc.Expressions,
			PreAggregation: &pre,
			KeyColumns:     desc.KeyColumns,
		}, nil
	case Select:
		return descriptionWire{Type: KindSelect, Expressions: desc.Expressions}, nil
	case OrderBy:
		return descriptionWire{Type: KindOrderBy, Expressions: desc.Expressions}, nil
	default:
		return descriptionWire{}, fmt.Errorf("unsupported description type: %T", d)
	}
}

func fromWire(w descriptionWire) (Description, error) {
	switch w.Type {
	case KindCross:
		return Cross{Tables: w.Tables}, nil
	case KindOn:
		return On{Expressions: w.Expressions}, nil
	case KindUsing:
		return Using{Expressions: w.Expressions}, nil
	case KindWhere:
		return Where{Expressions: w.Expressions}, nil
	case KindGroupBy:
		g := GroupBy{Expressions: w.Expressions, KeyColumns: w.KeyColumns}
		if w.PreAggregation != nil {
			g.PreAggregation = *w.PreAggregation
		}
		return g, nil
	case KindSelect:
		return Select{Expressions: w.Expressions}, nil
	case KindOrderBy:
		return OrderBy{Expressions: w.Expressions}, nil
	default:
		return nil, fmt.Errorf("unknown description type %q", w.Type)
	}
}

// MarshalDescription encodes a description as JSON with a "type" tag.
func MarshalDescription(d Description) ([]byte, error) {
	w, err := toWire(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalDescription decodes the output of MarshalDescription.
func UnmarshalDescription(data []byte) (Description, error) {
	var w descriptionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal description: %w", err)
	}
	return fromWire(w)
}

type stepWire struct {
	Tree        tree.NodeModel  `json:"tree"`
	Description json.RawMessage `json:"description"`
}

// MarshalJSON implements json.Marshaler.
func (s Step) MarshalJSON() ([]byte, error) {
	desc, err := MarshalDescription(s.Description)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stepWire{Tree: s.Tree, Description: desc})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Step) UnmarshalJSON(data []byte) error {
	var w stepWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	desc, err := UnmarshalDescription(w.Description)
	if err != nil {
		return err
	}
	s.Tree = w.Tree
	s.Description = desc
	return nil
}

// CanonicalValue implements canonical.Valuer. Used for golden traces and
// content hashes of stored runs.
func (s Step) CanonicalValue() any {
	desc := map[string]any{"type": string(s.Description.Kind())}

	w, err := toWire(s.Description)
	if err == nil {
		if len(w.Tables) > 0 {
			desc["tables"] = w.Tables
		}
		if len(w.Expressions) > 0 {
			desc["expressions"] = w.Expressions
		}
		if w.PreAggregation != nil {
			desc["pre_aggregation"] = *w.PreAggregation
		}
		if len(w.KeyColumns) > 0 {
			desc["key_columns"] = w.KeyColumns
		}
	}

	return map[string]any{
		"tree":        s.Tree,
		"description": desc,
	}
}
