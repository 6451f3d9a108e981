package harness

import "github.com/roach88/querysteps/internal/stepwise"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Steps are the steps the decomposition produced.
	Steps []stepwise.Step `json:"steps"`

	// RowCounts holds the number of rows each step's SQL returned on the
	// sample data. Nil without sample data.
	RowCounts []int `json:"row_counts,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []stepwise.Step{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
