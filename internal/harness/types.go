package harness

import (
	"github.com/roach88/mtrans/internal/diag"
	"github.com/roach88/mtrans/internal/model"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if the translation completed and every assertion holds.
	Pass bool `json:"pass"`

	// ID is the translation ID of the scenario's document.
	ID string `json:"id"`

	// Model is the translated model of the scenario's document.
	Model *model.ModelDef `json:"model"`

	// Queries are the anonymous queries in declaration order.
	Queries []*model.Query `json:"queries"`

	// Diagnostics are everything the document's translation logged.
	Diagnostics []diag.Diagnostic `json:"diagnostics"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Queries:     []*model.Query{},
		Diagnostics: []diag.Diagnostic{},
		Errors:      []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
