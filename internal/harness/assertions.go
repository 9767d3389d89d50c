package harness

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/mtrans/internal/diag"
	"github.com/roach88/mtrans/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type        string            // Assertion type for categorization
	Expected    string            // Human-readable expected outcome
	Actual      string            // Human-readable actual outcome
	Diagnostics []diag.Diagnostic // All diagnostics for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Diagnostics) > 0 {
		fmt.Fprintf(&buf, "\nDiagnostics:\n")
		for i, d := range e.Diagnostics {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, d.String())
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. All assertions are evaluated (no fail-fast).
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertDiagnosticContains:
		return assertDiagnosticContains(result, a)
	case AssertDiagnosticCount:
		return assertDiagnosticCount(result, a)
	case AssertExports:
		return assertExports(result, a)
	case AssertFieldType:
		return assertFieldType(result, a)
	case AssertQueryFields:
		return assertQueryFields(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// filterSeverity returns the diagnostics of severity, or all when empty.
func filterSeverity(ds []diag.Diagnostic, severity string) []diag.Diagnostic {
	if severity == "" {
		return ds
	}
	var out []diag.Diagnostic
	for _, d := range ds {
		if string(d.Severity) == severity {
			out = append(out, d)
		}
	}
	return out
}

func assertDiagnosticContains(result *Result, a Assertion) error {
	for _, d := range filterSeverity(result.Diagnostics, a.Severity) {
		if strings.Contains(d.Message, a.Message) {
			return nil
		}
	}
	expected := fmt.Sprintf("a diagnostic containing %q", a.Message)
	if a.Severity != "" {
		expected = fmt.Sprintf("an %s diagnostic containing %q", a.Severity, a.Message)
	}
	return &AssertionError{
		Type:        AssertDiagnosticContains,
		Expected:    expected,
		Actual:      "not found",
		Diagnostics: result.Diagnostics,
	}
}

func assertDiagnosticCount(result *Result, a Assertion) error {
	got := len(filterSeverity(result.Diagnostics, a.Severity))
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:        AssertDiagnosticCount,
		Expected:    fmt.Sprintf("%d diagnostics", a.Count),
		Actual:      fmt.Sprintf("%d diagnostics", got),
		Diagnostics: result.Diagnostics,
	}
}

func assertExports(result *Result, a Assertion) error {
	var got []string
	if result.Model != nil {
		got = result.Model.Exports
	}
	if slices.Equal(got, a.Names) || (len(got) == 0 && len(a.Names) == 0) {
		return nil
	}
	return &AssertionError{
		Type:     AssertExports,
		Expected: fmt.Sprintf("%v", a.Names),
		Actual:   fmt.Sprintf("%v", got),
	}
}

func assertFieldType(result *Result, a Assertion) error {
	fail := func(actual string) error {
		return &AssertionError{
			Type:     AssertFieldType,
			Expected: fmt.Sprintf("%s.%s of type %s", a.Struct, a.Field, a.Expect),
			Actual:   actual,
		}
	}
	if result.Model == nil {
		return fail("no model")
	}
	s, ok := result.Model.Structs[a.Struct]
	if !ok {
		return fail(fmt.Sprintf("no struct %q", a.Struct))
	}
	f, ok := s.Field(a.Field)
	if !ok {
		return fail(fmt.Sprintf("no field %q", a.Field))
	}
	if string(f.Type) != a.Expect {
		return fail(string(f.Type))
	}
	return nil
}

func assertQueryFields(result *Result, a Assertion) error {
	fail := func(actual string) error {
		return &AssertionError{
			Type:     AssertQueryFields,
			Expected: fmt.Sprintf("query %s stage %d fields %v", a.Query, a.Stage, a.Fields),
			Actual:   actual,
		}
	}
	q, err := findQuery(result, a.Query)
	if err != nil {
		return fail(err.Error())
	}
	if a.Stage >= len(q.Pipeline) {
		return fail(fmt.Sprintf("pipeline has %d stages", len(q.Pipeline)))
	}
	got := q.Pipeline[a.Stage].FieldNames()
	if !slices.Equal(got, a.Fields) {
		return fail(fmt.Sprintf("%v", got))
	}
	return nil
}

// findQuery resolves "#N" to the Nth anonymous query, anything else to a
// named query of the model.
func findQuery(result *Result, ref string) (*model.Query, error) {
	if n, ok := strings.CutPrefix(ref, "#"); ok {
		i, err := strconv.Atoi(n)
		if err != nil || i < 0 || i >= len(result.Queries) {
			return nil, fmt.Errorf("no anonymous query %s", ref)
		}
		return result.Queries[i], nil
	}
	if result.Model == nil {
		return nil, fmt.Errorf("no model")
	}
	q, ok := result.Model.Queries[ref]
	if !ok {
		return nil, fmt.Errorf("no query %q", ref)
	}
	return q, nil
}
