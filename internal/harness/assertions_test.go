package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mtrans/internal/diag"
	"github.com/roach88/mtrans/internal/model"
)

func sampleResult() *Result {
	r := NewResult()
	m := model.NewModelDef("")
	m.Structs["flights"] = &model.StructDef{
		Name: "flights",
		Fields: []model.FieldDef{
			{Name: "id", Type: model.TypeNumber},
			{Name: "carrier", Type: model.TypeString},
		},
	}
	m.Queries = map[string]*model.Query{
		"by_carrier": {
			StructRef: model.RefByName("flights"),
			Pipeline: []model.Segment{{
				Type:   model.SegmentGrouping,
				Fields: []model.SegmentField{model.FieldRef("carrier")},
			}},
		},
	}
	m.Exports = []string{"flights"}
	r.Model = m
	r.Queries = []*model.Query{{
		StructRef: model.RefByName("flights"),
		Pipeline: []model.Segment{
			{Type: model.SegmentProjection, Fields: []model.SegmentField{model.FieldRef("id"), model.FieldRef("carrier")}},
			{Type: model.SegmentProjection, Fields: []model.SegmentField{model.FieldRef("id")}},
		},
	}}
	r.Diagnostics = []diag.Diagnostic{
		{Message: "'a' already defined", Severity: diag.SeverityError, SourceURL: "file:///x.yaml"},
		{Message: "deprecated syntax", Severity: diag.SeverityWarning, SourceURL: "file:///x.yaml"},
	}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertDiagnosticContains, Message: "already defined"},
		{Type: AssertDiagnosticContains, Message: "deprecated", Severity: "warning"},
		{Type: AssertDiagnosticCount, Count: 2},
		{Type: AssertDiagnosticCount, Count: 1, Severity: "error"},
		{Type: AssertExports, Names: []string{"flights"}},
		{Type: AssertFieldType, Struct: "flights", Field: "carrier", Expect: "string"},
		{Type: AssertQueryFields, Query: "by_carrier", Fields: []string{"carrier"}},
		{Type: AssertQueryFields, Query: "#0", Fields: []string{"id", "carrier"}},
		{Type: AssertQueryFields, Query: "#0", Stage: 1, Fields: []string{"id"}},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"missing message", Assertion{Type: AssertDiagnosticContains, Message: "nope"}, `a diagnostic containing "nope"`},
		{"wrong severity", Assertion{Type: AssertDiagnosticContains, Message: "deprecated", Severity: "error"}, `an error diagnostic containing "deprecated"`},
		{"count", Assertion{Type: AssertDiagnosticCount, Count: 0}, "Actual: 2 diagnostics"},
		{"exports", Assertion{Type: AssertExports, Names: []string{}}, "Actual: [flights]"},
		{"no struct", Assertion{Type: AssertFieldType, Struct: "ghost", Field: "id", Expect: "number"}, `no struct "ghost"`},
		{"no field", Assertion{Type: AssertFieldType, Struct: "flights", Field: "ghost", Expect: "number"}, `no field "ghost"`},
		{"wrong type", Assertion{Type: AssertFieldType, Struct: "flights", Field: "id", Expect: "string"}, "Actual: number"},
		{"no named query", Assertion{Type: AssertQueryFields, Query: "ghost"}, `no query "ghost"`},
		{"no anonymous query", Assertion{Type: AssertQueryFields, Query: "#4"}, "no anonymous query #4"},
		{"bad index", Assertion{Type: AssertQueryFields, Query: "#x"}, "no anonymous query #x"},
		{"stage out of range", Assertion{Type: AssertQueryFields, Query: "#0", Stage: 2}, "pipeline has 2 stages"},
		{"wrong fields", Assertion{Type: AssertQueryFields, Query: "#0", Fields: []string{"carrier", "id"}}, "Actual: [id carrier]"},
		{"unknown type", Assertion{Type: "trace_contains"}, `unknown assertion type "trace_contains"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "assertion 0:")
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestEvaluateAssertions_NoModel(t *testing.T) {
	r := NewResult()
	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertExports, Names: []string{}},
		{Type: AssertFieldType, Struct: "s", Field: "f", Expect: "number"},
		{Type: AssertQueryFields, Query: "q"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "no model")
	assert.Contains(t, errs[1], "no model")
}

func TestAssertionError_IncludesDiagnostics(t *testing.T) {
	r := sampleResult()
	err := &AssertionError{
		Type:        AssertDiagnosticCount,
		Expected:    "0 diagnostics",
		Actual:      "2 diagnostics",
		Diagnostics: r.Diagnostics,
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: diagnostic_count")
	assert.Contains(t, msg, "Expected: 0 diagnostics")
	assert.Contains(t, msg, "[1] "+r.Diagnostics[0].String())
	assert.Contains(t, msg, "[2] "+r.Diagnostics[1].String())
}
