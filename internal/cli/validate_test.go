package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mtrans/internal/compiler"
	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/translator"
)

func TestValidateValidDocument(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "flights.yaml", flightsDoc)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), doc,
		"--schemas", schemasDir(), "--base", "file:///flights.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ file:///flights.yaml is valid")
}

func TestValidateValidDocumentJSON(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "flights.yaml", flightsDoc)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), doc, "--schemas", schemasDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["valid"])
}

func TestValidateReportsDiagnostics(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "broken.yaml", brokenDoc)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), doc)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Len(t, resp.Data.Diagnostics, 2)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDiagnostics, resp.Error.Code)
}

func TestValidateNonExistentDocument(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/doc.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E020]")
}

func TestValidateAllPrefixesQueryPaths(t *testing.T) {
	m := model.NewModelDef("")
	m.Exports = []string{"ghost"}
	res := &translator.Result{
		Model: m,
		Queries: []*model.Query{
			{StructRef: model.RefByName("flights")},
			{
				StructRef: model.RefByName("flights"),
				Pipeline:  []model.Segment{{Type: model.SegmentProjection, Limit: model.IntPtr(-1)}},
			},
		},
	}

	errs := validateAll(res, &OutputFormatter{Format: "text", Writer: &bytes.Buffer{}})
	require.Len(t, errs, 2)
	assert.Equal(t, compiler.ErrUnknownExport, errs[0].Code)
	assert.Equal(t, compiler.ErrNegativeLimit, errs[1].Code)
	assert.Equal(t, "queries[1].pipeline[0].limit", errs[1].Field)
}

func TestOutputValidationText(t *testing.T) {
	buf := &bytes.Buffer{}
	err := outputValidationText(buf, ValidationResult{
		URL:    "file:///x.yaml",
		Errors: []compiler.ValidationError{{Field: "exports[0]", Message: "export \"ghost\" names no struct or query", Code: compiler.ErrUnknownExport}},
	})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "[E107] exports[0]:")
	assert.Contains(t, buf.String(), "✗ 0 diagnostic(s), 1 validation error(s)")
	assert.Equal(t, ErrCodeInvalid, validationCode(ValidationResult{Errors: []compiler.ValidationError{{}}}))
}
