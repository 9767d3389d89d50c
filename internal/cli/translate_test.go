package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateText(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "flights.yaml", flightsDoc)

	out, err := execute(t, NewTranslateCommand(&RootOptions{Format: "text"}), doc, "--schemas", schemasDir())
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Translated file://")
	assert.Contains(t, out, "Sources: 1")
	assert.Contains(t, out, "Queries: 1")
	assert.Contains(t, out, "Exports: [flights_src]")
}

func TestTranslateJSON(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "flights.yaml", flightsDoc)

	out, err := execute(t, NewTranslateCommand(&RootOptions{Format: "json"}), doc,
		"--schemas", schemasDir(), "--base", "file:///models/flights.yaml")
	require.NoError(t, err)

	var resp struct {
		Status        string            `json:"status"`
		TranslationID string            `json:"translation_id"`
		Data          TranslationOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.TranslationID)
	assert.Equal(t, resp.TranslationID, resp.Data.ID)
	assert.Equal(t, "file:///models/flights.yaml", resp.Data.URL)
	assert.Empty(t, resp.Data.Diagnostics)
	require.Len(t, resp.Data.Queries, 1)
}

func TestTranslateDiagnosticsExitOne(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "broken.yaml", brokenDoc)

	out, err := execute(t, NewTranslateCommand(&RootOptions{Format: "text"}), doc,
		"--base", "file:///broken.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "file:///broken.yaml:")
	assert.Contains(t, out, "Schema read failure for table 'nope'")
	assert.Contains(t, out, "Undefined data source 'ghost'")
	assert.Contains(t, out, "✗ file:///broken.yaml: 2 error(s)")
}

func TestTranslateDiagnosticsJSON(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "broken.yaml", brokenDoc)

	out, err := execute(t, NewTranslateCommand(&RootOptions{Format: "json"}), doc)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDiagnostics, resp.Error.Code)
	assert.Equal(t, "translation logged 2 error(s)", resp.Error.Message)
}

func TestTranslateWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "flights.yaml", flightsDoc)
	outFile := filepath.Join(dir, "model.json")

	out, err := execute(t, NewTranslateCommand(&RootOptions{Format: "text"}), doc,
		"--schemas", schemasDir(), "-o", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Output: "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"model":{`), "canonical keys are sorted: %s", data)
	assert.Contains(t, string(data), `"exports":["flights_src"]`)
	assert.NotContains(t, string(data), "\n")
}

func TestTranslateCommandErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.yaml", "statements:\n  - explore: x\n")
	good := writeFile(t, dir, "good.yaml", flightsDoc)

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"missing document", []string{filepath.Join(dir, "missing.yaml")}, ErrCodeReadFailed},
		{"undecodable document", []string{bad}, ErrCodeDecodeFailed},
		{"missing schema dir", []string{good, "--schemas", filepath.Join(dir, "nope")}, "E005"},
		{"unwritable output", []string{good, "--out", filepath.Join(dir, "no", "such", "dir", "m.json")}, ErrCodeWriteFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewTranslateCommand(&RootOptions{Format: "json"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestTranslateSchemaCompileErrors(t *testing.T) {
	dir := t.TempDir()
	schemas := filepath.Join(dir, "schemas")
	writeFile(t, schemas, "bad.cue", `package schemas

table: a: { fields: { x: "blob" } }
table: b: { primary_key: "nope", fields: { x: "number" } }
`)
	doc := writeFile(t, dir, "doc.yaml", "statements: []\n")

	out, err := execute(t, NewTranslateCommand(&RootOptions{Format: "text", Verbose: true}), doc, "--schemas", schemas)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E012]: 2 schema error(s)")
	assert.Contains(t, out, "Details:")
}

func TestFileURL(t *testing.T) {
	u := fileURL("/models/flights.yaml")
	assert.Equal(t, "file:///models/flights.yaml", u)

	rel := fileURL("flights.yaml")
	assert.True(t, strings.HasPrefix(rel, "file:///"))
	assert.True(t, strings.HasSuffix(rel, "/flights.yaml"))
}
