package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Define(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: golden_define
description: A single exported table source
schemas: |
  table: t: { primary_key: "id", fields: { id: "number" } }
document:
  statements:
    - define_source: {name: t2, export: true, source: {table: t}}
assertions:
  - type: exports
    names: [t2]
`))
	require.NoError(t, err)

	// First run with -update to create golden file:
	//   go test ./internal/harness -run TestRunWithGolden_Define -update
	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "golden_define-1", result.ID)
}

func TestNewSnapshot_RendersDiagnostics(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: snapshot_diag
description: An undefined table
document:
  statements:
    - define_source: {name: a, source: {table: nope}}
assertions:
  - type: diagnostic_count
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	snap := NewSnapshot(scenario.Name, result)
	require.Len(t, snap.Diagnostics, 1)
	assert.Contains(t, snap.Diagnostics[0], "file:///scenario.yaml:")
	assert.Contains(t, snap.Diagnostics[0], "Schema read failure for table 'nope'")
	assert.Equal(t, "snapshot_diag", snap.ScenarioName)
}
