package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mtrans/internal/model"
)

// Snapshot captures what a scenario translated to.
// It is serialized as canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string          `json:"scenario_name"`
	Model        *model.ModelDef `json:"model"`
	Queries      []*model.Query  `json:"queries"`
	Diagnostics  []string        `json:"diagnostics"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		ScenarioName: name,
		Model:        result.Model,
		Queries:      result.Queries,
		Diagnostics:  make([]string, len(result.Diagnostics)),
	}
	for i, d := range result.Diagnostics {
		s.Diagnostics[i] = d.String()
	}
	return s
}

// RunWithGolden executes a scenario and compares the translation against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := model.MarshalCanonical(NewSnapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
