package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// schemasDir is the shared CUE fixture package.
func schemasDir() string {
	return filepath.Join("..", "..", "testdata", "schemas")
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const flightsDoc = `
statements:
  - define_source:
      name: flights_src
      export: true
      source:
        table: flights
        refine:
          - measures:
              flight_count: {count: null}
  - run:
      from: {named: flights_src}
      pipeline:
        - - group_by: [carrier]
          - aggregate: [flight_count]
`

const brokenDoc = `
statements:
  - define_source: {name: a, source: {table: nope}}
  - run:
      from: {named: ghost}
`
