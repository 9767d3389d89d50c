// Package harness runs translation scenarios: documents resolved against
// inline table schemas, checked against expected diagnostics and model
// shape, and snapshotted as canonical model JSON.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schemas: |
//	  table: flights: {
//	    primary_key: "id"
//	    fields: { id: "number", carrier: "string" }
//	  }
//	schema_dirs:
//	  - testdata/schemas
//	imports:
//	  - url: file:///lib.yaml
//	    document:
//	      statements: [...]
//	url: file:///scenario.yaml
//	document:
//	  statements:
//	    - define_source: {name: f, export: true, source: {table: flights}}
//	assertions:
//	  - type: diagnostic_count
//	    count: 0
//	  - type: exports
//	    names: [f]
//
// Schemas are stored in a fresh in-memory catalog. Each import is
// translated in order and stored under its URL (as an error entry when the
// translation is not usable), so later imports and the document can import
// it.
//
// # Assertion Types
//
//   - diagnostic_contains: some diagnostic's message contains message (and
//     has severity, when given)
//   - diagnostic_count: exactly count diagnostics (of severity, when given)
//   - exports: the model's export list equals names
//   - field_type: struct's field has type expect
//   - query_fields: the output names of a query stage equal fields; query
//     is a name of the model or "#N" for the Nth anonymous query
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON of the translated model and
// anonymous queries against testdata/golden/<name>.golden. To regenerate:
//
//	go test ./internal/harness -update
package harness
