package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a translation test case.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Schemas is inline CUE source declaring tables.
	Schemas string `yaml:"schemas,omitempty"`

	// SchemaDirs are CUE package directories declaring tables.
	SchemaDirs []string `yaml:"schema_dirs,omitempty"`

	// Imports are documents translated before the scenario's document.
	Imports []ImportStep `yaml:"imports,omitempty"`

	// URL is the document's URL; relative imports resolve against it.
	// Defaults to DefaultURL.
	URL string `yaml:"url,omitempty"`

	// Document is the document under test.
	Document yaml.Node `yaml:"document"`

	// Assertions are checked against the translation.
	Assertions []Assertion `yaml:"assertions"`
}

// DefaultURL is the document URL of a scenario that names none.
const DefaultURL = "file:///scenario.yaml"

// ImportStep is a document made available to imports under URL.
type ImportStep struct {
	URL      string    `yaml:"url"`
	Document yaml.Node `yaml:"document"`
}

// Assertion is one check on the translation.
type Assertion struct {
	// Type is the kind of assertion (diagnostic_contains, diagnostic_count,
	// exports, field_type, query_fields).
	Type string `yaml:"type"`

	// Message is the substring to find (used by diagnostic_contains).
	Message string `yaml:"message,omitempty"`

	// Severity restricts diagnostic assertions to one severity.
	Severity string `yaml:"severity,omitempty"`

	// Count is the expected number of diagnostics (used by diagnostic_count).
	Count int `yaml:"count,omitempty"`

	// Names is the expected export list (used by exports).
	Names []string `yaml:"names,omitempty"`

	// Struct and Field locate a field (used by field_type).
	Struct string `yaml:"struct,omitempty"`
	Field  string `yaml:"field,omitempty"`

	// Expect is the expected field type (used by field_type).
	Expect string `yaml:"expect,omitempty"`

	// Query names a query, or "#N" for the Nth anonymous one, and Stage
	// indexes its pipeline (used by query_fields).
	Query string `yaml:"query,omitempty"`
	Stage int    `yaml:"stage,omitempty"`

	// Fields are the expected output names (used by query_fields).
	Fields []string `yaml:"fields,omitempty"`
}

// Assertion type constants.
const (
	AssertDiagnosticContains = "diagnostic_contains"
	AssertDiagnosticCount    = "diagnostic_count"
	AssertExports            = "exports"
	AssertFieldType          = "field_type"
	AssertQueryFields        = "query_fields"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving schema directories relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve schema paths relative to base path BEFORE validation
	for i, dir := range scenario.SchemaDirs {
		if !filepath.IsAbs(dir) && basePath != "" {
			scenario.SchemaDirs[i] = filepath.Join(basePath, dir)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without validating schema paths.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Document.Kind == 0 {
		return fmt.Errorf("document is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, dir := range s.SchemaDirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("schema directory not found: %s", dir)
		}
	}

	for i, imp := range s.Imports {
		if imp.URL == "" {
			return fmt.Errorf("imports[%d]: url is required", i)
		}
		if imp.Document.Kind == 0 {
			return fmt.Errorf("imports[%d]: document is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Severity {
	case "", "error", "warning":
	default:
		return fmt.Errorf("assertions[%d]: severity must be error or warning, not %q", index, a.Severity)
	}

	switch a.Type {
	case AssertDiagnosticContains:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for diagnostic_contains", index)
		}
	case AssertDiagnosticCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for diagnostic_count", index)
		}
	case AssertExports:
		if a.Names == nil {
			return fmt.Errorf("assertions[%d]: names is required for exports (use [] for none)", index)
		}
	case AssertFieldType:
		if a.Struct == "" || a.Field == "" || a.Expect == "" {
			return fmt.Errorf("assertions[%d]: struct, field and expect are required for field_type", index)
		}
	case AssertQueryFields:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for query_fields", index)
		}
		if a.Stage < 0 {
			return fmt.Errorf("assertions[%d]: stage must be non-negative for query_fields", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
