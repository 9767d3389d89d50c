package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mtrans/internal/catalog"
	"github.com/roach88/mtrans/internal/loader"
	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/testutil"
	"github.com/roach88/mtrans/internal/translator"
)

// Harness is the scenario execution engine.
// It translates with deterministic translation IDs.
type Harness struct {
	catalog *catalog.Catalog
	ids     *testutil.SequenceGenerator
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory catalog for isolation.
//
// Execution flow:
// 1. Create fresh in-memory catalog
// 2. Compile inline schemas and schema directories into it
// 3. Translate imports in order, storing each model under its URL
// 4. Translate the document
// 5. Return result with pass/fail, model, diagnostics and errors
func Run(scenario *Scenario) (*Result, error) {
	cat, err := catalog.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory catalog: %w", err)
	}
	defer cat.Close()

	h := &Harness{
		catalog: cat,
		ids:     testutil.NewSequenceGenerator(scenario.Name),
		logger:  testutil.Discard(), // Suppress logs in tests
	}

	ctx := context.Background()

	if err := h.loadSchemas(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	for i, imp := range scenario.Imports {
		if err := h.executeImport(ctx, imp); err != nil {
			return nil, fmt.Errorf("import %d: %w", i, err)
		}
	}

	url := scenario.URL
	if url == "" {
		url = DefaultURL
	}
	tr, err := h.translate(ctx, url, &scenario.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to translate document: %w", err)
	}

	result := NewResult()
	result.ID = tr.ID
	result.Model = tr.Model
	result.Queries = tr.Queries
	result.Diagnostics = append(result.Diagnostics, tr.Diagnostics...)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// loadSchemas compiles every schema source and stores the tables.
// Compile errors fail the scenario; a scenario's schemas are fixtures.
func (h *Harness) loadSchemas(ctx context.Context, s *Scenario) error {
	var defs []*model.StructDef
	var errs []error
	if strings.TrimSpace(s.Schemas) != "" {
		d, e := loader.CompileSchemaString(s.Schemas, s.Name+".cue")
		defs = append(defs, d...)
		errs = append(errs, e...)
	}
	for _, dir := range s.SchemaDirs {
		d, e := loader.LoadSchemas(dir)
		defs = append(defs, d...)
		errs = append(errs, e...)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	for _, def := range defs {
		if err := h.catalog.PutSchema(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

// executeImport translates an import and stores it. A translation with
// errors is stored as a failed entry carrying its first problem.
func (h *Harness) executeImport(ctx context.Context, imp ImportStep) error {
	tr, err := h.translate(ctx, imp.URL, &imp.Document)
	if err != nil {
		return err
	}
	if problems := tr.Problems(); len(problems) > 0 {
		h.logger.Info("import unusable", "url", imp.URL, "problems", len(problems))
		return h.catalog.MarkModelError(ctx, imp.URL, problems[0].Message)
	}
	_, err = h.catalog.PutModel(ctx, imp.URL, tr.Model)
	return err
}

func (h *Harness) translate(ctx context.Context, url string, node *yaml.Node) (*translator.Result, error) {
	doc, err := loader.DecodeDocumentNode(node, url)
	if err != nil {
		return nil, err
	}
	t := translator.New(url,
		translator.WithSchemaZone(h.catalog.SchemaZone(ctx)),
		translator.WithImportZone(h.catalog.ImportZone(ctx)),
		translator.WithIDGenerator(h.ids),
		translator.WithLogger(h.logger),
	)
	res, err := t.Translate(doc)
	if err != nil {
		return nil, err
	}
	h.logger.Info("translation completed",
		"url", url,
		"translation", res.ID,
		"diagnostics", len(res.Diagnostics),
	)
	return res, nil
}
