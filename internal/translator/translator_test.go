package translator

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mtrans/internal/ast"
	"github.com/roach88/mtrans/internal/diag"
	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/space"
	"github.com/roach88/mtrans/internal/zone"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func schemas() zone.Map[*model.StructDef] {
	return zone.Map[*model.StructDef]{
		"table_x": zone.Present(&model.StructDef{
			Name:               "table_x",
			StructSource:       model.StructSource{Type: model.SourceTable},
			StructRelationship: model.StructRelationship{Type: model.RelationshipBaseTable},
			Fields: []model.FieldDef{
				{Name: "id", Type: model.TypeNumber},
				{Name: "name", Type: model.TypeString},
			},
		}),
	}
}

func exampleDoc() *ast.Document {
	return ast.NewDocument(
		ast.NewDefineSource("e", ast.NewRefinedSource(ast.NewTableSource("table_x"),
			ast.NewSourceDesc(ast.NewPrimaryKey(ast.NewFieldName("id")))), true),
		ast.NewDocumentQuery(ast.NewFullQuery(ast.NewNamedSource("e", nil),
			ast.NewPipelineDesc("").AddSegments(ast.NewQueryDesc(
				ast.NewGroupBy(ast.NewFieldName("id")),
				ast.NewAggregate(ast.NewExprFieldDecl("c", ast.NewExprAggregate(ast.AggCount, "", nil))),
			))), 0),
	)
}

func TestTranslate(t *testing.T) {
	tr := New("file:///m.yaml",
		WithSchemaZone(schemas()),
		WithIDGenerator(NewFixedGenerator("t-1")),
		WithLogger(discard()),
	)
	res, err := tr.Translate(exampleDoc())
	require.NoError(t, err)

	assert.Equal(t, "t-1", res.ID)
	assert.True(t, res.Usable())
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"e"}, res.Model.Exports)
	assert.Equal(t, "id", res.Model.Structs["e"].PrimaryKey)
	require.Len(t, res.Queries, 1)
	assert.Equal(t, []string{"id", "c"}, res.Queries[0].Pipeline[0].FieldNames())
}

func TestTranslateCollectsDiagnostics(t *testing.T) {
	doc := ast.NewDocument(
		ast.NewDefineSource("a", ast.NewTableSource("missing"), true),
		ast.NewDefineSource("b", ast.NewNamedSource("nope", nil), true),
	)
	res, err := New("file:///m.yaml", WithLogger(discard())).Translate(doc)
	require.NoError(t, err)

	assert.False(t, res.Usable())
	require.Len(t, res.Problems(), 2)
	assert.Equal(t, "Schema read failure for table 'missing'", res.Problems()[0].Message)
	assert.Equal(t, "Undefined data source 'nope'", res.Problems()[1].Message)
	assert.Equal(t, "file:///m.yaml", res.Problems()[0].SourceURL)
	assert.Equal(t, []string{"a", "b"}, res.Model.Exports, "failed definitions are still entered")
}

func TestWarningsKeepResultUsable(t *testing.T) {
	res := &Result{Diagnostics: []diag.Diagnostic{{Message: "Field 'x' redefined", Severity: diag.SeverityWarning}}}
	assert.True(t, res.Usable())
	assert.Empty(t, res.Problems())
}

func TestTranslateInternalError(t *testing.T) {
	doc := ast.NewDocument(
		ast.NewDefineQuery("q", ast.NewExistingQuery(ast.NewPipelineDesc("")), false),
	)
	res, err := New("file:///m.yaml", WithLogger(discard()), WithIDGenerator(NewFixedGenerator("t-2"))).Translate(doc)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "can't make query from nameless query")
	require.NotNil(t, res)
	assert.Equal(t, "t-2", res.ID)
	assert.Nil(t, res.Model)
	require.Len(t, res.Diagnostics, 1)
}

func TestTranslateWithBase(t *testing.T) {
	base := model.NewModelDef("base")
	base.Structs["e"] = schemas()["table_x"].Value
	base.Exports = []string{"e"}

	doc := ast.NewDocument(ast.NewDefineSource("f", ast.NewNamedSource("e", nil), false))
	res, err := New("file:///m.yaml", WithBase(base), WithLogger(discard())).Translate(doc)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"e"}, res.Model.Exports)
	assert.Contains(t, res.Model.Structs, "f")
}

func TestTranslateImports(t *testing.T) {
	lib := model.NewModelDef("lib")
	lib.Structs["e"] = schemas()["table_x"].Value
	lib.Exports = []string{"e"}

	doc := ast.NewDocument(
		ast.NewImportStatement("lib.yaml", "file:///models/main.yaml"),
		ast.NewDefineSource("f", ast.NewNamedSource("e", nil), true),
	)
	res, err := New("file:///models/main.yaml",
		WithImportZone(zone.Map[*model.ModelDef]{"file:///models/lib.yaml": zone.Present(lib)}),
		WithLogger(discard()),
	).Translate(doc)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"f"}, res.Model.Exports)
}

func TestTranslateLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	doc := ast.NewDocument(ast.NewDefineSource("a", ast.NewTableSource("missing"), true))

	_, err := New("file:///m.yaml", WithLogger(logger), WithIDGenerator(NewFixedGenerator("t-3"))).Translate(doc)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "translation starting")
	assert.Contains(t, out, "translation finished")
	assert.Contains(t, out, "translation=t-3")
	assert.Contains(t, out, "Schema read failure for table 'missing'")
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	a := UUIDv7Generator{}.Generate()
	b := UUIDv7Generator{}.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestInternalFailure(t *testing.T) {
	frozen := &space.FrozenError{Schema: "flights"}
	cause, ok := internalFailure(frozen)
	require.True(t, ok)
	assert.Same(t, frozen, cause)

	ie := &ast.InternalError{Element: "pipelineDesc", Message: "boom"}
	cause, ok = internalFailure(ie)
	require.True(t, ok)
	assert.Same(t, ie, cause)

	_, ok = internalFailure("plain panic")
	assert.False(t, ok)
}
