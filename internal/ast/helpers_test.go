package ast

import (
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/mtrans/internal/diag"
	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/zone"
)

func table(name string, fields ...model.FieldDef) *model.StructDef {
	return &model.StructDef{
		Name:               name,
		StructSource:       model.StructSource{Type: model.SourceTable},
		StructRelationship: model.StructRelationship{Type: model.RelationshipBaseTable},
		Fields:             fields,
	}
}

func col(name string, t model.FieldType) model.FieldDef {
	return model.FieldDef{Name: name, Type: t}
}

func flightsTable() *model.StructDef {
	return table("flights",
		col("id", model.TypeNumber),
		col("carrier", model.TypeString),
		col("dep_time", model.TypeTimestamp),
		col("dep_date", model.TypeDate),
		col("distance", model.TypeNumber),
	)
}

func tableX() *model.StructDef {
	return table("table_x",
		col("id", model.TypeNumber),
		col("name", model.TypeString),
	)
}

func carriersTable() *model.StructDef {
	return table("carriers",
		col("code", model.TypeString),
		col("nickname", model.TypeString),
	)
}

// newTestContext returns a context with three known tables and a fresh
// diagnostic list.
func newTestContext(t *testing.T) (*Context, *diag.List) {
	t.Helper()
	list := diag.NewList()
	ctx := NewContext(list, "file:///test/model.yaml")
	ctx.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx.Schemas = zone.Map[*model.StructDef]{
		"flights":  zone.Present(flightsTable()),
		"table_x":  zone.Present(tableX()),
		"carriers": zone.Present(carriersTable()),
		"broken":   zone.Failed[*model.StructDef]("permission denied"),
		"slow":     zone.Pending[*model.StructDef](),
	}
	return ctx, list
}

// run executes a document and returns its model.
func run(t *testing.T, ctx *Context, stmts ...Statement) (*model.ModelDef, *Document) {
	t.Helper()
	doc := NewDocument(stmts...)
	return doc.ModelDef(ctx, nil), doc
}

func stage(props ...QueryProperty) *QueryDesc {
	return NewQueryDesc(props...)
}

func pipe(segs ...*QueryDesc) *PipelineDesc {
	return NewPipelineDesc("").AddSegments(segs...)
}

func count(name string) *ExprFieldDecl {
	return NewExprFieldDecl(name, NewExprAggregate(AggCount, "", nil))
}

func recoverInternal(f func()) (ie *InternalError) {
	defer func() {
		if r := recover(); r != nil {
			ie, _ = r.(*InternalError)
		}
	}()
	f()
	return nil
}
