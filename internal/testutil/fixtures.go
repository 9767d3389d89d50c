package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/zone"
)

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Field is a name/type pair for Table.
type Field struct {
	Name string
	Type model.FieldType
}

// Table builds a base table schema. pk may be empty.
func Table(name, pk string, fields ...Field) *model.StructDef {
	def := &model.StructDef{
		Name:               name,
		StructSource:       model.StructSource{Type: model.SourceTable},
		StructRelationship: model.StructRelationship{Type: model.RelationshipBaseTable},
		PrimaryKey:         pk,
		Fields:             make([]model.FieldDef, 0, len(fields)),
	}
	for _, f := range fields {
		def.Fields = append(def.Fields, model.FieldDef{Name: f.Name, Type: f.Type})
	}
	return def
}

// Flights is the flights table most tests resolve against.
func Flights() *model.StructDef {
	return Table("flights", "id",
		Field{"id", model.TypeNumber},
		Field{"carrier", model.TypeString},
		Field{"origin", model.TypeString},
		Field{"distance", model.TypeNumber},
		Field{"dep_time", model.TypeTimestamp},
		Field{"dep_date", model.TypeDate},
	)
}

// Carriers is a table flights can join on carrier.
func Carriers() *model.StructDef {
	return Table("carriers", "code",
		Field{"code", model.TypeString},
		Field{"name", model.TypeString},
	)
}

// SchemaZone returns an in-memory schema zone holding defs by name.
func SchemaZone(defs ...*model.StructDef) zone.Map[*model.StructDef] {
	z := zone.Map[*model.StructDef]{}
	for _, d := range defs {
		z[d.Name] = zone.Present(d)
	}
	return z
}

// ImportZone returns an in-memory import zone holding models by URL.
func ImportZone(models map[string]*model.ModelDef) zone.Map[*model.ModelDef] {
	z := zone.Map[*model.ModelDef]{}
	for url, m := range models {
		z[url] = zone.Present(m)
	}
	return z
}
