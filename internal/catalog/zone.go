package catalog

import (
	"context"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/zone"
)

// SchemaZone returns the catalog as a schema zone. A lookup that fails
// at the database level is reported as an error entry.
func (c *Catalog) SchemaZone(ctx context.Context) zone.SchemaZone {
	return schemaZone{c: c, ctx: ctx}
}

// ImportZone returns the catalog as an import zone keyed by document URL.
func (c *Catalog) ImportZone(ctx context.Context) zone.ImportZone {
	return importZone{c: c, ctx: ctx}
}

type schemaZone struct {
	c   *Catalog
	ctx context.Context
}

func (z schemaZone) Lookup(name string) zone.Entry[*model.StructDef] {
	entry, err := z.c.Schema(z.ctx, name)
	if err != nil {
		return zone.Failed[*model.StructDef](err.Error())
	}
	return entry
}

type importZone struct {
	c   *Catalog
	ctx context.Context
}

func (z importZone) Lookup(url string) zone.Entry[*model.ModelDef] {
	entry, err := z.c.Model(z.ctx, url)
	if err != nil {
		return zone.Failed[*model.ModelDef](err.Error())
	}
	return entry
}
