package space

import (
	"slices"

	"github.com/roach88/mtrans/internal/model"
)

// EditMode selects how a field-list edit filters the base schema.
type EditMode string

const (
	Accept EditMode = "accept"
	Except EditMode = "except"
)

// Edit is an accept/except field list applied before refinement.
type Edit struct {
	Mode  EditMode
	Names []string
}

// Builder accumulates a refined schema over a private copy of a base schema.
//
// A Builder is single-use: after Snapshot it rejects every mutation.
type Builder struct {
	def    *model.StructDef
	frozen bool
}

// NewBuilder starts a builder over a deep copy of from.
func NewBuilder(from *model.StructDef) *Builder {
	def := from.Clone()
	if def.Fields == nil {
		def.Fields = []model.FieldDef{}
	}
	return &Builder{def: def}
}

// FilteredFrom starts a builder over from, keeping (accept) or dropping
// (except) the named fields. Names in the edit that the base schema does not
// define are returned so the caller can report them.
func FilteredFrom(from *model.StructDef, edit *Edit) (*Builder, []string) {
	b := NewBuilder(from)
	if edit == nil {
		return b, nil
	}
	var missing []string
	for _, name := range edit.Names {
		if _, ok := b.def.Field(name); !ok {
			missing = append(missing, name)
		}
	}
	b.def.Fields = slices.DeleteFunc(b.def.Fields, func(f model.FieldDef) bool {
		listed := slices.Contains(edit.Names, f.Identifier())
		if edit.Mode == Accept {
			return !listed
		}
		return listed
	})
	return b, missing
}

func (b *Builder) mutable() {
	if b.frozen {
		panic(&FrozenError{Schema: b.def.Identifier()})
	}
}

// AddField registers f. A field with the same identifier is overwritten in
// place and replaced reports true.
func (b *Builder) AddField(f model.FieldDef) (replaced bool) {
	b.mutable()
	name := f.Identifier()
	for i, existing := range b.def.Fields {
		if existing.Identifier() == name {
			b.def.Fields[i] = f
			return true
		}
	}
	b.def.Fields = append(b.def.Fields, f)
	return false
}

// Rename gives the field known as oldName the identifier newName, keeping
// its position. It reports false when oldName is not a field.
// If newName was already taken, that field is dropped and replaced is true.
func (b *Builder) Rename(newName, oldName string) (found, replaced bool) {
	b.mutable()
	idx := slices.IndexFunc(b.def.Fields, func(f model.FieldDef) bool {
		return f.Identifier() == oldName
	})
	if idx < 0 {
		return false, false
	}
	b.def.Fields[idx].As = newName
	if b.def.Fields[idx].Name == newName {
		b.def.Fields[idx].As = ""
	}
	for i, f := range b.def.Fields {
		if i != idx && f.Identifier() == newName {
			b.def.Fields = slices.Delete(b.def.Fields, i, i+1)
			return true, true
		}
	}
	return true, false
}

// SetPrimaryKey records the primary key field name.
func (b *Builder) SetPrimaryKey(name string) {
	b.mutable()
	b.def.PrimaryKey = name
}

// AddParameters declares params on the schema. Later declarations of the
// same name win.
func (b *Builder) AddParameters(params ...model.Parameter) {
	b.mutable()
	if len(params) == 0 {
		return
	}
	if b.def.Parameters == nil {
		b.def.Parameters = make(map[string]model.Parameter, len(params))
	}
	for _, p := range params {
		b.def.Parameters[p.Name] = p
	}
}

// AddFilters appends to the schema's filter list.
func (b *Builder) AddFilters(filters ...model.FilterExpression) {
	b.mutable()
	b.def.FilterList = append(b.def.FilterList, filters...)
}

// Lookup implements Space over the schema as built so far.
func (b *Builder) Lookup(path string) (model.FieldDef, bool) {
	f, _, ok := model.LookupPath(b.def, path)
	return f, ok
}

// Parameter implements Space.
func (b *Builder) Parameter(name string) (model.Parameter, bool) {
	p, ok := b.def.Parameters[name]
	return p, ok
}

// Names implements Space.
func (b *Builder) Names() []string {
	return b.def.FieldNames()
}

// Current returns a static view over a copy of the schema as built so far.
// The builder stays mutable.
func (b *Builder) Current() *Static {
	return NewStatic(b.def.Clone())
}

// Snapshot freezes the builder and returns the finished schema.
// The returned schema shares nothing with the builder.
func (b *Builder) Snapshot() *model.StructDef {
	b.mutable()
	b.frozen = true
	return b.def.Clone()
}
