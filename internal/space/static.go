package space

import (
	"github.com/roach88/mtrans/internal/model"
)

// Space resolves names while an expression is evaluated.
type Space interface {
	// Lookup resolves a possibly dotted field path.
	Lookup(path string) (model.FieldDef, bool)
	// Parameter returns a parameter declared on the underlying source.
	Parameter(name string) (model.Parameter, bool)
	// Names lists the top-level names visible in the space, for hints.
	Names() []string
}

// Static is a read-only space over a finished schema.
type Static struct {
	def *model.StructDef
}

// NewStatic wraps def. The schema is treated as immutable and is not copied.
func NewStatic(def *model.StructDef) *Static {
	return &Static{def: def}
}

// StructDef returns the schema the space was built over.
func (s *Static) StructDef() *model.StructDef {
	return s.def
}

// Lookup implements Space.
func (s *Static) Lookup(path string) (model.FieldDef, bool) {
	f, _, ok := model.LookupPath(s.def, path)
	return f, ok
}

// Parameter implements Space.
func (s *Static) Parameter(name string) (model.Parameter, bool) {
	p, ok := s.def.Parameters[name]
	return p, ok
}

// Names implements Space.
func (s *Static) Names() []string {
	return s.def.FieldNames()
}
