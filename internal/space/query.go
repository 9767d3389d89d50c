package space

import (
	"github.com/roach88/mtrans/internal/model"
)

// Query is the field space of one pipeline stage. It collects the stage's
// output items over an input schema.
//
// Lookups see the stage's own computed items first, then the input. That
// lets a having filter or an ordering refer to an aggregate declared in the
// same stage.
type Query struct {
	kind  model.SegmentType
	input *Static
	items []model.SegmentField
}

// NewReduce creates a grouping stage space.
func NewReduce(input *Static) *Query {
	return &Query{kind: model.SegmentGrouping, input: input}
}

// NewProject creates a projection stage space.
func NewProject(input *Static) *Query {
	return &Query{kind: model.SegmentProjection, input: input}
}

// Kind returns the segment type the space produces.
func (q *Query) Kind() model.SegmentType {
	return q.kind
}

// Input returns the space the stage reads from.
func (q *Query) Input() *Static {
	return q.input
}

// AddRef adds a reference to an input field. The field must exist and hold
// a scalar value; a projection also rejects measures.
func (q *Query) AddRef(path string) (replaced bool, err error) {
	f, ok := q.input.Lookup(path)
	if !ok {
		return false, fieldError(ErrUndefined, path)
	}
	if !f.IsScalar() {
		return false, fieldError(ErrNotScalar, path)
	}
	if q.kind == model.SegmentProjection && f.Aggregate {
		return false, fieldError(ErrAggregateInProject, path)
	}
	return q.put(model.FieldRef(path)), nil
}

// AddDef adds a computed item.
func (q *Query) AddDef(def model.FieldDef) (replaced bool, err error) {
	if !def.IsScalar() && def.Type != model.TypeUnknown {
		return false, fieldError(ErrNotScalar, def.Identifier())
	}
	if q.kind == model.SegmentProjection && def.Aggregate {
		return false, fieldError(ErrAggregateInProject, def.Identifier())
	}
	return q.put(model.FieldDecl(def)), nil
}

// ExpandWildcard adds every scalar input field matched by a wildcard.
// join names the joined struct the wildcard is qualified with ("" for the
// input itself); star is "*" for one level or "**" to descend into joins.
// The names that collided with earlier items are returned.
func (q *Query) ExpandWildcard(join, star string) (replaced []string, err error) {
	root := q.input.StructDef()
	prefix := ""
	if join != "" {
		f, ok := q.input.Lookup(join)
		if !ok {
			return nil, fieldError(ErrUndefined, join)
		}
		if f.Type != model.TypeStruct || f.Struct == nil {
			return nil, fieldError(ErrNotJoin, join)
		}
		root = f.Struct
		prefix = join + "."
	}
	for _, path := range wildcardPaths(root, prefix, star == "**") {
		item := model.FieldRef(path)
		if q.put(item) {
			replaced = append(replaced, item.OutputName())
		}
	}
	return replaced, nil
}

func wildcardPaths(s *model.StructDef, prefix string, deep bool) []string {
	var paths []string
	for _, f := range s.Fields {
		switch {
		case f.IsScalar() && !f.Aggregate:
			paths = append(paths, prefix+f.Identifier())
		case deep && f.Type == model.TypeStruct && f.Struct != nil:
			paths = append(paths, wildcardPaths(f.Struct, prefix+f.Identifier()+".", true)...)
		}
	}
	return paths
}

func (q *Query) put(item model.SegmentField) bool {
	name := item.OutputName()
	for i, existing := range q.items {
		if existing.OutputName() == name {
			q.items[i] = item
			return true
		}
	}
	q.items = append(q.items, item)
	return false
}

// Lookup implements Space.
func (q *Query) Lookup(path string) (model.FieldDef, bool) {
	for _, item := range q.items {
		if item.Def != nil && item.Def.Identifier() == path {
			return *item.Def, true
		}
	}
	return q.input.Lookup(path)
}

// Parameter implements Space.
func (q *Query) Parameter(name string) (model.Parameter, bool) {
	return q.input.Parameter(name)
}

// Names implements Space.
func (q *Query) Names() []string {
	names := q.input.Names()
	for _, item := range q.items {
		if item.Def != nil {
			names = append(names, item.Def.Identifier())
		}
	}
	return names
}

// Fields returns the stage's output items. existing items (from a stage
// being refined) come first; items added to this space follow. An added
// item whose name matches an existing one replaces it in place, and its
// name is reported in redefined.
func (q *Query) Fields(existing []model.SegmentField) (fields []model.SegmentField, redefined []string) {
	fields = make([]model.SegmentField, 0, len(existing)+len(q.items))
	for _, f := range existing {
		fields = append(fields, f.Clone())
	}
	for _, item := range q.items {
		name := item.OutputName()
		merged := false
		for i := range existing {
			if fields[i].OutputName() == name {
				fields[i] = item.Clone()
				redefined = append(redefined, name)
				merged = true
				break
			}
		}
		if !merged {
			fields = append(fields, item.Clone())
		}
	}
	return fields, redefined
}
