package model

import "strings"

// LookupPath resolves a dotted field path against a struct, descending
// through joined (TypeStruct) fields. The returned slice holds the structs
// traversed before the final field, outermost first.
func LookupPath(s *StructDef, path string) (FieldDef, []*StructDef, bool) {
	parts := strings.Split(path, ".")
	current := s
	var via []*StructDef
	for i, part := range parts {
		f, ok := current.Field(part)
		if !ok {
			return FieldDef{}, nil, false
		}
		if i == len(parts)-1 {
			return f, via, true
		}
		if f.Type != TypeStruct || f.Struct == nil {
			return FieldDef{}, nil, false
		}
		via = append(via, current)
		current = f.Struct
	}
	return FieldDef{}, nil, false
}

// NextStructDef computes the output schema of one pipeline stage.
//
// The result is a query-sourced base table whose fields are the stage's
// output items in order. References are resolved against in; computed
// items become plain columns of their declared type. NextStructDef is a pure
// function: neither argument is modified.
func NextStructDef(in *StructDef, seg Segment) *StructDef {
	out := &StructDef{
		Name:               in.Identifier(),
		StructSource:       StructSource{Type: SourceQuery},
		StructRelationship: StructRelationship{Type: RelationshipBaseTable},
		Fields:             make([]FieldDef, 0, len(seg.Fields)),
	}
	for _, item := range seg.Fields {
		var f FieldDef
		if item.Def != nil {
			f = item.Def.Clone()
		} else {
			found, _, ok := LookupPath(in, item.Ref)
			if !ok {
				f = FieldDef{Name: item.OutputName(), Type: TypeUnknown}
			} else {
				f = found.Clone()
			}
		}
		f.Name = item.OutputName()
		f.As = ""
		if f.IsScalar() {
			f.Expression = nil
			f.Aggregate = false
			f.Timeframe = ""
		}
		out.Fields = append(out.Fields, f)
	}
	return out
}

// WalkPipeline applies NextStructDef to every stage in order and returns the
// final shape.
func WalkPipeline(in *StructDef, pipeline []Segment) *StructDef {
	shape := in
	for _, seg := range pipeline {
		shape = NextStructDef(shape, seg)
	}
	return shape
}

func lastPathElement(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}
