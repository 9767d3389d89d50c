package model

// Deep copies. Every published schema or query is copied so that later
// builder mutation can never reach a stored entry.

// Clone returns a deep copy of the struct.
func (s *StructDef) Clone() *StructDef {
	if s == nil {
		return nil
	}
	out := *s
	out.StructSource.Query = s.StructSource.Query.Clone()
	if s.Fields != nil {
		out.Fields = make([]FieldDef, len(s.Fields))
		for i, f := range s.Fields {
			out.Fields[i] = f.Clone()
		}
	}
	out.Parameters = cloneParameters(s.Parameters)
	out.FilterList = cloneFilters(s.FilterList)
	return &out
}

// Clone returns a deep copy of the field.
func (f FieldDef) Clone() FieldDef {
	out := f
	out.Expression = f.Expression.Clone()
	out.Struct = f.Struct.Clone()
	out.Pipeline = ClonePipeline(f.Pipeline)
	return out
}

// Clone returns a deep copy of the query.
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}
	out := &Query{
		StructRef: StructRef{Name: q.StructRef.Name, Def: q.StructRef.Def.Clone()},
		Pipeline:  ClonePipeline(q.Pipeline),
	}
	if out.Pipeline == nil {
		out.Pipeline = []Segment{}
	}
	return out
}

// ClonePipeline returns a deep copy of a list of segments.
func ClonePipeline(p []Segment) []Segment {
	if p == nil {
		return nil
	}
	out := make([]Segment, len(p))
	for i, seg := range p {
		out[i] = seg.Clone()
	}
	return out
}

// Clone returns a deep copy of the segment.
func (s Segment) Clone() Segment {
	out := s
	if s.Fields != nil {
		out.Fields = make([]SegmentField, len(s.Fields))
		for i, f := range s.Fields {
			out.Fields[i] = f.Clone()
		}
	}
	out.FilterList = cloneFilters(s.FilterList)
	if s.OrderBy != nil {
		out.OrderBy = append([]OrderBy(nil), s.OrderBy...)
	}
	if s.Limit != nil {
		out.Limit = IntPtr(*s.Limit)
	}
	if s.By != nil {
		by := *s.By
		by.E = s.By.E.Clone()
		out.By = &by
	}
	return out
}

// Clone returns a deep copy of the segment field.
func (f SegmentField) Clone() SegmentField {
	if f.Def == nil {
		return f
	}
	def := f.Def.Clone()
	return SegmentField{Ref: f.Ref, Def: &def}
}

// Clone returns a deep copy of the fragments. A nil input stays nil.
func (fs Fragments) Clone() Fragments {
	if fs == nil {
		return nil
	}
	out := make(Fragments, len(fs))
	for i, f := range fs {
		switch v := f.(type) {
		case AggregateFragment:
			v.E = v.E.Clone()
			out[i] = v
		case DialectFragment:
			v.E = v.E.Clone()
			out[i] = v
		default:
			out[i] = f
		}
	}
	return out
}

// Clone returns a deep copy of the parameter.
func (p Parameter) Clone() Parameter {
	out := p
	out.Value = p.Value.Clone()
	out.Condition = p.Condition.Clone()
	return out
}

// Clone returns a deep copy of the model.
func (m *ModelDef) Clone() *ModelDef {
	if m == nil {
		return nil
	}
	out := NewModelDef(m.Name)
	out.Exports = append(out.Exports, m.Exports...)
	for name, s := range m.Structs {
		out.Structs[name] = s.Clone()
	}
	if m.Queries != nil {
		out.Queries = make(map[string]*Query, len(m.Queries))
		for name, q := range m.Queries {
			out.Queries[name] = q.Clone()
		}
	}
	return out
}

// CloneNamed returns a deep copy of a namespace entry.
func CloneNamed(obj NamedObject) NamedObject {
	switch v := obj.(type) {
	case *StructDef:
		return v.Clone()
	case *Query:
		return v.Clone()
	default:
		return nil
	}
}

func cloneParameters(params map[string]Parameter) map[string]Parameter {
	if params == nil {
		return nil
	}
	out := make(map[string]Parameter, len(params))
	for k, v := range params {
		out[k] = v.Clone()
	}
	return out
}

func cloneFilters(filters []FilterExpression) []FilterExpression {
	if filters == nil {
		return nil
	}
	out := make([]FilterExpression, len(filters))
	for i, f := range filters {
		f.Expression = f.Expression.Clone()
		out[i] = f
	}
	return out
}
