package ast

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/space"
	"github.com/roach88/mtrans/internal/zone"
)

// Source is anything a query can start from. StructDef always returns a
// schema the caller owns; after an error it returns a sentinel.
type Source interface {
	Element
	StructDef(ctx *Context) *model.StructDef
	StructRef(ctx *Context) model.StructRef
	source()
}

// SourceProperty is a statement of a source refinement block.
type SourceProperty interface {
	Element
	sourceProperty()
}

// withParameters resolves src and declares params on the result.
func withParameters(ctx *Context, src Source, params []ParameterDecl) *model.StructDef {
	if r, ok := src.(*RefinedSource); ok {
		return r.WithParameters(ctx, params)
	}
	def := src.StructDef(ctx)
	if len(params) == 0 {
		return def
	}
	if def.Parameters == nil {
		def.Parameters = make(map[string]model.Parameter, len(params))
	}
	for _, p := range params {
		mp := p.Parameter(ctx)
		def.Parameters[mp.Name] = mp
	}
	return def
}

// TableSource is a table looked up in the schema zone.
type TableSource struct {
	node
	Name string
}

func NewTableSource(name string) *TableSource { return &TableSource{Name: name} }

func (*TableSource) ElementType() string { return "tableSource" }
func (*TableSource) source()             {}

func (t *TableSource) StructRef(ctx *Context) model.StructRef {
	return model.RefToDef(t.StructDef(ctx))
}

func (t *TableSource) StructDef(ctx *Context) *model.StructDef {
	entry := ctx.Schemas.Lookup(t.Name)
	msg := fmt.Sprintf("Schema read failure for table '%s'", t.Name)
	switch entry.Status {
	case zone.StatusPresent:
		return entry.Value.Clone()
	case zone.StatusError:
		if strings.Contains(entry.Message, t.Name) {
			msg = fmt.Sprintf("Schema error: %s", entry.Message)
		} else {
			msg = fmt.Sprintf("Schema error '%s': %s", t.Name, entry.Message)
		}
	}
	ctx.Log(t, "%s", msg)
	return model.ErrorStructDef()
}

// ParameterValue is one "name is value" override on a source reference.
type ParameterValue struct {
	node
	Name  string
	Value *Constant
}

func NewParameterValue(name string, value *Constant) *ParameterValue {
	p := &ParameterValue{Name: name, Value: value}
	p.has(p, "value", value)
	return p
}

func (*ParameterValue) ElementType() string { return "parameterValue" }

// IsValueBlock is the ordered list of overrides on a source reference.
type IsValueBlock struct {
	node
	Values []*ParameterValue
}

func NewIsValueBlock(values ...*ParameterValue) *IsValueBlock {
	b := &IsValueBlock{Values: values}
	b.hasList(b, "values", elements(values))
	return b
}

func (*IsValueBlock) ElementType() string { return "isValueBlock" }

// NamedSource references a source (or query) defined in the namespace,
// optionally overriding its parameters.
type NamedSource struct {
	node
	Name   string
	Values *IsValueBlock
}

func NewNamedSource(name string, values *IsValueBlock) *NamedSource {
	n := &NamedSource{Name: name}
	if values != nil && len(values.Values) > 0 {
		n.Values = values
		n.has(n, "parameterValues", values)
	}
	return n
}

func (*NamedSource) ElementType() string { return "namedSource" }
func (*NamedSource) source()             {}

// StructRef refers to a plain source by name. Overrides, query entries and
// undefined names need a resolved schema.
func (n *NamedSource) StructRef(ctx *Context) model.StructRef {
	if n.Values == nil {
		if e, ok := ctx.Lookup(n.Name); ok {
			if _, isStruct := e.Object.(*model.StructDef); isStruct {
				return model.RefByName(n.Name)
			}
		}
	}
	return model.RefToDef(n.StructDef(ctx))
}

func (n *NamedSource) StructDef(ctx *Context) *model.StructDef {
	e, ok := ctx.Lookup(n.Name)
	if !ok {
		ctx.undefined(n, ctx.namespaceNames(), "Undefined data source '%s'", n.Name)
		return model.ErrorStructDef()
	}
	var ret *model.StructDef
	switch obj := e.Object.(type) {
	case *model.StructDef:
		ret = obj.Clone()
	case *model.Query:
		ret = querySourced(ctx, n.Name, obj)
	default:
		ctx.InternalError(n, "unexpected namespace entry %T", e.Object)
	}

	declared := ret.Parameters
	// Parameters whose override already failed are not reported again as
	// missing.
	failed := map[string]bool{}
	if n.Values != nil {
		for _, pv := range n.Values.Values {
			decl, ok := declared[pv.Name]
			if !ok {
				ctx.Log(pv, "value given for undeclared parameter '%s'", pv.Name)
				continue
			}
			if decl.IsCondition {
				decl.Condition = pv.Value.Condition(ctx, decl.Type)
				declared[pv.Name] = decl
				continue
			}
			if decl.Constant {
				ctx.Log(pv.Value, "Cannot override constant parameter %s", pv.Name)
				failed[pv.Name] = true
				continue
			}
			v := pv.Value.Value(ctx)
			value, ok := coerceParameter(v, decl.Type)
			if !ok {
				ctx.Log(pv.Value, "Type mismatch for parameter '%s', expected '%s'", pv.Name, decl.Type)
			}
			if value == nil {
				failed[pv.Name] = true
			}
			decl.Value = value
			declared[pv.Name] = decl
		}
	}
	for _, name := range model.SortedNames(declared) {
		if !declared[name].Bound() && !failed[name] {
			ctx.Log(n, "Value not provided for required parameter %s", name)
		}
	}
	return ret
}

// querySourced builds the schema of a source whose rows come from a query:
// the output shape of the query's pipeline.
func querySourced(ctx *Context, name string, q *model.Query) *model.StructDef {
	var head *model.StructDef
	switch {
	case q.StructRef.IsDef():
		head = q.StructRef.Def
	default:
		if e, ok := ctx.Lookup(q.StructRef.Name); ok {
			if s, isStruct := e.Object.(*model.StructDef); isStruct {
				head = s
			}
		}
	}
	if head == nil {
		head = model.ErrorStructDef()
	}
	out := model.WalkPipeline(head, q.Pipeline)
	if out == head {
		out = head.Clone()
		out.StructSource = model.StructSource{Type: model.SourceQuery}
		out.StructRelationship = model.StructRelationship{Type: model.RelationshipBaseTable}
	}
	if name != "" {
		out.Name = name
		out.As = ""
	}
	out.StructSource.Query = q.Clone()
	return out
}

// QuerySource is a source made from a query.
type QuerySource struct {
	node
	Query QueryElement
}

func NewQuerySource(q QueryElement) *QuerySource {
	s := &QuerySource{Query: q}
	s.has(s, "query", q)
	return s
}

func (*QuerySource) ElementType() string { return "querySource" }
func (*QuerySource) source()             {}

func (s *QuerySource) StructRef(ctx *Context) model.StructRef {
	return model.RefToDef(s.StructDef(ctx))
}

func (s *QuerySource) StructDef(ctx *Context) *model.StructDef {
	return querySourced(ctx, "", s.Query.Query(ctx))
}

// SourceDesc is the statement block of a source refinement.
type SourceDesc struct {
	node
	List []SourceProperty
}

func NewSourceDesc(list ...SourceProperty) *SourceDesc {
	d := &SourceDesc{List: list}
	d.hasList(d, "exploreDesc", elements(list))
	return d
}

func (*SourceDesc) ElementType() string { return "exploreDesc" }

// RefinedSource is a source amended by a refinement block.
type RefinedSource struct {
	node
	Source     Source
	Refinement *SourceDesc
}

func NewRefinedSource(src Source, refinement *SourceDesc) *RefinedSource {
	r := &RefinedSource{Source: src, Refinement: refinement}
	r.has(r, "source", src)
	r.has(r, "refinement", refinement)
	return r
}

func (*RefinedSource) ElementType() string { return "refinedExplore" }
func (*RefinedSource) source()             {}

func (r *RefinedSource) StructRef(ctx *Context) model.StructRef {
	return model.RefToDef(r.StructDef(ctx))
}

func (r *RefinedSource) StructDef(ctx *Context) *model.StructDef {
	return r.WithParameters(ctx, nil)
}

// WithParameters resolves the refinement over the base source and declares
// params on the result.
func (r *RefinedSource) WithParameters(ctx *Context, params []ParameterDecl) *model.StructDef {
	var primaryKey *PrimaryKey
	var fieldListEdit *FieldListEdit
	var fields []Element
	var filters []*Filter

	for _, el := range r.Refinement.List {
		switch p := el.(type) {
		case *PrimaryKey:
			if primaryKey != nil {
				ctx.Log(primaryKey, "Primary key already defined")
				ctx.Log(p, "Primary key redefined")
			}
			primaryKey = p
		case *FieldListEdit:
			if fieldListEdit != nil {
				ctx.Log(fieldListEdit, "Too many accept/except statements")
				ctx.Log(p, "Too many accept/except statements")
			}
			fieldListEdit = p
		case *RenameField:
			fields = append(fields, p)
		case *Measures:
			fields = append(fields, elements(p.List)...)
		case *Dimensions:
			fields = append(fields, elements(p.List)...)
		case *Joins:
			fields = append(fields, elements(p.List)...)
		case *Turtles:
			fields = append(fields, elements(p.List)...)
		case *Filter:
			filters = append(filters, p)
		default:
			ctx.InternalError(el, "unexpected source property '%s'", el.ElementType())
		}
	}

	from := r.Source.StructDef(ctx)
	var edit *space.Edit
	if fieldListEdit != nil {
		edit = fieldListEdit.edit()
	}
	fs, missing := space.FilteredFrom(from, edit)
	for _, name := range missing {
		ctx.undefined(fieldListEdit, from.FieldNames(), "Undefined field '%s'", name)
	}
	if primaryKey != nil {
		fs.SetPrimaryKey(primaryKey.Field.Name)
	}
	for _, el := range fields {
		r.addField(ctx, fs, el)
	}
	declared := make([]model.Parameter, 0, len(params))
	for _, p := range params {
		declared = append(declared, p.Parameter(ctx))
	}
	fs.AddParameters(declared...)
	if primaryKey != nil {
		if _, ok := fs.Lookup(primaryKey.Field.Name); !ok {
			ctx.Log(primaryKey, "Undefined field '%s'", primaryKey.Field.Name)
		}
	}
	for _, f := range filters {
		for _, el := range f.Elements {
			fx := el.filterExpression(ctx, fs)
			if fx.Aggregate {
				ctx.Log(el, "Can't use aggregate computations in top level filters")
				continue
			}
			fs.AddFilters(fx)
		}
	}
	return fs.Snapshot()
}

func (r *RefinedSource) addField(ctx *Context, fs *space.Builder, el Element) {
	var def model.FieldDef
	switch f := el.(type) {
	case *RenameField:
		found, replaced := fs.Rename(f.NewName, f.OldName)
		if !found {
			ctx.undefined(f, fs.Names(), "Can't rename '%s', no such field", f.OldName)
		} else if replaced {
			ctx.Warn(f, "Field '%s' redefined", f.NewName)
		}
		return
	case *ExprFieldDecl:
		def = f.FieldDef(ctx, fs)
	case *Join:
		def = f.FieldDef(ctx)
	case *TurtleDecl:
		def = f.FieldDef(ctx, fs.Current().StructDef())
	default:
		ctx.InternalError(el, "unexpected field declaration '%s'", el.ElementType())
	}
	if fs.AddField(def) {
		ctx.Warn(el, "Field '%s' redefined", def.Identifier())
	}
}

// JSONElement holds the text of a literal schema.
type JSONElement struct {
	node
	Text string
}

func NewJSONElement(text string) *JSONElement { return &JSONElement{Text: text} }

func (*JSONElement) ElementType() string { return "jsonElement" }

// Value decodes the text, logging a syntax error and returning nil when it
// is not JSON.
func (j *JSONElement) Value(ctx *Context) any {
	var v any
	if err := json.Unmarshal([]byte(j.Text), &v); err != nil {
		ctx.Log(j, "JSON syntax error")
		return nil
	}
	return v
}

// JSONStructDef is a literal schema.
type JSONStructDef struct {
	node
	Struct *model.StructDef
}

// FromJSON accepts a literal whose object is shaped like a schema: it has
// type "struct", a struct_relationship and a struct_source. Anything else
// returns false.
func FromJSON(ctx *Context, el *JSONElement) (*JSONStructDef, bool) {
	obj, ok := el.Value(ctx).(map[string]any)
	if !ok || obj["type"] != "struct" || obj["struct_relationship"] == nil || obj["struct_source"] == nil {
		return nil, false
	}
	var def model.StructDef
	if err := json.Unmarshal([]byte(el.Text), &def); err != nil {
		return nil, false
	}
	if def.Fields == nil {
		def.Fields = []model.FieldDef{}
	}
	j := &JSONStructDef{Struct: &def}
	j.has(j, "json", el)
	return j, true
}

func (*JSONStructDef) ElementType() string { return "jsonStructDef" }
func (*JSONStructDef) source()             {}

func (j *JSONStructDef) StructRef(*Context) model.StructRef {
	return model.RefToDef(j.Struct.Clone())
}

func (j *JSONStructDef) StructDef(*Context) *model.StructDef {
	return j.Struct.Clone()
}

// QueryHeadStruct is the implicit source of a query built from another
// query: the other query's own struct reference.
type QueryHeadStruct struct {
	node
	Ref model.StructRef
}

func newQueryHeadStruct(ref model.StructRef) *QueryHeadStruct {
	return &QueryHeadStruct{Ref: ref}
}

func (*QueryHeadStruct) ElementType() string { return "queryHeadStruct" }
func (*QueryHeadStruct) source()             {}

func (q *QueryHeadStruct) StructRef(*Context) model.StructRef {
	return q.Ref
}

func (q *QueryHeadStruct) StructDef(ctx *Context) *model.StructDef {
	if q.Ref.IsDef() {
		return q.Ref.Def.Clone()
	}
	ns := NewNamedSource(q.Ref.Name, nil)
	q.has(q, "source", ns)
	return ns.StructDef(ctx)
}
