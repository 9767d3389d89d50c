package ast

import (
	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/space"
)

// FieldReference is a member of a field list: a name or a wildcard.
type FieldReference interface {
	Element
	RefString() string
	fieldReference()
}

// FieldCollectionMember is an item of a project statement.
type FieldCollectionMember interface {
	Element
	fieldCollectionMember()
}

// QueryItem is an item of a group_by or aggregate statement.
type QueryItem interface {
	Element
	queryItem()
}

// FieldName references a field by (possibly dotted) name.
type FieldName struct {
	node
	Name string
}

func NewFieldName(name string) *FieldName { return &FieldName{Name: name} }

func (*FieldName) ElementType() string    { return "field name" }
func (f *FieldName) RefString() string    { return f.Name }
func (*FieldName) fieldReference()        {}
func (*FieldName) fieldCollectionMember() {}
func (*FieldName) queryItem()             {}

// Wildcard is "*", "**", "join.*" or "join.**".
type Wildcard struct {
	node
	Join string
	Star string
}

func NewWildcard(join, star string) *Wildcard { return &Wildcard{Join: join, Star: star} }

func (*Wildcard) ElementType() string    { return "wildcard" }
func (*Wildcard) fieldReference()        {}
func (*Wildcard) fieldCollectionMember() {}

func (w *Wildcard) RefString() string {
	if w.Join != "" {
		return w.Join + "." + w.Star
	}
	return w.Star
}

// FieldReferences is an ordered list of names and wildcards.
type FieldReferences struct {
	node
	List []FieldReference
}

func NewFieldReferences(list ...FieldReference) *FieldReferences {
	r := &FieldReferences{List: list}
	r.hasList(r, "fieldReferenceList", elements(list))
	return r
}

func (*FieldReferences) ElementType() string { return "fieldReferenceList" }

// Names returns the reference strings in order.
func (r *FieldReferences) Names() []string {
	names := make([]string, len(r.List))
	for i, ref := range r.List {
		names[i] = ref.RefString()
	}
	return names
}

// FieldListEdit is an accept or except statement in a source refinement.
type FieldListEdit struct {
	node
	Edit string
	Refs *FieldReferences
}

func NewFieldListEdit(edit string, refs *FieldReferences) *FieldListEdit {
	e := &FieldListEdit{Edit: edit, Refs: refs}
	e.has(e, "refs", refs)
	return e
}

func (*FieldListEdit) ElementType() string { return "fieldListEdit" }
func (*FieldListEdit) sourceProperty()     {}

func (e *FieldListEdit) edit() *space.Edit {
	return &space.Edit{Mode: space.EditMode(e.Edit), Names: e.Refs.Names()}
}

// PrimaryKey declares the primary key of a refined source.
type PrimaryKey struct {
	node
	Field *FieldName
}

func NewPrimaryKey(field *FieldName) *PrimaryKey {
	p := &PrimaryKey{Field: field}
	p.has(p, "field", field)
	return p
}

func (*PrimaryKey) ElementType() string { return "primary key" }
func (*PrimaryKey) sourceProperty()     {}

// RenameField gives an existing field a new name.
type RenameField struct {
	node
	NewName string
	OldName string
}

func NewRenameField(newName, oldName string) *RenameField {
	return &RenameField{NewName: newName, OldName: oldName}
}

func (*RenameField) ElementType() string { return "renameField" }
func (*RenameField) sourceProperty()     {}

// ExprFieldDecl declares a computed field: "name is expr".
//
// Inside a measure or dimension list IsMeasure records which one it is and
// the expression must match.
type ExprFieldDecl struct {
	node
	Name      string
	Expr      Expr
	IsMeasure *bool
}

func NewExprFieldDecl(name string, x Expr) *ExprFieldDecl {
	d := &ExprFieldDecl{Name: name, Expr: x}
	d.has(d, "expr", x)
	return d
}

func (*ExprFieldDecl) ElementType() string    { return "exprFieldDecl" }
func (*ExprFieldDecl) fieldCollectionMember() {}
func (*ExprFieldDecl) queryItem()             {}

// FieldDef evaluates the declaration in fs.
func (d *ExprFieldDecl) FieldDef(ctx *Context, fs space.Space) model.FieldDef {
	v := d.Expr.Eval(ctx, fs)
	if d.IsMeasure != nil && v.DataType != model.TypeUnknown {
		if *d.IsMeasure && !v.Aggregate {
			ctx.Log(d, "Cannot use a scalar field in a measure declaration")
		} else if !*d.IsMeasure && v.Aggregate {
			ctx.Log(d, "Cannot use an aggregate field in a dimension declaration")
		}
	}
	if v.DataType == model.TypeNull {
		ctx.Log(d, "Cannot define '%s', value has unknown type", d.Name)
		v.DataType = model.TypeUnknown
	}
	return model.FieldDef{
		Name:       d.Name,
		Type:       v.DataType,
		Aggregate:  v.Aggregate,
		Timeframe:  v.Timeframe,
		Expression: model.Compress(v.Value),
	}
}

// Measures is a list of aggregate field declarations.
type Measures struct {
	node
	List []*ExprFieldDecl
}

func NewMeasures(list ...*ExprFieldDecl) *Measures {
	m := &Measures{List: list}
	measure := true
	for _, d := range list {
		d.IsMeasure = &measure
	}
	m.hasList(m, "measure", elements(list))
	return m
}

func (*Measures) ElementType() string { return "measure" }
func (*Measures) sourceProperty()     {}

// Dimensions is a list of scalar field declarations.
type Dimensions struct {
	node
	List []*ExprFieldDecl
}

func NewDimensions(list ...*ExprFieldDecl) *Dimensions {
	m := &Dimensions{List: list}
	measure := false
	for _, d := range list {
		d.IsMeasure = &measure
	}
	m.hasList(m, "dimension", elements(list))
	return m
}

func (*Dimensions) ElementType() string { return "dimension" }
func (*Dimensions) sourceProperty()     {}

// OrderBy is one ordering key: a field name or a 1-based output position.
type OrderBy struct {
	node
	Field    string
	Position int
	Dir      string
}

func NewOrderBy(field string, position int, dir string) *OrderBy {
	return &OrderBy{Field: field, Position: position, Dir: dir}
}

func (*OrderBy) ElementType() string { return "orderBy" }

func (o *OrderBy) byElement() model.OrderBy {
	return model.OrderBy{Field: o.Field, Position: o.Position, Dir: o.Dir}
}

// Ordering is an order_by statement.
type Ordering struct {
	node
	List []*OrderBy
}

func NewOrdering(list ...*OrderBy) *Ordering {
	o := &Ordering{List: list}
	o.hasList(o, "ordering", elements(list))
	return o
}

func (*Ordering) ElementType() string { return "ordering" }
func (*Ordering) queryProperty()      {}

func (o *Ordering) orderBy() []model.OrderBy {
	out := make([]model.OrderBy, len(o.List))
	for i, el := range o.List {
		out[i] = el.byElement()
	}
	return out
}

// Limit is a limit statement.
type Limit struct {
	node
	Limit int
}

func NewLimit(n int) *Limit { return &Limit{Limit: n} }

func (*Limit) ElementType() string { return "limit" }
func (*Limit) queryProperty()      {}

// Top is "top N" with an optional ordering key given by name or by
// expression. At most one of ByName and ByExpr is set.
type Top struct {
	node
	Limit  int
	ByName string
	ByExpr Expr
}

func NewTop(n int, byName string, byExpr Expr) *Top {
	t := &Top{Limit: n, ByName: byName, ByExpr: byExpr}
	t.has(t, "byExpression", byExpr)
	return t
}

func (*Top) ElementType() string { return "top" }
func (*Top) queryProperty()      {}

// by returns the ordering key of the statement, or nil when it has none.
func (t *Top) by(ctx *Context, fs space.Space) *model.By {
	if t.ByExpr != nil {
		v := t.ByExpr.Eval(ctx, fs)
		if !v.Aggregate && v.DataType != model.TypeUnknown {
			ctx.Log(t, "top by expression must be an aggregate")
		}
		return &model.By{By: model.ByExpression, E: model.Compress(v.Value)}
	}
	if t.ByName != "" {
		return &model.By{By: model.ByName, Name: t.ByName}
	}
	return nil
}

// FilterElement is one condition of a filter statement. Source is the
// condition's original text.
type FilterElement struct {
	node
	Source string
	Expr   Expr
}

func NewFilterElement(x Expr, source string) *FilterElement {
	f := &FilterElement{Source: source, Expr: x}
	f.has(f, "expr", x)
	return f
}

func (*FilterElement) ElementType() string { return "filterElement" }

func (f *FilterElement) filterExpression(ctx *Context, fs space.Space) model.FilterExpression {
	v := f.Expr.Eval(ctx, fs)
	if v.DataType != model.TypeBoolean {
		if v.DataType != model.TypeUnknown {
			ctx.Log(f.Expr, "Filter expression must have boolean value")
		}
		return model.FilterExpression{
			Source:     f.Source,
			Expression: model.Mk("_FILTER_MUST_RETURN_BOOLEAN_"),
		}
	}
	return model.FilterExpression{
		Source:     f.Source,
		Expression: model.Compress(v.Value),
		Aggregate:  v.Aggregate,
	}
}

// Filter kinds. An untyped filter accepts aggregate and non-aggregate
// conditions alike.
const (
	FilterAny    = ""
	FilterWhere  = "where"
	FilterHaving = "having"
)

// Filter is a where, having or untyped filter statement.
type Filter struct {
	node
	Kind     string
	Elements []*FilterElement
}

func NewFilter(kind string, list ...*FilterElement) *Filter {
	f := &Filter{Kind: kind, Elements: list}
	f.hasList(f, "filterElements", elements(list))
	return f
}

func (f *Filter) ElementType() string {
	if f.Kind != FilterAny {
		return f.Kind
	}
	return "filter"
}
func (*Filter) queryProperty()  {}
func (*Filter) sourceProperty() {}

// filterList evaluates every condition, dropping (after logging) those of
// the wrong kind for a where or having statement.
func (f *Filter) filterList(ctx *Context, fs space.Space) []model.FilterExpression {
	var checked []model.FilterExpression
	for _, el := range f.Elements {
		fx := el.filterExpression(ctx, fs)
		switch f.Kind {
		case FilterHaving:
			if !fx.Aggregate {
				ctx.Log(el, "Aggregate expression expected in HAVING filter")
				continue
			}
		case FilterWhere:
			if fx.Aggregate {
				ctx.Log(el, "Aggregate expression not allowed in WHERE")
				continue
			}
		}
		checked = append(checked, fx)
	}
	return checked
}

// Join declares a joined source on a refinement.
type Join struct {
	node
	Name   string
	Key    string
	Source Source
}

func NewJoin(name string, src Source, key string) *Join {
	j := &Join{Name: name, Key: key, Source: src}
	j.has(j, "source", src)
	return j
}

func (*Join) ElementType() string { return "join" }

// StructDef resolves the joined schema. A query-sourced schema takes the
// join's name; any other is aliased to it.
func (j *Join) StructDef(ctx *Context) *model.StructDef {
	def := j.Source.StructDef(ctx)
	def.StructRelationship = model.StructRelationship{
		Type:       model.RelationshipForeignKey,
		ForeignKey: j.Key,
	}
	if def.StructSource.Type == model.SourceQuery {
		def.Name = j.Name
		def.As = ""
	} else {
		def.As = j.Name
	}
	return def
}

// FieldDef returns the join as a struct-typed field.
func (j *Join) FieldDef(ctx *Context) model.FieldDef {
	return model.FieldDef{Name: j.Name, Type: model.TypeStruct, Struct: j.StructDef(ctx)}
}

// Joins is a list of join declarations.
type Joins struct {
	node
	List []*Join
}

func NewJoins(list ...*Join) *Joins {
	j := &Joins{List: list}
	j.hasList(j, "joinList", elements(list))
	return j
}

func (*Joins) ElementType() string { return "joinList" }
func (*Joins) sourceProperty()     {}

// GroupBy is a group_by statement.
type GroupBy struct {
	node
	Items []QueryItem
}

func NewGroupBy(items ...QueryItem) *GroupBy {
	g := &GroupBy{Items: items}
	g.hasList(g, "groupBy", elements(items))
	return g
}

func (*GroupBy) ElementType() string { return "groupBy" }
func (*GroupBy) queryProperty()      {}

// Aggregate is an aggregate statement.
type Aggregate struct {
	node
	Items []QueryItem
}

func NewAggregate(items ...QueryItem) *Aggregate {
	a := &Aggregate{Items: items}
	a.hasList(a, "aggregate", elements(items))
	return a
}

func (*Aggregate) ElementType() string { return "aggregate" }
func (*Aggregate) queryProperty()      {}

// FieldCollection is a project statement.
type FieldCollection struct {
	node
	Members []FieldCollectionMember
}

func NewFieldCollection(members ...FieldCollectionMember) *FieldCollection {
	c := &FieldCollection{Members: members}
	c.hasList(c, "fieldCollection", elements(members))
	return c
}

func (*FieldCollection) ElementType() string { return "fieldCollection" }
func (*FieldCollection) queryProperty()      {}

// Nest names a sub-query to nest inside a stage.
type Nest struct {
	node
	Name string
}

func NewNest(name string) *Nest { return &Nest{Name: name} }

func (*Nest) ElementType() string { return "nest" }
func (*Nest) queryProperty()      {}

// Nests is a nest statement.
type Nests struct {
	node
	List []*Nest
}

func NewNests(list ...*Nest) *Nests {
	n := &Nests{List: list}
	n.hasList(n, "nests", elements(list))
	return n
}

func (*Nests) ElementType() string { return "nests" }
func (*Nests) queryProperty()      {}

// TurtleDecl declares a named sub-query on a source.
type TurtleDecl struct {
	node
	Name string
	Pipe *PipelineDesc
}

func NewTurtleDecl(name string, pipe *PipelineDesc) *TurtleDecl {
	t := &TurtleDecl{Name: name, Pipe: pipe}
	t.has(t, "pipe", pipe)
	return t
}

func (*TurtleDecl) ElementType() string { return "turtleDesc" }
func (*TurtleDecl) statement()          {}

// Execute is a no-op: a turtle is only meaningful on a source.
func (*TurtleDecl) Execute(*Context, *Document) {}

// FieldDef resolves the turtle's pipeline against the source being built.
func (t *TurtleDecl) FieldDef(ctx *Context, in *model.StructDef) model.FieldDef {
	q := t.Pipe.queryFromStruct(ctx, model.RefToDef(in), in)
	return model.FieldDef{Name: t.Name, Type: model.TypeTurtle, Pipeline: q.Pipeline}
}

// Turtles is a list of turtle declarations.
type Turtles struct {
	node
	List []*TurtleDecl
}

func NewTurtles(list ...*TurtleDecl) *Turtles {
	t := &Turtles{List: list}
	t.hasList(t, "turtleDeclarationList", elements(list))
	return t
}

func (*Turtles) ElementType() string { return "turtleDeclarationList" }
func (*Turtles) sourceProperty()     {}
func (*Turtles) statement()          {}

func (*Turtles) Execute(*Context, *Document) {}
