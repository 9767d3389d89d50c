package ast

import (
	"net/url"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/zone"
)

// Statement is a top-level document statement.
type Statement interface {
	Element
	Execute(ctx *Context, doc *Document)
	statement()
}

// Document is the root of a parsed document and the namespace its
// statements define names in.
type Document struct {
	node
	Statements []Statement

	names     []string
	entries   map[string]NamespaceEntry
	queryList []*model.Query
}

func NewDocument(statements ...Statement) *Document {
	d := &Document{Statements: statements}
	d.hasList(d, "statements", elements(statements))
	return d
}

func (*Document) ElementType() string { return "document" }

// Entry implements Namespace.
func (d *Document) Entry(name string) (NamespaceEntry, bool) {
	e, ok := d.entries[name]
	return e, ok
}

// SetEntry implements Namespace. A new name is appended to the declaration
// order; an existing one keeps its position.
func (d *Document) SetEntry(name string, entry NamespaceEntry) {
	if _, ok := d.entries[name]; !ok {
		d.names = append(d.names, name)
	}
	d.entries[name] = entry
}

// Names implements Namespace, in declaration order.
func (d *Document) Names() []string {
	return append([]string(nil), d.names...)
}

// Queries returns the anonymous queries in declaration order.
func (d *Document) Queries() []*model.Query {
	out := make([]*model.Query, len(d.queryList))
	for i, q := range d.queryList {
		if q == nil {
			q = model.ErrorQuery()
		}
		out[i] = q.Clone()
	}
	return out
}

// ModelDef executes every statement once, in order, and returns the
// resulting model. Entries of extending, when given, seed the namespace.
// Every schema and query in the result is a copy.
func (d *Document) ModelDef(ctx *Context, extending *model.ModelDef) *model.ModelDef {
	d.names = nil
	d.entries = make(map[string]NamespaceEntry)
	d.queryList = nil
	ctx.namespace = d

	if extending != nil {
		for _, name := range model.SortedNames(extending.Structs) {
			d.SetEntry(name, NamespaceEntry{
				Object:   extending.Structs[name].Clone(),
				Exported: extending.IsExported(name),
			})
		}
	}
	for _, stmt := range d.Statements {
		stmt.Execute(ctx, d)
	}

	def := model.NewModelDef("")
	for _, name := range d.names {
		e := d.entries[name]
		if e.Exported {
			def.Exports = append(def.Exports, name)
		}
		switch obj := e.Object.(type) {
		case *model.StructDef:
			def.Structs[name] = obj.Clone()
		case *model.Query:
			if def.Queries == nil {
				def.Queries = make(map[string]*model.Query)
			}
			def.Queries[name] = obj.Clone()
		}
	}
	return def
}

// define installs a new entry. Redefining a name logs at both definition
// sites and keeps the first definition.
func (d *Document) define(ctx *Context, site Element, name string, obj model.NamedObject, exported bool) {
	if existing, ok := d.Entry(name); ok {
		ctx.Log(existing.Site, "'%s' already defined", name)
		ctx.Log(site, "Cannot redefine '%s'", name)
		return
	}
	d.SetEntry(name, NamespaceEntry{Object: obj, Exported: exported, Site: site})
}

// DefineSource defines a named source.
type DefineSource struct {
	node
	Name       string
	Exported   bool
	Source     Source
	Parameters []ParameterDecl
}

func NewDefineSource(name string, src Source, exported bool, params ...ParameterDecl) *DefineSource {
	s := &DefineSource{Name: name, Exported: exported, Source: src, Parameters: params}
	s.has(s, "explore", src)
	if len(params) > 0 {
		s.hasList(s, "parameters", elements(params))
	}
	return s
}

func (*DefineSource) ElementType() string { return "defineExplore" }
func (*DefineSource) statement()          {}

func (s *DefineSource) Execute(ctx *Context, doc *Document) {
	if _, ok := doc.Entry(s.Name); ok {
		doc.define(ctx, s, s.Name, nil, s.Exported)
		return
	}
	def := withParameters(ctx, s.Source, s.Parameters)
	def.As = s.Name
	doc.define(ctx, s, s.Name, def, s.Exported)
}

// DefineQuery defines a named query.
type DefineQuery struct {
	node
	Name     string
	Exported bool
	Query    QueryElement
}

func NewDefineQuery(name string, q QueryElement, exported bool) *DefineQuery {
	s := &DefineQuery{Name: name, Exported: exported, Query: q}
	s.has(s, "queryDetails", q)
	return s
}

func (*DefineQuery) ElementType() string { return "defineQuery" }
func (*DefineQuery) statement()          {}

func (s *DefineQuery) Execute(ctx *Context, doc *Document) {
	if _, ok := doc.Entry(s.Name); ok {
		doc.define(ctx, s, s.Name, nil, s.Exported)
		return
	}
	doc.define(ctx, s, s.Name, s.Query.Query(ctx), s.Exported)
}

// ImportStatement copies the exported schemas of a translated document
// into the namespace, unexported.
type ImportStatement struct {
	node
	URL     string
	BaseURL string
}

func NewImportStatement(rawURL, baseURL string) *ImportStatement {
	return &ImportStatement{URL: rawURL, BaseURL: baseURL}
}

func (*ImportStatement) ElementType() string { return "import statement" }
func (*ImportStatement) statement()          {}

// FullURL resolves URL against BaseURL.
func (s *ImportStatement) FullURL() (string, bool) {
	ref, err := url.Parse(s.URL)
	if err != nil {
		return "", false
	}
	if ref.IsAbs() {
		return ref.String(), true
	}
	base, err := url.Parse(s.BaseURL)
	if err != nil || !base.IsAbs() {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

func (s *ImportStatement) Execute(ctx *Context, doc *Document) {
	full, ok := s.FullURL()
	if !ok {
		ctx.Log(s, "Invalid URI in import statement")
		return
	}
	entry := ctx.Imports.Lookup(full)
	switch entry.Status {
	case zone.StatusPresent:
		exports := entry.Value.ExportedStructs()
		for _, name := range entry.Value.Exports {
			if st, ok := exports[name]; ok {
				doc.define(ctx, s, name, st, false)
			}
		}
	case zone.StatusError:
		ctx.Log(s, "import failed: '%s'", entry.Message)
	case zone.StatusPending:
		ctx.Log(s, "import failed with status: '%s'", entry.Status)
	default:
		ctx.Log(s, "import failed with status: 'missing'")
	}
}

// DocumentQuery is an anonymous top-level query. Index is its position in
// the document's query list.
type DocumentQuery struct {
	node
	Index int
	Query QueryElement
}

func NewDocumentQuery(q QueryElement, index int) *DocumentQuery {
	s := &DocumentQuery{Index: index, Query: q}
	s.has(s, "explore", q)
	return s
}

func (*DocumentQuery) ElementType() string { return "document query" }
func (*DocumentQuery) statement()          {}

func (s *DocumentQuery) Execute(ctx *Context, doc *Document) {
	for len(doc.queryList) <= s.Index {
		doc.queryList = append(doc.queryList, nil)
	}
	doc.queryList[s.Index] = s.Query.Query(ctx)
}
