package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mtrans/internal/ast"
	"github.com/roach88/mtrans/internal/diag"
)

// DecodeDocument reads a YAML document description. Relative import URLs
// resolve against baseURL. All structural errors are collected and
// returned joined; the document is nil when there are any.
func DecodeDocument(r io.Reader, baseURL string) (*ast.Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return ast.NewDocument(), nil
		}
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return DecodeDocumentNode(&root, baseURL)
}

// DecodeDocumentNode decodes an already parsed YAML node. It accepts a
// document node or the mapping inside it.
func DecodeDocumentNode(root *yaml.Node, baseURL string) (*ast.Document, error) {
	d := &decoder{baseURL: baseURL}
	doc := d.document(root)
	if len(d.errs) > 0 {
		return nil, errors.Join(d.errs...)
	}
	return doc, nil
}

type decoder struct {
	baseURL string
	errs    []error
	queries int
}

func (d *decoder) fail(n *yaml.Node, format string, args ...any) {
	e := &DecodeError{Message: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Line, e.Column = n.Line, n.Column
	}
	d.errs = append(d.errs, e)
}

// rangeOf converts a node's 1-based position into a 0-based range. A
// scalar's range spans its text.
func rangeOf(n *yaml.Node) diag.Range {
	begin := diag.Position{Line: max(n.Line-1, 0), Character: max(n.Column-1, 0)}
	end := begin
	if n.Kind == yaml.ScalarNode {
		end.Character += len(n.Value)
	}
	return diag.Range{Begin: begin, End: end}
}

type ranged interface{ SetRange(diag.Range) }

func at[E ranged](e E, n *yaml.Node) E {
	if n != nil {
		e.SetRange(rangeOf(n))
	}
	return e
}

type pair struct {
	key   string
	keyN  *yaml.Node
	value *yaml.Node
}

// pairs returns the entries of a mapping in source order.
func (d *decoder) pairs(n *yaml.Node) []pair {
	if n.Kind != yaml.MappingNode {
		d.fail(n, "expected a mapping")
		return nil
	}
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, pair{key: n.Content[i].Value, keyN: n.Content[i], value: n.Content[i+1]})
	}
	return out
}

// single returns the only entry of a one-key mapping.
func (d *decoder) single(n *yaml.Node, what string) (pair, bool) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		d.fail(n, "%s must be a mapping with exactly one key", what)
		return pair{}, false
	}
	return pair{key: n.Content[0].Value, keyN: n.Content[0], value: n.Content[1]}, true
}

func (d *decoder) items(n *yaml.Node) []*yaml.Node {
	if n.Kind != yaml.SequenceNode {
		d.fail(n, "expected a list")
		return nil
	}
	return n.Content
}

func (d *decoder) str(n *yaml.Node, what string) (string, bool) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		d.fail(n, "%s must be a string", what)
		return "", false
	}
	return n.Value, true
}

func (d *decoder) integer(n *yaml.Node, what string) (int, bool) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!int" {
		if v, err := strconv.Atoi(n.Value); err == nil {
			return v, true
		}
	}
	d.fail(n, "%s must be an integer", what)
	return 0, false
}

func (d *decoder) boolean(n *yaml.Node, what string) bool {
	var b bool
	if err := n.Decode(&b); err != nil {
		d.fail(n, "%s must be true or false", what)
	}
	return b
}

// lookup finds key in a mapping.
func lookup(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func (d *decoder) document(root *yaml.Node) *ast.Document {
	n := root
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return ast.NewDocument()
		}
		n = n.Content[0]
	}
	stmtsN := lookup(n, "statements")
	if stmtsN == nil {
		if n.Kind != yaml.MappingNode {
			d.fail(n, "document must be a mapping")
		}
		return ast.NewDocument()
	}
	var stmts []ast.Statement
	for _, item := range d.items(stmtsN) {
		if s := d.statement(item); s != nil {
			stmts = append(stmts, s)
		}
	}
	return at(ast.NewDocument(stmts...), n)
}

func (d *decoder) statement(n *yaml.Node) ast.Statement {
	p, ok := d.single(n, "statement")
	if !ok {
		return nil
	}
	switch p.key {
	case "define_source":
		return d.defineSource(p.value)
	case "define_query":
		return d.defineQuery(p.value)
	case "import":
		u, ok := d.str(p.value, "import")
		if !ok {
			return nil
		}
		return at(ast.NewImportStatement(u, d.baseURL), p.value)
	case "run":
		q := d.query(p.value)
		if q == nil {
			return nil
		}
		s := at(ast.NewDocumentQuery(q, d.queries), n)
		d.queries++
		return s
	default:
		d.fail(p.keyN, "unknown statement %q", p.key)
		return nil
	}
}

func (d *decoder) defineSource(n *yaml.Node) ast.Statement {
	var name string
	var exported bool
	var src ast.Source
	var params []ast.ParameterDecl
	for _, p := range d.pairs(n) {
		switch p.key {
		case "name":
			name, _ = d.str(p.value, "name")
		case "export":
			exported = d.boolean(p.value, "export")
		case "source":
			src = d.source(p.value)
		case "parameters":
			for _, item := range d.items(p.value) {
				if pd := d.parameter(item); pd != nil {
					params = append(params, pd)
				}
			}
		default:
			d.fail(p.keyN, "unknown define_source key %q", p.key)
		}
	}
	if name == "" {
		d.fail(n, "define_source requires a name")
		return nil
	}
	if src == nil {
		d.fail(n, "define_source '%s' requires a source", name)
		return nil
	}
	return at(ast.NewDefineSource(name, src, exported, params...), n)
}

func (d *decoder) defineQuery(n *yaml.Node) ast.Statement {
	var name string
	var exported bool
	var q ast.QueryElement
	for _, p := range d.pairs(n) {
		switch p.key {
		case "name":
			name, _ = d.str(p.value, "name")
		case "export":
			exported = d.boolean(p.value, "export")
		case "query":
			q = d.query(p.value)
		default:
			d.fail(p.keyN, "unknown define_query key %q", p.key)
		}
	}
	if name == "" {
		d.fail(n, "define_query requires a name")
		return nil
	}
	if q == nil {
		d.fail(n, "define_query '%s' requires a query", name)
		return nil
	}
	return at(ast.NewDefineQuery(name, q, exported), n)
}

func (d *decoder) parameter(n *yaml.Node) ast.ParameterDecl {
	nameN := lookup(n, "name")
	if nameN == nil {
		d.fail(n, "parameter requires a name")
		return nil
	}
	name, ok := d.str(nameN, "parameter name")
	if !ok {
		return nil
	}
	if c := lookup(n, "constant"); c != nil {
		x, _ := d.expr(c)
		if x == nil {
			return nil
		}
		return at(ast.NewConstantParameter(name, at(ast.NewConstant(x), c)), n)
	}
	var typ string
	var isCondition bool
	var def *ast.Constant
	for _, p := range d.pairs(n) {
		switch p.key {
		case "name":
		case "type":
			typ, _ = d.str(p.value, "type")
		case "condition":
			isCondition = d.boolean(p.value, "condition")
		case "default":
			if x, _ := d.expr(p.value); x != nil {
				def = at(ast.NewConstant(x), p.value)
			}
		default:
			d.fail(p.keyN, "unknown parameter key %q", p.key)
		}
	}
	return at(ast.NewHasParameter(name, isCondition, typ, def), n)
}

// source decodes {table|named|query|json: ..., values?, refine?}.
func (d *decoder) source(n *yaml.Node) ast.Source {
	var base ast.Source
	var refine *yaml.Node
	var values *yaml.Node
	for _, p := range d.pairs(n) {
		switch p.key {
		case "table":
			if name, ok := d.str(p.value, "table"); ok {
				base = at(ast.NewTableSource(name), p.value)
			}
		case "named":
			if name, ok := d.str(p.value, "named"); ok {
				base = at(ast.NewNamedSource(name, nil), p.value)
			}
		case "query":
			if q := d.query(p.value); q != nil {
				base = at(ast.NewQuerySource(q), p.value)
			}
		case "json":
			base = d.jsonSource(p.value)
		case "values":
			values = p.value
		case "refine":
			refine = p.value
		default:
			d.fail(p.keyN, "unknown source key %q", p.key)
		}
	}
	if base == nil {
		if n.Kind == yaml.MappingNode {
			d.fail(n, "source requires one of table, named, query or json")
		}
		return nil
	}
	if values != nil {
		named, ok := base.(*ast.NamedSource)
		if !ok {
			d.fail(values, "values are only allowed on a named source")
		} else {
			named = at(ast.NewNamedSource(named.Name, d.values(values)), lookup(n, "named"))
			base = named
		}
	}
	if refine == nil {
		return base
	}
	var props []ast.SourceProperty
	for _, item := range d.items(refine) {
		if sp := d.sourceProperty(item); sp != nil {
			props = append(props, sp)
		}
	}
	return at(ast.NewRefinedSource(base, at(ast.NewSourceDesc(props...), refine)), n)
}

func (d *decoder) values(n *yaml.Node) *ast.IsValueBlock {
	var list []*ast.ParameterValue
	for _, p := range d.pairs(n) {
		x, _ := d.expr(p.value)
		if x == nil {
			continue
		}
		list = append(list, at(ast.NewParameterValue(p.key, at(ast.NewConstant(x), p.value)), p.keyN))
	}
	return at(ast.NewIsValueBlock(list...), n)
}

// jsonSource accepts a schema literal, given as a string of JSON text.
func (d *decoder) jsonSource(n *yaml.Node) ast.Source {
	text, ok := d.str(n, "json")
	if !ok {
		return nil
	}
	var sink diag.List
	ctx := ast.NewContext(&sink, d.baseURL)
	ctx.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	el := at(ast.NewJSONElement(text), n)
	src, ok := ast.FromJSON(ctx, el)
	if !ok {
		if sink.Len() > 0 {
			d.fail(n, "%s", sink.Messages()[0])
		} else {
			d.fail(n, "json is not a schema literal")
		}
		return nil
	}
	return at(src, n)
}

func (d *decoder) sourceProperty(n *yaml.Node) ast.SourceProperty {
	p, ok := d.single(n, "refinement")
	if !ok {
		return nil
	}
	v := p.value
	switch p.key {
	case "primary_key":
		name, ok := d.str(v, "primary_key")
		if !ok {
			return nil
		}
		return at(ast.NewPrimaryKey(at(ast.NewFieldName(name), v)), n)
	case "accept", "except":
		return at(ast.NewFieldListEdit(p.key, d.fieldRefs(v)), n)
	case "rename":
		pairs := d.pairs(v)
		if len(pairs) != 1 {
			d.fail(v, "rename takes exactly one {new: old} entry")
			return nil
		}
		old, ok := d.str(pairs[0].value, "rename")
		if !ok {
			return nil
		}
		return at(ast.NewRenameField(pairs[0].key, old), n)
	case "dimension", "dimensions":
		return at(ast.NewDimensions(d.decls(v)...), n)
	case "measure", "measures":
		return at(ast.NewMeasures(d.decls(v)...), n)
	case "join", "joins":
		var joins []*ast.Join
		if v.Kind == yaml.SequenceNode {
			for _, item := range v.Content {
				if j := d.join(item); j != nil {
					joins = append(joins, j)
				}
			}
		} else if j := d.join(v); j != nil {
			joins = append(joins, j)
		}
		return at(ast.NewJoins(joins...), n)
	case "where", "filter":
		return d.filter(n, ast.FilterAny, v)
	case "queries":
		var turtles []*ast.TurtleDecl
		for _, tp := range d.pairs(v) {
			pipe := d.pipeline(tp.value, lookup(tp.value, "turtle"))
			if pipe == nil {
				continue
			}
			turtles = append(turtles, at(ast.NewTurtleDecl(tp.key, pipe), tp.keyN))
		}
		return at(ast.NewTurtles(turtles...), n)
	default:
		d.fail(p.keyN, "unknown refinement %q", p.key)
		return nil
	}
}

func (d *decoder) join(n *yaml.Node) *ast.Join {
	var name, key string
	var src ast.Source
	for _, p := range d.pairs(n) {
		switch p.key {
		case "name":
			name, _ = d.str(p.value, "join name")
		case "key":
			key, _ = d.str(p.value, "join key")
		case "source":
			src = d.source(p.value)
		default:
			d.fail(p.keyN, "unknown join key %q", p.key)
		}
	}
	if name == "" || src == nil {
		d.fail(n, "join requires a name and a source")
		return nil
	}
	return at(ast.NewJoin(name, src, key), n)
}

// fieldRefs decodes a list of names and wildcards ("*", "**", "j.*").
func (d *decoder) fieldRefs(n *yaml.Node) *ast.FieldReferences {
	var refs []ast.FieldReference
	for _, item := range d.items(n) {
		name, ok := d.str(item, "field reference")
		if !ok {
			continue
		}
		if w := wildcard(name); w != nil {
			refs = append(refs, at(w, item))
			continue
		}
		refs = append(refs, at(ast.NewFieldName(name), item))
	}
	return at(ast.NewFieldReferences(refs...), n)
}

func wildcard(name string) *ast.Wildcard {
	switch {
	case name == "*" || name == "**":
		return ast.NewWildcard("", name)
	case strings.HasSuffix(name, ".**"):
		return ast.NewWildcard(strings.TrimSuffix(name, ".**"), "**")
	case strings.HasSuffix(name, ".*"):
		return ast.NewWildcard(strings.TrimSuffix(name, ".*"), "*")
	}
	return nil
}

// decls decodes {name: expr} entries in order.
func (d *decoder) decls(n *yaml.Node) []*ast.ExprFieldDecl {
	var out []*ast.ExprFieldDecl
	for _, p := range d.pairs(n) {
		x, _ := d.expr(p.value)
		if x == nil {
			continue
		}
		out = append(out, at(ast.NewExprFieldDecl(p.key, x), p.keyN))
	}
	return out
}

func (d *decoder) filter(stmt *yaml.Node, kind string, n *yaml.Node) *ast.Filter {
	list := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		list = n.Content
	}
	var elems []*ast.FilterElement
	for _, item := range list {
		x, text := d.expr(item)
		if x == nil {
			continue
		}
		elems = append(elems, at(ast.NewFilterElement(x, text), item))
	}
	return at(ast.NewFilter(kind, elems...), stmt)
}

// query decodes {from|from_query, turtle?, refine?, pipeline?}.
func (d *decoder) query(n *yaml.Node) ast.QueryElement {
	if n.Kind != yaml.MappingNode {
		d.fail(n, "query must be a mapping")
		return nil
	}
	if fq := lookup(n, "from_query"); fq != nil {
		pipe := d.pipeline(n, fq)
		if pipe == nil {
			return nil
		}
		return at(ast.NewExistingQuery(pipe), n)
	}
	fromN := lookup(n, "from")
	if fromN == nil {
		d.fail(n, "query requires from or from_query")
		return nil
	}
	src := d.source(fromN)
	pipe := d.pipeline(n, lookup(n, "turtle"))
	if src == nil || pipe == nil {
		return nil
	}
	return at(ast.NewFullQuery(src, pipe), n)
}

// pipeline decodes the refine and pipeline keys of n. headN, when set,
// names the head.
func (d *decoder) pipeline(n *yaml.Node, headN *yaml.Node) *ast.PipelineDesc {
	if n.Kind != yaml.MappingNode {
		d.fail(n, "expected a mapping")
		return nil
	}
	head := ""
	if headN != nil {
		h, ok := d.str(headN, "pipeline head")
		if !ok {
			return nil
		}
		head = h
	}
	pipe := at(ast.NewPipelineDesc(head), n)
	for _, p := range d.pairs(n) {
		switch p.key {
		case "from", "from_query", "turtle":
		case "refine":
			pipe.RefineHead(d.stage(p.value))
		case "pipeline":
			var segs []*ast.QueryDesc
			for _, item := range d.items(p.value) {
				segs = append(segs, d.stage(item))
			}
			pipe.AddSegments(segs...)
		default:
			d.fail(p.keyN, "unknown query key %q", p.key)
		}
	}
	return pipe
}

// stage decodes a list of one-key statements.
func (d *decoder) stage(n *yaml.Node) *ast.QueryDesc {
	var props []ast.QueryProperty
	for _, item := range d.items(n) {
		if qp := d.queryProperty(item); qp != nil {
			props = append(props, qp)
		}
	}
	return at(ast.NewQueryDesc(props...), n)
}

func (d *decoder) queryProperty(n *yaml.Node) ast.QueryProperty {
	p, ok := d.single(n, "query statement")
	if !ok {
		return nil
	}
	v := p.value
	switch p.key {
	case "group_by":
		return at(ast.NewGroupBy(d.queryItems(v)...), n)
	case "aggregate":
		return at(ast.NewAggregate(d.queryItems(v)...), n)
	case "project":
		return at(ast.NewFieldCollection(d.members(v)...), n)
	case "where":
		return d.filter(n, ast.FilterWhere, v)
	case "having":
		return d.filter(n, ast.FilterHaving, v)
	case "filter":
		return d.filter(n, ast.FilterAny, v)
	case "order_by":
		return d.ordering(n, v)
	case "limit":
		limit, ok := d.integer(v, "limit")
		if !ok {
			return nil
		}
		return at(ast.NewLimit(limit), n)
	case "top":
		return d.top(n, v)
	case "nest":
		var nests []*ast.Nest
		list := []*yaml.Node{v}
		if v.Kind == yaml.SequenceNode {
			list = v.Content
		}
		for _, item := range list {
			if name, ok := d.str(item, "nest"); ok {
				nests = append(nests, at(ast.NewNest(name), item))
			}
		}
		return at(ast.NewNests(nests...), n)
	default:
		d.fail(p.keyN, "unknown query statement %q", p.key)
		return nil
	}
}

// queryItems decodes names and {name: expr} declarations.
func (d *decoder) queryItems(n *yaml.Node) []ast.QueryItem {
	var out []ast.QueryItem
	for _, item := range d.listOf(n) {
		if item.Kind == yaml.ScalarNode {
			if name, ok := d.str(item, "field"); ok {
				out = append(out, at(ast.NewFieldName(name), item))
			}
			continue
		}
		for _, decl := range d.decls(item) {
			out = append(out, decl)
		}
	}
	return out
}

func (d *decoder) members(n *yaml.Node) []ast.FieldCollectionMember {
	var out []ast.FieldCollectionMember
	for _, item := range d.listOf(n) {
		if item.Kind != yaml.ScalarNode {
			for _, decl := range d.decls(item) {
				out = append(out, decl)
			}
			continue
		}
		name, ok := d.str(item, "field")
		if !ok {
			continue
		}
		if w := wildcard(name); w != nil {
			out = append(out, at(w, item))
			continue
		}
		out = append(out, at(ast.NewFieldName(name), item))
	}
	return out
}

// listOf treats a single item as a list of one.
func (d *decoder) listOf(n *yaml.Node) []*yaml.Node {
	if n.Kind == yaml.SequenceNode {
		return n.Content
	}
	return []*yaml.Node{n}
}

// ordering decodes "field [asc|desc]" strings and 1-based positions.
func (d *decoder) ordering(stmt, n *yaml.Node) *ast.Ordering {
	var list []*ast.OrderBy
	for _, item := range d.listOf(n) {
		if item.Kind != yaml.ScalarNode {
			d.fail(item, "order_by key must be a field name or a position")
			continue
		}
		words := strings.Fields(item.Value)
		if len(words) == 0 || len(words) > 2 {
			d.fail(item, "malformed order_by key %q", item.Value)
			continue
		}
		dir := ""
		if len(words) == 2 {
			dir = strings.ToLower(words[1])
			if dir != "asc" && dir != "desc" {
				d.fail(item, "order_by direction must be asc or desc, not %q", words[1])
				continue
			}
		}
		if pos, err := strconv.Atoi(words[0]); err == nil {
			list = append(list, at(ast.NewOrderBy("", pos, dir), item))
			continue
		}
		list = append(list, at(ast.NewOrderBy(words[0], 0, dir), item))
	}
	return at(ast.NewOrdering(list...), stmt)
}

// top decodes "top: N" or "top: {n: N, by: name | expr}".
func (d *decoder) top(stmt, n *yaml.Node) *ast.Top {
	if n.Kind == yaml.ScalarNode {
		limit, ok := d.integer(n, "top")
		if !ok {
			return nil
		}
		return at(ast.NewTop(limit, "", nil), stmt)
	}
	nN := lookup(n, "n")
	if nN == nil {
		d.fail(n, "top requires n")
		return nil
	}
	limit, ok := d.integer(nN, "top")
	if !ok {
		return nil
	}
	byN := lookup(n, "by")
	switch {
	case byN == nil:
		return at(ast.NewTop(limit, "", nil), stmt)
	case byN.Kind == yaml.ScalarNode:
		name, ok := d.str(byN, "top by")
		if !ok {
			return nil
		}
		return at(ast.NewTop(limit, name, nil), stmt)
	default:
		x, _ := d.expr(byN)
		if x == nil {
			return nil
		}
		return at(ast.NewTop(limit, "", x), stmt)
	}
}
