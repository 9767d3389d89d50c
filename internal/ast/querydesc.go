package ast

import (
	"slices"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/space"
)

// QueryProperty is a statement of one pipeline stage.
type QueryProperty interface {
	Element
	queryProperty()
}

// segKind is the inferred kind of a stage. "aggregate" produces a grouping
// segment but is kept apart for messages.
type segKind string

const (
	kindGrouping  segKind = "grouping"
	kindAggregate segKind = "aggregate"
	kindProject   segKind = "project"
)

// QueryDesc is the statement list of one pipeline stage.
type QueryDesc struct {
	node
	Props []QueryProperty

	refineThis *model.Segment
}

func NewQueryDesc(props ...QueryProperty) *QueryDesc {
	q := &QueryDesc{Props: props}
	q.hasList(q, "queryDesc", elements(props))
	return q
}

func (*QueryDesc) ElementType() string { return "queryDesc" }

// RefineFrom makes the stage a refinement of existing: its filters,
// ordering and limit are inherited and its fields come first.
func (q *QueryDesc) RefineFrom(existing model.Segment) {
	seg := existing.Clone()
	q.refineThis = &seg
}

// computeKind infers the stage kind from the order of its statements. The
// first group_by makes it grouping, the first aggregate makes it aggregate
// (grouping once any group_by appears), the first project makes it a
// projection. group_by and aggregate met once the kind is projection are
// illegal. A refinement starts from the refined segment's kind.
func (q *QueryDesc) computeKind(ctx *Context) segKind {
	var first segKind
	if q.refineThis != nil {
		first = kindGrouping
		if q.refineThis.Type == model.SegmentProjection {
			first = kindProject
		}
	}
	anyGrouping := false
	for _, p := range q.Props {
		switch p.(type) {
		case *GroupBy:
			if first == "" {
				first = kindGrouping
			}
			anyGrouping = true
			if first == kindProject {
				ctx.Log(p, "group_by: not legal in project: segment")
			}
		case *Aggregate:
			if first == "" {
				first = kindAggregate
			}
			if first == kindProject {
				ctx.Log(p, "aggregate: not legal in project: segment")
			}
		case *FieldCollection:
			if first == "" {
				first = kindProject
			}
		}
	}
	if first == kindAggregate && anyGrouping {
		first = kindGrouping
	}
	if first == "" {
		first = kindGrouping
	}
	return first
}

// Segment resolves the stage against its input schema.
func (q *QueryDesc) Segment(ctx *Context, input *space.Static) model.Segment {
	kind := q.computeKind(ctx)
	var qs *space.Query
	if kind == kindProject {
		qs = space.NewProject(input)
	} else {
		qs = space.NewReduce(input)
	}

	seg := model.Segment{Type: qs.Kind()}
	var existing []model.SegmentField
	if q.refineThis != nil {
		seg = *q.refineThis
		existing = seg.Fields
		seg.Type = qs.Kind()
		seg.Fields = nil
	}

	var didOrderBy *Ordering
	var didLimit *Limit
	var didTop *Top
	topHasBy := false
	for _, p := range q.Props {
		switch el := p.(type) {
		case *GroupBy:
			if kind != kindProject {
				q.addQueryItems(ctx, qs, el.Items)
			}
		case *Aggregate:
			if kind != kindProject {
				q.addQueryItems(ctx, qs, el.Items)
			}
		case *Limit:
			if didTop != nil {
				ctx.Log(didTop, "Ignored top limit because limit statement exists")
			}
			seg.Limit = model.IntPtr(el.Limit)
			seg.By = nil
			topHasBy = false
			didLimit = el
		case *Filter:
			seg.FilterList = append(seg.FilterList, el.filterList(ctx, qs)...)
		case *Ordering:
			if topHasBy {
				ctx.Log(el, "Ignored order_by because top statement exists")
				continue
			}
			seg.By = nil
			seg.OrderBy = el.orderBy()
			didOrderBy = el
		case *FieldCollection:
			if kind == kindProject {
				q.addMembers(ctx, qs, el.Members)
			} else {
				ctx.Log(el, "Not a legal statement in a %s query", kind)
			}
		case *Top:
			seg.Limit = model.IntPtr(el.Limit)
			if didLimit != nil {
				ctx.Log(didLimit, "Ignored limit because top statement exists")
				didLimit = nil
			}
			if by := el.by(ctx, qs); by != nil {
				seg.OrderBy = nil
				seg.By = by
				topHasBy = true
				if didOrderBy != nil {
					ctx.Log(didOrderBy, "Ignored order_by because top statement exists")
					didOrderBy = nil
				}
			}
			didTop = el
		case *Nests, *Nest:
			ctx.Log(el, "Can't nest a turtle in a query segment yet")
		default:
			ctx.InternalError(p, "unrecognized segment parameter '%s'", p.ElementType())
		}
	}

	fields, redefined := qs.Fields(existing)
	for _, name := range redefined {
		ctx.Warn(q, "Field '%s' redefined", name)
	}
	seg.Fields = fields
	q.checkOrdering(ctx, didOrderBy, seg)
	return seg
}

func (q *QueryDesc) addQueryItems(ctx *Context, qs *space.Query, items []QueryItem) {
	for _, item := range items {
		switch it := item.(type) {
		case *FieldName:
			replaced, err := qs.AddRef(it.Name)
			q.reportAdd(ctx, qs, it, it.Name, replaced, err)
		case *ExprFieldDecl:
			def := it.FieldDef(ctx, qs)
			replaced, err := qs.AddDef(def)
			q.reportAdd(ctx, qs, it, def.Identifier(), replaced, err)
		default:
			ctx.InternalError(item, "unexpected query item '%s'", item.ElementType())
		}
	}
}

func (q *QueryDesc) addMembers(ctx *Context, qs *space.Query, members []FieldCollectionMember) {
	for _, member := range members {
		switch m := member.(type) {
		case *FieldName:
			replaced, err := qs.AddRef(m.Name)
			q.reportAdd(ctx, qs, m, m.Name, replaced, err)
		case *Wildcard:
			replaced, err := qs.ExpandWildcard(m.Join, m.Star)
			if err != nil {
				q.reportAdd(ctx, qs, m, m.Join, false, err)
			}
			for _, name := range replaced {
				ctx.Warn(m, "Field '%s' redefined", name)
			}
		case *ExprFieldDecl:
			def := m.FieldDef(ctx, qs)
			replaced, err := qs.AddDef(def)
			q.reportAdd(ctx, qs, m, def.Identifier(), replaced, err)
		default:
			ctx.InternalError(member, "unexpected field collection member '%s'", member.ElementType())
		}
	}
}

func (q *QueryDesc) reportAdd(ctx *Context, qs *space.Query, el Element, name string, replaced bool, err error) {
	switch {
	case err != nil:
		ctx.LogHint(el, hintFor(err, name, qs.Input().Names()), "%s", err.Error())
	case replaced:
		ctx.Warn(el, "Field '%s' redefined", lastName(name))
	}
}

// checkOrdering reports ordering keys that are not output fields of the
// stage.
func (q *QueryDesc) checkOrdering(ctx *Context, ordering *Ordering, seg model.Segment) {
	if ordering == nil {
		return
	}
	names := seg.FieldNames()
	for i, o := range seg.OrderBy {
		el := Element(ordering)
		if i < len(ordering.List) {
			el = ordering.List[i]
		}
		switch {
		case o.Field != "" && !slices.Contains(names, o.Field):
			ctx.undefined(el, names, "Unknown field '%s' in order_by", o.Field)
		case o.Field == "" && (o.Position < 1 || o.Position > len(names)):
			ctx.Log(el, "order_by position %d is out of range", o.Position)
		}
	}
}
