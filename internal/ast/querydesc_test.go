package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mtrans/internal/diag"
	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/space"
)

func flightsInput() *space.Static {
	return space.NewStatic(flightsTable())
}

func TestSegmentKind(t *testing.T) {
	tests := []struct {
		name  string
		props []QueryProperty
		want  model.SegmentType
		msgs  []string
	}{
		{"empty", nil, model.SegmentGrouping, []string{}},
		{"group_by", []QueryProperty{NewGroupBy(NewFieldName("carrier"))}, model.SegmentGrouping, []string{}},
		{"aggregate only", []QueryProperty{NewAggregate(count("c"))}, model.SegmentGrouping, []string{}},
		{"aggregate then group_by", []QueryProperty{
			NewAggregate(count("c")), NewGroupBy(NewFieldName("carrier")),
		}, model.SegmentGrouping, []string{}},
		{"project", []QueryProperty{NewFieldCollection(NewFieldName("id"))}, model.SegmentProjection, []string{}},
		{"project then group_by", []QueryProperty{
			NewFieldCollection(NewFieldName("id")), NewGroupBy(NewFieldName("carrier")),
		}, model.SegmentProjection, []string{"group_by: not legal in project: segment"}},
		{"project then aggregate", []QueryProperty{
			NewFieldCollection(NewFieldName("id")), NewAggregate(count("c")),
		}, model.SegmentProjection, []string{"aggregate: not legal in project: segment"}},
		{"group_by then project", []QueryProperty{
			NewGroupBy(NewFieldName("carrier")), NewFieldCollection(NewFieldName("id")),
		}, model.SegmentGrouping, []string{"Not a legal statement in a grouping query"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, list := newTestContext(t)
			seg := stage(tt.props...).Segment(ctx, flightsInput())
			assert.Equal(t, tt.want, seg.Type)
			assert.Equal(t, tt.msgs, list.Messages())
		})
	}
}

func TestSegmentFields(t *testing.T) {
	ctx, list := newTestContext(t)
	seg := stage(
		NewGroupBy(NewFieldName("carrier")),
		NewAggregate(count("flight_count"), NewExprFieldDecl("total",
			NewExprAggregate(AggSum, "", NewExprField("distance")))),
	).Segment(ctx, flightsInput())
	require.Empty(t, list.Messages())

	assert.Equal(t, []string{"carrier", "flight_count", "total"}, seg.FieldNames())
	assert.Equal(t, "carrier", seg.Fields[0].Ref)
	assert.True(t, seg.Fields[1].IsAggregate())
	assert.Equal(t, "sum(distance)", seg.Fields[2].Def.Expression.String())
}

func TestTopByThenOrderingLogsOnce(t *testing.T) {
	ctx, list := newTestContext(t)
	seg := stage(
		NewGroupBy(NewFieldName("carrier")),
		NewAggregate(count("c")),
		NewTop(5, "c", nil),
		NewOrdering(NewOrderBy("carrier", 0, model.Ascending)),
	).Segment(ctx, flightsInput())

	assert.Equal(t, []string{"Ignored order_by because top statement exists"}, list.Messages())
	assert.Equal(t, &model.By{By: model.ByName, Name: "c"}, seg.By)
	assert.Nil(t, seg.OrderBy)
	require.NotNil(t, seg.Limit)
	assert.Equal(t, 5, *seg.Limit)
}

func TestOrderingThenTopBy(t *testing.T) {
	ctx, list := newTestContext(t)
	ordering := NewOrdering(NewOrderBy("carrier", 0, model.Descending))
	ordering.SetRange(rangeAt(3))
	seg := stage(
		NewGroupBy(NewFieldName("carrier")),
		NewAggregate(count("c")),
		ordering,
		NewTop(5, "c", nil),
	).Segment(ctx, flightsInput())

	items := list.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Ignored order_by because top statement exists", items[0].Message)
	assert.Equal(t, 3, items[0].Range.Begin.Line)
	assert.Equal(t, "c", seg.By.Name)
	assert.Nil(t, seg.OrderBy)
}

func TestTopWithoutByKeepsOrdering(t *testing.T) {
	ctx, list := newTestContext(t)
	seg := stage(
		NewGroupBy(NewFieldName("carrier")),
		NewOrdering(NewOrderBy("carrier", 0, model.Descending)),
		NewTop(3, "", nil),
	).Segment(ctx, flightsInput())

	assert.Empty(t, list.Messages())
	assert.Nil(t, seg.By)
	assert.Equal(t, []model.OrderBy{{Field: "carrier", Dir: model.Descending}}, seg.OrderBy)
	assert.Equal(t, 3, *seg.Limit)
}

func TestLimitAndTop(t *testing.T) {
	tests := []struct {
		name  string
		props []QueryProperty
		limit int
		msgs  []string
	}{
		{"limit then top", []QueryProperty{NewLimit(10), NewTop(5, "", nil)}, 5,
			[]string{"Ignored limit because top statement exists"}},
		{"top then limit", []QueryProperty{NewTop(5, "", nil), NewLimit(10)}, 10,
			[]string{"Ignored top limit because limit statement exists"}},
		{"limit alone", []QueryProperty{NewLimit(7)}, 7, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, list := newTestContext(t)
			props := append([]QueryProperty{NewGroupBy(NewFieldName("carrier"))}, tt.props...)
			seg := stage(props...).Segment(ctx, flightsInput())
			require.NotNil(t, seg.Limit)
			assert.Equal(t, tt.limit, *seg.Limit)
			assert.Equal(t, tt.msgs, list.Messages())
		})
	}
}

func TestLimitDropsTopKey(t *testing.T) {
	ctx, list := newTestContext(t)
	seg := stage(
		NewGroupBy(NewFieldName("carrier")),
		NewAggregate(count("c")),
		NewTop(5, "carrier", nil),
		NewLimit(20),
		NewOrdering(NewOrderBy("c", 0, model.Descending)),
	).Segment(ctx, flightsInput())

	assert.Equal(t, []string{"Ignored top limit because limit statement exists"}, list.Messages())
	require.NotNil(t, seg.Limit)
	assert.Equal(t, 20, *seg.Limit)
	assert.Nil(t, seg.By)
	assert.Equal(t, []model.OrderBy{{Field: "c", Dir: model.Descending}}, seg.OrderBy)
}

func TestTopByExpression(t *testing.T) {
	ctx, list := newTestContext(t)
	seg := stage(
		NewGroupBy(NewFieldName("carrier")),
		NewTop(5, "", NewExprAggregate(AggSum, "", NewExprField("distance"))),
	).Segment(ctx, flightsInput())
	require.Empty(t, list.Messages())
	assert.Equal(t, model.ByExpression, seg.By.By)
	assert.Equal(t, "sum(distance)", seg.By.E.String())

	ctx, list = newTestContext(t)
	stage(
		NewGroupBy(NewFieldName("carrier")),
		NewTop(5, "", NewExprField("distance")),
	).Segment(ctx, flightsInput())
	assert.Equal(t, []string{"top by expression must be an aggregate"}, list.Messages())
}

func TestSegmentFilters(t *testing.T) {
	aggregateCond := func() Expr {
		return NewExprCompare(">", NewExprAggregate(AggCount, "", nil), NewExprNumber("1"))
	}
	scalarCond := func() Expr {
		return NewExprCompare("=", NewExprField("carrier"), NewExprString("AA"))
	}
	tests := []struct {
		name    string
		filter  *Filter
		kept    int
		sources []string
		msgs    []string
	}{
		{"where scalar", NewFilter(FilterWhere, NewFilterElement(scalarCond(), "carrier = 'AA'")),
			1, []string{"carrier = 'AA'"}, []string{}},
		{"where aggregate", NewFilter(FilterWhere, NewFilterElement(aggregateCond(), "count() > 1")),
			0, nil, []string{"Aggregate expression not allowed in WHERE"}},
		{"having aggregate", NewFilter(FilterHaving, NewFilterElement(aggregateCond(), "count() > 1")),
			1, []string{"count() > 1"}, []string{}},
		{"having scalar", NewFilter(FilterHaving, NewFilterElement(scalarCond(), "carrier = 'AA'")),
			0, nil, []string{"Aggregate expression expected in HAVING filter"}},
		{"untyped mix", NewFilter(FilterAny,
			NewFilterElement(scalarCond(), "a"), NewFilterElement(aggregateCond(), "b")),
			2, []string{"a", "b"}, []string{}},
		{"not boolean", NewFilter(FilterAny, NewFilterElement(NewExprField("distance"), "distance")),
			1, []string{"distance"}, []string{"Filter expression must have boolean value"}},
		{"unknown type is quiet", NewFilter(FilterAny, NewFilterElement(NewExprField("nope"), "nope")),
			1, []string{"nope"}, []string{"'nope' is not defined"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, list := newTestContext(t)
			seg := stage(NewGroupBy(NewFieldName("carrier")), tt.filter).Segment(ctx, flightsInput())
			require.Len(t, seg.FilterList, tt.kept)
			for i, src := range tt.sources {
				assert.Equal(t, src, seg.FilterList[i].Source)
			}
			assert.Equal(t, tt.msgs, list.Messages())
		})
	}
}

func TestNonBooleanFilterSentinel(t *testing.T) {
	ctx, _ := newTestContext(t)
	seg := stage(NewFilter(FilterAny, NewFilterElement(NewExprField("distance"), "distance"))).
		Segment(ctx, flightsInput())
	require.Len(t, seg.FilterList, 1)
	assert.Equal(t, "_FILTER_MUST_RETURN_BOOLEAN_", seg.FilterList[0].Expression.String())
}

func TestProjectStage(t *testing.T) {
	ctx, list := newTestContext(t)
	seg := stage(NewFieldCollection(NewWildcard("", "*"))).Segment(ctx, flightsInput())
	require.Empty(t, list.Messages())
	assert.Equal(t, model.SegmentProjection, seg.Type)
	assert.Equal(t, []string{"id", "carrier", "dep_time", "dep_date", "distance"}, seg.FieldNames())

	ctx, list = newTestContext(t)
	seg = stage(NewFieldCollection(NewFieldName("id"), count("c"))).Segment(ctx, flightsInput())
	assert.Equal(t, []string{"Cannot add aggregate 'c' to project"}, list.Messages())
	assert.Equal(t, []string{"id"}, seg.FieldNames())
}

func TestSegmentUndefinedField(t *testing.T) {
	ctx, list := newTestContext(t)
	seg := stage(NewGroupBy(NewFieldName("carier"))).Segment(ctx, flightsInput())

	items := list.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "'carier' is not defined", items[0].Message)
	assert.Equal(t, "did you mean 'carrier'?", items[0].Hint)
	assert.Empty(t, seg.Fields)
}

func TestSegmentRedefinedField(t *testing.T) {
	ctx, list := newTestContext(t)
	seg := stage(NewGroupBy(NewFieldName("carrier"), NewFieldName("carrier"))).Segment(ctx, flightsInput())
	assert.Equal(t, []string{"Field 'carrier' redefined"}, list.Messages())
	assert.Equal(t, diag.SeverityWarning, list.Items()[0].Severity)
	assert.Equal(t, []string{"carrier"}, seg.FieldNames())
}

func TestOrderingChecks(t *testing.T) {
	tests := []struct {
		name string
		by   *OrderBy
		msgs []string
	}{
		{"known field", NewOrderBy("carrier", 0, ""), []string{}},
		{"known position", NewOrderBy("", 2, ""), []string{}},
		{"unknown field", NewOrderBy("carier", 0, ""), []string{"Unknown field 'carier' in order_by"}},
		{"position too large", NewOrderBy("", 3, ""), []string{"order_by position 3 is out of range"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, list := newTestContext(t)
			stage(
				NewGroupBy(NewFieldName("carrier")),
				NewAggregate(count("c")),
				NewOrdering(tt.by),
			).Segment(ctx, flightsInput())
			assert.Equal(t, tt.msgs, list.Messages())
		})
	}
}

func TestNestNotSupported(t *testing.T) {
	ctx, list := newTestContext(t)
	stage(NewGroupBy(NewFieldName("carrier")), NewNests(NewNest("by_month"))).Segment(ctx, flightsInput())
	assert.Equal(t, []string{"Can't nest a turtle in a query segment yet"}, list.Messages())
}

func TestRefineSegment(t *testing.T) {
	existing := model.Segment{
		Type:   model.SegmentGrouping,
		Fields: []model.SegmentField{model.FieldRef("carrier")},
		Limit:  model.IntPtr(10),
		By:     &model.By{By: model.ByName, Name: "carrier"},
	}
	ctx, list := newTestContext(t)
	q := stage(
		NewAggregate(count("c")),
		NewFilter(FilterWhere, NewFilterElement(NewExprCompare(">", NewExprField("distance"), NewExprNumber("0")), "distance > 0")),
		NewOrdering(NewOrderBy("c", 0, model.Descending)),
	)
	q.RefineFrom(existing)
	seg := q.Segment(ctx, flightsInput())
	require.Empty(t, list.Messages())

	assert.Equal(t, []string{"carrier", "c"}, seg.FieldNames())
	assert.Equal(t, 10, *seg.Limit)
	assert.Nil(t, seg.By, "an explicit ordering replaces the inherited top key")
	assert.Equal(t, []model.OrderBy{{Field: "c", Dir: model.Descending}}, seg.OrderBy)
	require.Len(t, seg.FilterList, 1)

	assert.Equal(t, 1, len(existing.Fields), "the refined segment is not mutated")
}

func TestRefineLimitDropsInheritedTopKey(t *testing.T) {
	existing := model.Segment{
		Type:   model.SegmentGrouping,
		Fields: []model.SegmentField{model.FieldRef("carrier")},
		Limit:  model.IntPtr(5),
		By:     &model.By{By: model.ByName, Name: "carrier"},
	}
	ctx, list := newTestContext(t)
	q := stage(NewLimit(20))
	q.RefineFrom(existing)
	seg := q.Segment(ctx, flightsInput())
	require.Empty(t, list.Messages())

	require.NotNil(t, seg.Limit)
	assert.Equal(t, 20, *seg.Limit)
	assert.Nil(t, seg.By)
	assert.NotNil(t, existing.By, "the refined segment is not mutated")
}

func TestRefineProjectionRejectsGroupBy(t *testing.T) {
	ctx, list := newTestContext(t)
	q := stage(NewGroupBy(NewFieldName("carrier")))
	q.RefineFrom(model.Segment{Type: model.SegmentProjection, Fields: []model.SegmentField{model.FieldRef("id")}})
	seg := q.Segment(ctx, flightsInput())

	assert.Equal(t, []string{"group_by: not legal in project: segment"}, list.Messages())
	assert.Equal(t, model.SegmentProjection, seg.Type)
	assert.Equal(t, []string{"id"}, seg.FieldNames())
}
