package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/space"
)

func flightsSpace() *space.Static {
	f := flightsTable()
	carriers := carriersTable()
	carriers.As = "carriers"
	f.Fields = append(f.Fields,
		model.FieldDef{Name: "carriers", Type: model.TypeStruct, Struct: carriers},
		model.FieldDef{Name: "flight_count", Type: model.TypeNumber, Aggregate: true,
			Expression: model.Mk(model.AggregateFragment{Function: "count"})},
	)
	f.Parameters = map[string]model.Parameter{
		"origin": {Name: "origin", Type: model.TypeString, Value: model.Mk("'SFO'")},
	}
	return space.NewStatic(f)
}

func TestExprEval(t *testing.T) {
	tests := []struct {
		name      string
		expr      Expr
		dataType  model.FieldType
		aggregate bool
		value     string
	}{
		{"field", NewExprField("distance"), model.TypeNumber, false, "distance"},
		{"joined field", NewExprField("carriers.nickname"), model.TypeString, false, "carriers.nickname"},
		{"measure", NewExprField("flight_count"), model.TypeNumber, true, "flight_count"},
		{"parameter", NewExprField("origin"), model.TypeString, false, "$origin"},
		{"number", NewExprNumber("1.50"), model.TypeNumber, false, "1.5"},
		{"string", NewExprString("it's"), model.TypeString, false, "'it''s'"},
		{"boolean", NewExprBool(true), model.TypeBoolean, false, "true"},
		{"null", NewExprNull(), model.TypeNull, false, "NULL"},
		{"date", NewExprTime("@2021-03-01"), model.TypeDate, false, "timeLiteral('2021-03-01')"},
		{"timestamp", NewExprTime("@2021-03-01 10:30:00"), model.TypeTimestamp, false, "timeLiteral('2021-03-01 10:30:00')"},
		{"count", NewExprAggregate(AggCount, "", nil), model.TypeNumber, true, "count()"},
		{"sum", NewExprAggregate(AggSum, "", NewExprField("distance")), model.TypeNumber, true, "sum(distance)"},
		{"max time", NewExprAggregate(AggMax, "", NewExprField("dep_time")), model.TypeTimestamp, true, "max(dep_time)"},
		{"count over join", NewExprAggregate(AggCount, "carriers", nil), model.TypeNumber, true, "carriers.count()"},
		{"compare", NewExprCompare(">", NewExprField("distance"), NewExprNumber("100")), model.TypeBoolean, false, "distance > 100"},
		{"compare date to timestamp", NewExprCompare(">=", NewExprField("dep_time"), NewExprTime("@2021-01-01")), model.TypeBoolean, false, "dep_time >= timeLiteral('2021-01-01')"},
		{"aggregate compare", NewExprCompare(">", NewExprAggregate(AggCount, "", nil), NewExprNumber("1")), model.TypeBoolean, true, "count() > 1"},
		{"logical", NewExprLogical("and", NewExprBool(true), NewExprCompare("=", NewExprField("carrier"), NewExprString("AA"))), model.TypeBoolean, false, "true and carrier = 'AA'"},
		{"not", NewExprNot(NewExprBool(false)), model.TypeBoolean, false, "not false"},
		{"arith", NewExprArith("*", NewExprField("distance"), NewExprNumber("2")), model.TypeNumber, false, "(distance*2)"},
		{"minus", NewExprMinus(NewExprField("distance")), model.TypeNumber, false, "-distance"},
		{"granular", NewExprGranularTime(NewExprField("dep_time"), "month", false), model.TypeTimestamp, false, "dep_time"},
		{"truncate", NewExprGranularTime(NewExprField("dep_date"), "year", true), model.TypeDate, false, "trunc(dep_date, year)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, list := newTestContext(t)
			v := tt.expr.Eval(ctx, flightsSpace())
			assert.Empty(t, list.Messages())
			assert.Equal(t, tt.dataType, v.DataType)
			assert.Equal(t, tt.aggregate, v.Aggregate)
			assert.Equal(t, tt.value, v.Value.String())
		})
	}
}

func TestExprTimeframe(t *testing.T) {
	ctx, _ := newTestContext(t)
	v := NewExprGranularTime(NewExprField("dep_time"), "week", true).Eval(ctx, flightsSpace())
	assert.Equal(t, "week", v.Timeframe)
	require.Len(t, v.Value, 1)
	frag, ok := v.Value[0].(model.DialectFragment)
	require.True(t, ok)
	assert.Equal(t, model.TypeTimestamp, frag.ValueType)
}

func TestExprErrors(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		msg  string
	}{
		{"undefined", NewExprField("distanse"), "'distanse' is not defined"},
		{"struct in expression", NewExprField("carriers"), "'carriers' is not a scalar field"},
		{"bad number", NewExprNumber("1..2"), "Illegal number '1..2'"},
		{"bad time", NewExprTime("@2021-13-45"), "Illegal time literal '@2021-13-45'"},
		{"sum needs arg", NewExprAggregate(AggSum, "", nil), "sum() requires an argument"},
		{"sum of string", NewExprAggregate(AggSum, "", NewExprField("carrier")), "sum() requires a number, not 'string'"},
		{"nested aggregate", NewExprAggregate(AggMax, "", NewExprField("flight_count")), "Aggregate function max() cannot take an aggregate argument"},
		{"aggregate over non-join", NewExprAggregate(AggCount, "carrier", nil), "'carrier' is not a join"},
		{"compare types", NewExprCompare("=", NewExprField("carrier"), NewExprNumber("1")), "Cannot compare a 'string' to a 'number'"},
		{"logical types", NewExprLogical("or", NewExprBool(true), NewExprNumber("1")), "Operator 'or' requires boolean operands, not 'number'"},
		{"not type", NewExprNot(NewExprNumber("1")), "'not' requires a boolean, not 'number'"},
		{"arith types", NewExprArith("+", NewExprField("carrier"), NewExprNumber("1")), "Non numeric('string,number') value with '+'"},
		{"minus type", NewExprMinus(NewExprString("x")), "'-' requires a number, not 'string'"},
		{"truncate non-time", NewExprGranularTime(NewExprField("carrier"), "day", true), "Cannot do time truncation on type 'string'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, list := newTestContext(t)
			v := tt.expr.Eval(ctx, flightsSpace())
			assert.Equal(t, []string{tt.msg}, list.Messages())
			assert.Equal(t, model.TypeUnknown, v.DataType)
		})
	}
}

func TestExprErrorsDoNotCascade(t *testing.T) {
	ctx, list := newTestContext(t)
	e := NewExprLogical("and",
		NewExprCompare(">", NewExprField("nope"), NewExprNumber("1")),
		NewExprNot(NewExprField("nope2")),
	)

	v := e.Eval(ctx, flightsSpace())

	assert.Equal(t, model.TypeUnknown, v.DataType)
	assert.Equal(t, []string{"'nope' is not defined", "'nope2' is not defined"}, list.Messages())
}

func TestUndefinedFieldHint(t *testing.T) {
	ctx, list := newTestContext(t)
	NewExprField("distanse").Eval(ctx, flightsSpace())

	items := list.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "did you mean 'distance'?", items[0].Hint)
}

func TestConstantFolding(t *testing.T) {
	tests := []struct {
		name     string
		expr     Expr
		dataType model.FieldType
		value    string
	}{
		{"arith", NewExprArith("+", NewExprNumber("1.5"), NewExprArith("*", NewExprNumber("2"), NewExprNumber("3"))), model.TypeNumber, "7.5"},
		{"minus", NewExprMinus(NewExprNumber("4")), model.TypeNumber, "-4"},
		{"division", NewExprArith("/", NewExprNumber("1"), NewExprNumber("4")), model.TypeNumber, "0.25"},
		{"division by zero stays unfolded", NewExprArith("/", NewExprNumber("1"), NewExprNumber("0")), model.TypeNumber, "(1/0)"},
		{"logic", NewExprNot(NewExprLogical("and", NewExprBool(true), NewExprBool(false))), model.TypeBoolean, "true"},
		{"numeric compare", NewExprCompare(">", NewExprNumber("2"), NewExprNumber("10")), model.TypeBoolean, "false"},
		{"string", NewExprString("abc"), model.TypeString, "'abc'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, list := newTestContext(t)
			v := NewConstant(tt.expr).Value(ctx)
			assert.Empty(t, list.Messages())
			assert.Equal(t, tt.dataType, v.DataType)
			assert.Equal(t, tt.value, v.Value.String())
		})
	}
}

func TestConstantFoldsOnce(t *testing.T) {
	ctx, list := newTestContext(t)
	c := NewConstant(NewExprField("x"))

	c.Value(ctx)
	c.Value(ctx)

	assert.Equal(t, []string{"'x' is not defined"}, list.Messages(), "constants cannot reference fields")
}
