package ast

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/space"
)

// ExprValue is the result of evaluating an expression in a field space.
type ExprValue struct {
	DataType  model.FieldType
	Aggregate bool
	Timeframe string
	Value     model.Fragments
}

// errorFor returns the sentinel value of an expression that failed to
// resolve. The failure has already been logged; an unknown type keeps
// enclosing expressions from reporting it again.
func errorFor(reason string) ExprValue {
	return ExprValue{
		DataType: model.TypeUnknown,
		Value:    model.Mk("'" + reason + "'"),
	}
}

// Expr is an expression node. The set of expressions is closed.
type Expr interface {
	Element
	Eval(ctx *Context, fs space.Space) ExprValue
	expr()
}

// ExprField references a field or a source parameter by name. Dotted paths
// reach through joins.
type ExprField struct {
	node
	Path string
}

func NewExprField(path string) *ExprField { return &ExprField{Path: path} }

func (*ExprField) ElementType() string { return "field" }
func (*ExprField) expr()               {}

func (e *ExprField) Eval(ctx *Context, fs space.Space) ExprValue {
	if f, ok := fs.Lookup(e.Path); ok {
		if !f.IsScalar() {
			ctx.Log(e, "'%s' is not a scalar field", e.Path)
			return errorFor("not a scalar")
		}
		return ExprValue{
			DataType:  f.Type,
			Aggregate: f.Aggregate,
			Timeframe: f.Timeframe,
			Value:     model.Mk(model.FieldFragment{Path: e.Path}),
		}
	}
	if p, ok := fs.Parameter(e.Path); ok {
		dataType := p.Type
		if p.IsCondition {
			dataType = model.TypeBoolean
		}
		return ExprValue{
			DataType: dataType,
			Value:    model.Mk(model.ParameterFragment{Path: e.Path}),
		}
	}
	ctx.undefined(e, fs.Names(), "'%s' is not defined", e.Path)
	return errorFor("undefined")
}

// ExprNumber is a numeric literal, kept in its exact decimal form.
type ExprNumber struct {
	node
	Literal string
}

func NewExprNumber(lit string) *ExprNumber { return &ExprNumber{Literal: lit} }

func (*ExprNumber) ElementType() string { return "numberLiteral" }
func (*ExprNumber) expr()               {}

func (e *ExprNumber) Eval(ctx *Context, _ space.Space) ExprValue {
	d, err := decimal.NewFromString(e.Literal)
	if err != nil {
		ctx.Log(e, "Illegal number '%s'", e.Literal)
		return errorFor("bad number")
	}
	return ExprValue{DataType: model.TypeNumber, Value: model.Mk(d.String())}
}

// ExprString is a string literal.
type ExprString struct {
	node
	Value string
}

func NewExprString(v string) *ExprString { return &ExprString{Value: v} }

func (*ExprString) ElementType() string { return "stringLiteral" }
func (*ExprString) expr()               {}

func (e *ExprString) Eval(*Context, space.Space) ExprValue {
	quoted := "'" + strings.ReplaceAll(e.Value, "'", "''") + "'"
	return ExprValue{DataType: model.TypeString, Value: model.Mk(quoted)}
}

// ExprBool is true or false.
type ExprBool struct {
	node
	Value bool
}

func NewExprBool(v bool) *ExprBool { return &ExprBool{Value: v} }

func (*ExprBool) ElementType() string { return "boolean" }
func (*ExprBool) expr()               {}

func (e *ExprBool) Eval(*Context, space.Space) ExprValue {
	return ExprValue{DataType: model.TypeBoolean, Value: model.Mk(boolText(e.Value))}
}

func boolText(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ExprNull is the untyped null literal.
type ExprNull struct {
	node
}

func NewExprNull() *ExprNull { return &ExprNull{} }

func (*ExprNull) ElementType() string { return "nullLiteral" }
func (*ExprNull) expr()               {}

func (*ExprNull) Eval(*Context, space.Space) ExprValue {
	return ExprValue{DataType: model.TypeNull, Value: model.Mk("NULL")}
}

// Time literal layouts. A literal with a time of day is a timestamp.
var (
	dateLayouts      = []string{"2006-01-02"}
	timestampLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04:05"}
)

// ExprTime is a date or timestamp literal such as @2021-03-01.
type ExprTime struct {
	node
	Literal string
}

func NewExprTime(lit string) *ExprTime { return &ExprTime{Literal: lit} }

func (*ExprTime) ElementType() string { return "timeLiteral" }
func (*ExprTime) expr()               {}

func (e *ExprTime) Eval(ctx *Context, _ space.Space) ExprValue {
	lit := strings.TrimPrefix(e.Literal, "@")
	dataType := model.FieldType("")
	if matchesLayout(lit, dateLayouts) {
		dataType = model.TypeDate
	} else if matchesLayout(lit, timestampLayouts) {
		dataType = model.TypeTimestamp
	}
	if dataType == "" {
		ctx.Log(e, "Illegal time literal '%s'", e.Literal)
		return errorFor("bad time literal")
	}
	return ExprValue{
		DataType: dataType,
		Value: model.Mk(model.DialectFragment{
			Function:  "timeLiteral",
			E:         model.Mk("'" + lit + "'"),
			ValueType: dataType,
		}),
	}
}

func matchesLayout(s string, layouts []string) bool {
	for _, l := range layouts {
		if _, err := time.Parse(l, s); err == nil {
			return true
		}
	}
	return false
}

// Aggregate function names.
const (
	AggCount = "count"
	AggSum   = "sum"
	AggAvg   = "avg"
	AggMin   = "min"
	AggMax   = "max"
)

// ExprAggregate applies an aggregate function. Arg is nil for count().
// Source optionally names the join the aggregate is computed over.
type ExprAggregate struct {
	node
	Function string
	Source   string
	Arg      Expr
}

func NewExprAggregate(fn, source string, arg Expr) *ExprAggregate {
	e := &ExprAggregate{Function: fn, Source: source, Arg: arg}
	e.has(e, "arg", arg)
	return e
}

func (*ExprAggregate) ElementType() string { return "aggregate" }
func (*ExprAggregate) expr()               {}

func (e *ExprAggregate) Eval(ctx *Context, fs space.Space) ExprValue {
	if e.Source != "" {
		f, ok := fs.Lookup(e.Source)
		if !ok {
			ctx.undefined(e, fs.Names(), "'%s' is not defined", e.Source)
			return errorFor("undefined join")
		}
		if f.Type != model.TypeStruct {
			ctx.Log(e, "'%s' is not a join", e.Source)
			return errorFor("not a join")
		}
	}
	result := ExprValue{DataType: model.TypeNumber, Aggregate: true}
	frag := model.AggregateFragment{Function: e.Function, StructPath: e.Source}
	if e.Arg == nil {
		if e.Function != AggCount {
			ctx.Log(e, "%s() requires an argument", e.Function)
			return errorFor("missing argument")
		}
		result.Value = model.Mk(frag)
		return result
	}
	arg := e.Arg.Eval(ctx, fs)
	if arg.DataType == model.TypeUnknown {
		return arg
	}
	if arg.Aggregate {
		ctx.Log(e, "Aggregate function %s() cannot take an aggregate argument", e.Function)
		return errorFor("nested aggregate")
	}
	switch e.Function {
	case AggSum, AggAvg:
		if arg.DataType != model.TypeNumber {
			ctx.Log(e, "%s() requires a number, not '%s'", e.Function, arg.DataType)
			return errorFor("aggregate type")
		}
	case AggMin, AggMax:
		result.DataType = arg.DataType
	}
	frag.E = model.Compress(arg.Value)
	result.Value = model.Mk(frag)
	return result
}

// ExprCompare is a comparison: = != < <= > >=.
type ExprCompare struct {
	node
	Op    string
	Left  Expr
	Right Expr
}

func NewExprCompare(op string, left, right Expr) *ExprCompare {
	e := &ExprCompare{Op: op, Left: left, Right: right}
	e.has(e, "left", left)
	e.has(e, "right", right)
	return e
}

func (*ExprCompare) ElementType() string { return "compare" }
func (*ExprCompare) expr()               {}

func (e *ExprCompare) Eval(ctx *Context, fs space.Space) ExprValue {
	l := e.Left.Eval(ctx, fs)
	r := e.Right.Eval(ctx, fs)
	if l.DataType == model.TypeUnknown || r.DataType == model.TypeUnknown {
		return errorFor("compare")
	}
	if !comparableTypes(l.DataType, r.DataType) {
		ctx.Log(e, "Cannot compare a '%s' to a '%s'", l.DataType, r.DataType)
		return errorFor("compare type")
	}
	return ExprValue{
		DataType:  model.TypeBoolean,
		Aggregate: l.Aggregate || r.Aggregate,
		Value:     model.Mk(l.Value, " "+e.Op+" ", r.Value),
	}
}

func comparableTypes(a, b model.FieldType) bool {
	switch {
	case a == b:
		return true
	case a == model.TypeNull || b == model.TypeNull:
		return true
	case model.IsTimeFieldType(a) && model.IsTimeFieldType(b):
		return true
	}
	return false
}

// ExprLogical is "and" or "or".
type ExprLogical struct {
	node
	Op    string
	Left  Expr
	Right Expr
}

func NewExprLogical(op string, left, right Expr) *ExprLogical {
	e := &ExprLogical{Op: op, Left: left, Right: right}
	e.has(e, "left", left)
	e.has(e, "right", right)
	return e
}

func (*ExprLogical) ElementType() string { return "logical" }
func (*ExprLogical) expr()               {}

func (e *ExprLogical) Eval(ctx *Context, fs space.Space) ExprValue {
	l := e.Left.Eval(ctx, fs)
	r := e.Right.Eval(ctx, fs)
	if l.DataType == model.TypeUnknown || r.DataType == model.TypeUnknown {
		return errorFor("logical")
	}
	for _, v := range []ExprValue{l, r} {
		if v.DataType != model.TypeBoolean {
			ctx.Log(e, "Operator '%s' requires boolean operands, not '%s'", e.Op, v.DataType)
			return errorFor("logical type")
		}
	}
	return ExprValue{
		DataType:  model.TypeBoolean,
		Aggregate: l.Aggregate || r.Aggregate,
		Value:     model.Mk(l.Value, " "+e.Op+" ", r.Value),
	}
}

// ExprNot negates a boolean.
type ExprNot struct {
	node
	Expr Expr
}

func NewExprNot(x Expr) *ExprNot {
	e := &ExprNot{Expr: x}
	e.has(e, "expr", x)
	return e
}

func (*ExprNot) ElementType() string { return "not" }
func (*ExprNot) expr()               {}

func (e *ExprNot) Eval(ctx *Context, fs space.Space) ExprValue {
	v := e.Expr.Eval(ctx, fs)
	if v.DataType == model.TypeUnknown {
		return v
	}
	if v.DataType != model.TypeBoolean {
		ctx.Log(e, "'not' requires a boolean, not '%s'", v.DataType)
		return errorFor("not type")
	}
	return ExprValue{
		DataType:  model.TypeBoolean,
		Aggregate: v.Aggregate,
		Value:     model.Mk("not ", v.Value),
	}
}

// ExprArith is + - * or / on numbers.
type ExprArith struct {
	node
	Op    string
	Left  Expr
	Right Expr
}

func NewExprArith(op string, left, right Expr) *ExprArith {
	e := &ExprArith{Op: op, Left: left, Right: right}
	e.has(e, "left", left)
	e.has(e, "right", right)
	return e
}

func (*ExprArith) ElementType() string { return "arith" }
func (*ExprArith) expr()               {}

func (e *ExprArith) Eval(ctx *Context, fs space.Space) ExprValue {
	l := e.Left.Eval(ctx, fs)
	r := e.Right.Eval(ctx, fs)
	if l.DataType == model.TypeUnknown || r.DataType == model.TypeUnknown {
		return errorFor("arith")
	}
	if l.DataType != model.TypeNumber || r.DataType != model.TypeNumber {
		ctx.Log(e, "Non numeric('%s,%s') value with '%s'", l.DataType, r.DataType, e.Op)
		return errorFor("arith type")
	}
	return ExprValue{
		DataType:  model.TypeNumber,
		Aggregate: l.Aggregate || r.Aggregate,
		Value:     model.Mk("(", l.Value, e.Op, r.Value, ")"),
	}
}

// ExprMinus is unary minus.
type ExprMinus struct {
	node
	Expr Expr
}

func NewExprMinus(x Expr) *ExprMinus {
	e := &ExprMinus{Expr: x}
	e.has(e, "expr", x)
	return e
}

func (*ExprMinus) ElementType() string { return "unaryMinus" }
func (*ExprMinus) expr()               {}

func (e *ExprMinus) Eval(ctx *Context, fs space.Space) ExprValue {
	v := e.Expr.Eval(ctx, fs)
	if v.DataType == model.TypeUnknown {
		return v
	}
	if v.DataType != model.TypeNumber {
		ctx.Log(e, "'-' requires a number, not '%s'", v.DataType)
		return errorFor("minus type")
	}
	v.Value = model.Mk("-", v.Value)
	return v
}

// Truncation units accepted by ExprGranularTime.
var TimeUnits = []string{"second", "minute", "hour", "day", "week", "month", "quarter", "year"}

// ExprGranularTime applies a granularity to a date or timestamp,
// optionally truncating the value to it (expr.month).
type ExprGranularTime struct {
	node
	Units    string
	Truncate bool
	Expr     Expr
}

func NewExprGranularTime(x Expr, units string, truncate bool) *ExprGranularTime {
	e := &ExprGranularTime{Units: units, Truncate: truncate, Expr: x}
	e.has(e, "expr", x)
	return e
}

func (*ExprGranularTime) ElementType() string { return "granularTime" }
func (*ExprGranularTime) expr()               {}

func (e *ExprGranularTime) Eval(ctx *Context, fs space.Space) ExprValue {
	v := e.Expr.Eval(ctx, fs)
	if v.DataType == model.TypeUnknown {
		return v
	}
	if !model.IsTimeFieldType(v.DataType) {
		ctx.Log(e, "Cannot do time truncation on type '%s'", v.DataType)
		return errorFor("granularity typecheck")
	}
	out := v
	out.Timeframe = e.Units
	if e.Truncate {
		out.Value = model.Mk(model.DialectFragment{
			Function:  "trunc",
			E:         model.Compress(v.Value),
			ValueType: v.DataType,
			Units:     e.Units,
		})
	}
	return out
}
