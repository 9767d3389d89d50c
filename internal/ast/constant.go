package ast

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/space"
)

// constantSpace is the empty space constant expressions are evaluated in:
// constants may not reference fields.
var constantSpace = space.NewStatic(&model.StructDef{
	Name:               "constant",
	StructSource:       model.StructSource{Type: model.SourceLiteral},
	StructRelationship: model.StructRelationship{Type: model.RelationshipBaseTable},
	Fields:             []model.FieldDef{},
})

// Constant is an expression that must be computable without a schema:
// parameter defaults, parameter overrides and constant declarations.
// Number and boolean arithmetic is folded to a single literal.
type Constant struct {
	node
	Expr Expr

	folded *ExprValue
}

func NewConstant(x Expr) *Constant {
	c := &Constant{Expr: x}
	c.has(c, "expr", x)
	return c
}

func (*Constant) ElementType() string { return "constantSubExpression" }

// Value evaluates and folds the expression. The result is computed once;
// later calls return it without logging again.
func (c *Constant) Value(ctx *Context) ExprValue {
	if c.folded != nil {
		return *c.folded
	}
	v := c.Expr.Eval(ctx, constantSpace)
	if v.DataType != model.TypeUnknown {
		if d, ok := foldNumber(c.Expr); ok {
			v.Value = model.Mk(d.String())
		} else if b, ok := foldBool(c.Expr); ok {
			v.Value = model.Mk(boolText(b))
		}
		v.Value = model.Compress(v.Value)
	}
	c.folded = &v
	return v
}

// Condition returns the expression as the condition of a parameter of
// type t.
func (c *Constant) Condition(ctx *Context, t model.FieldType) model.Fragments {
	v := c.Value(ctx)
	if v.DataType != model.TypeUnknown && v.DataType != model.TypeBoolean &&
		v.DataType != t && !(t == model.TypeTimestamp && v.DataType == model.TypeDate) {
		ctx.Log(c, "Condition of type '%s' cannot apply to '%s'", v.DataType, t)
	}
	return v.Value
}

// foldNumber computes the value of a numeric literal tree.
// Division by zero is left unfolded.
func foldNumber(e Expr) (decimal.Decimal, bool) {
	switch x := e.(type) {
	case *ExprNumber:
		d, err := decimal.NewFromString(x.Literal)
		return d, err == nil
	case *ExprMinus:
		d, ok := foldNumber(x.Expr)
		return d.Neg(), ok
	case *ExprArith:
		l, ok := foldNumber(x.Left)
		if !ok {
			return decimal.Decimal{}, false
		}
		r, ok := foldNumber(x.Right)
		if !ok {
			return decimal.Decimal{}, false
		}
		switch x.Op {
		case "+":
			return l.Add(r), true
		case "-":
			return l.Sub(r), true
		case "*":
			return l.Mul(r), true
		case "/":
			if r.IsZero() {
				return decimal.Decimal{}, false
			}
			return l.Div(r), true
		}
	}
	return decimal.Decimal{}, false
}

// foldBool computes the value of a boolean literal tree, including
// comparisons between foldable numbers.
func foldBool(e Expr) (bool, bool) {
	switch x := e.(type) {
	case *ExprBool:
		return x.Value, true
	case *ExprNot:
		b, ok := foldBool(x.Expr)
		return !b, ok
	case *ExprLogical:
		l, ok := foldBool(x.Left)
		if !ok {
			return false, false
		}
		r, ok := foldBool(x.Right)
		if !ok {
			return false, false
		}
		if x.Op == "and" {
			return l && r, true
		}
		return l || r, true
	case *ExprCompare:
		l, ok := foldNumber(x.Left)
		if !ok {
			return false, false
		}
		r, ok := foldNumber(x.Right)
		if !ok {
			return false, false
		}
		cmp := l.Cmp(r)
		switch x.Op {
		case "=":
			return cmp == 0, true
		case "!=":
			return cmp != 0, true
		case "<":
			return cmp < 0, true
		case "<=":
			return cmp <= 0, true
		case ">":
			return cmp > 0, true
		case ">=":
			return cmp >= 0, true
		}
	}
	return false, false
}
