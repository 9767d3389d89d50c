package loader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mtrans/internal/ast"
)

var compareOps = map[string]bool{"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

var arithOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}

// expr decodes an expression and renders its source text.
//
// A plain string is a field reference, a number or boolean is a literal and
// null is null. Anything else is a one-key mapping naming the operator.
func (d *decoder) expr(n *yaml.Node) (ast.Expr, string) {
	switch n.Kind {
	case yaml.ScalarNode:
		return d.scalarExpr(n)
	case yaml.MappingNode:
	default:
		d.fail(n, "expression must be a scalar or a one-key mapping")
		return nil, ""
	}

	p, ok := d.single(n, "expression")
	if !ok {
		return nil, ""
	}
	op, v := p.key, p.value
	switch {
	case op == "string":
		s, ok := d.str(v, "string")
		if !ok {
			return nil, ""
		}
		return at(ast.NewExprString(s), n), strconv.Quote(s)
	case op == "time":
		s, ok := d.str(v, "time")
		if !ok {
			return nil, ""
		}
		return at(ast.NewExprTime(s), n), "@" + s
	case op == "number":
		s, ok := d.str(v, "number")
		if !ok {
			return nil, ""
		}
		return at(ast.NewExprNumber(s), n), s
	case op == "field":
		s, ok := d.str(v, "field")
		if !ok {
			return nil, ""
		}
		return at(ast.NewExprField(s), n), s
	case op == ast.AggCount:
		return d.countExpr(n, v)
	case op == ast.AggSum || op == ast.AggAvg || op == ast.AggMin || op == ast.AggMax:
		return d.aggregateExpr(n, op, v)
	case compareOps[op]:
		l, r, lt, rt, ok := d.binary(v, op)
		if !ok {
			return nil, ""
		}
		return at(ast.NewExprCompare(op, l, r), n), lt + " " + op + " " + rt
	case arithOps[op]:
		l, r, lt, rt, ok := d.binary(v, op)
		if !ok {
			return nil, ""
		}
		return at(ast.NewExprArith(op, l, r), n), lt + " " + op + " " + rt
	case op == "and" || op == "or":
		return d.logicalExpr(n, op, v)
	case op == "not":
		x, text := d.expr(v)
		if x == nil {
			return nil, ""
		}
		return at(ast.NewExprNot(x), n), "not " + paren(v, text)
	case op == "neg":
		x, text := d.expr(v)
		if x == nil {
			return nil, ""
		}
		return at(ast.NewExprMinus(x), n), "-" + paren(v, text)
	case op == "trunc" || op == "timeframe":
		return d.granularExpr(n, op, v)
	default:
		d.fail(p.keyN, "unknown expression operator %q", op)
		return nil, ""
	}
}

func (d *decoder) scalarExpr(n *yaml.Node) (ast.Expr, string) {
	switch n.ShortTag() {
	case "!!str":
		return at(ast.NewExprField(n.Value), n), n.Value
	case "!!int", "!!float":
		return at(ast.NewExprNumber(n.Value), n), n.Value
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			d.fail(n, "malformed boolean %q", n.Value)
			return nil, ""
		}
		return at(ast.NewExprBool(b), n), strconv.FormatBool(b)
	case "!!null":
		return at(ast.NewExprNull(), n), "null"
	default:
		d.fail(n, "unsupported scalar %q", n.Value)
		return nil, ""
	}
}

// countExpr accepts "count: null" or "count: join" for a count over a join.
func (d *decoder) countExpr(n, v *yaml.Node) (ast.Expr, string) {
	if v.ShortTag() == "!!null" {
		return at(ast.NewExprAggregate(ast.AggCount, "", nil), n), "count()"
	}
	if src := lookup(v, "source"); src != nil {
		v = src
	}
	source, ok := d.str(v, "count source")
	if !ok {
		return nil, ""
	}
	return at(ast.NewExprAggregate(ast.AggCount, source, nil), n), source + ".count()"
}

// aggregateExpr accepts "fn: expr" or "fn: {of: expr, source: join}".
func (d *decoder) aggregateExpr(n *yaml.Node, fn string, v *yaml.Node) (ast.Expr, string) {
	source := ""
	argN := v
	if of := lookup(v, "of"); of != nil {
		argN = of
		for _, p := range d.pairs(v) {
			switch p.key {
			case "of":
			case "source":
				source, _ = d.str(p.value, "aggregate source")
			default:
				d.fail(p.keyN, "unknown aggregate key %q", p.key)
			}
		}
	}
	arg, text := d.expr(argN)
	if arg == nil {
		return nil, ""
	}
	call := fn + "(" + text + ")"
	if source != "" {
		call = source + "." + call
	}
	return at(ast.NewExprAggregate(fn, source, arg), n), call
}

func (d *decoder) binary(v *yaml.Node, op string) (l, r ast.Expr, lt, rt string, ok bool) {
	if v.Kind != yaml.SequenceNode || len(v.Content) != 2 {
		d.fail(v, "operator '%s' takes a list of two operands", op)
		return nil, nil, "", "", false
	}
	l, lt = d.expr(v.Content[0])
	r, rt = d.expr(v.Content[1])
	if l == nil || r == nil {
		return nil, nil, "", "", false
	}
	return l, r, paren(v.Content[0], lt), paren(v.Content[1], rt), true
}

// logicalExpr folds two or more operands from the left.
func (d *decoder) logicalExpr(n *yaml.Node, op string, v *yaml.Node) (ast.Expr, string) {
	if v.Kind != yaml.SequenceNode || len(v.Content) < 2 {
		d.fail(v, "operator '%s' takes a list of at least two operands", op)
		return nil, ""
	}
	acc, text := d.expr(v.Content[0])
	text = paren(v.Content[0], text)
	for _, item := range v.Content[1:] {
		x, t := d.expr(item)
		if acc == nil || x == nil {
			acc = nil
			continue
		}
		acc = at(ast.NewExprLogical(op, acc, x), n)
		text += " " + op + " " + paren(item, t)
	}
	if acc == nil {
		return nil, ""
	}
	return acc, text
}

// granularExpr accepts "trunc: [x, unit]", truncating x, and
// "timeframe: [x, unit]", which only tags x with the unit.
func (d *decoder) granularExpr(n *yaml.Node, op string, v *yaml.Node) (ast.Expr, string) {
	if v.Kind != yaml.SequenceNode || len(v.Content) != 2 {
		d.fail(v, "'%s' takes an expression and a unit", op)
		return nil, ""
	}
	unit, ok := d.str(v.Content[1], "time unit")
	if !ok {
		return nil, ""
	}
	if !slices.Contains(ast.TimeUnits, unit) {
		d.fail(v.Content[1], "unknown time unit %q, expected one of %s", unit, strings.Join(ast.TimeUnits, ", "))
		return nil, ""
	}
	x, text := d.expr(v.Content[0])
	if x == nil {
		return nil, ""
	}
	if op == "trunc" {
		return at(ast.NewExprGranularTime(x, unit, true), n), paren(v.Content[0], text) + "." + unit
	}
	return at(ast.NewExprGranularTime(x, unit, false), n), fmt.Sprintf("%s::%s", paren(v.Content[0], text), unit)
}

// paren wraps the text of a compound operand.
func paren(n *yaml.Node, text string) string {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return text
	}
	op := n.Content[0].Value
	if compareOps[op] || arithOps[op] || op == "and" || op == "or" {
		return "(" + text + ")"
	}
	return text
}
