package ast

import (
	"github.com/roach88/mtrans/internal/model"
)

// typeMismatchValue replaces a constant whose type is not atomic.
const typeMismatchValue = "XXX-type-mismatch-error-XXX"

// ParameterDecl declares a parameter on a defined source.
type ParameterDecl interface {
	Element
	Parameter(ctx *Context) model.Parameter
	parameterDecl()
}

// HasParameter declares a value or condition parameter, optionally typed
// and optionally with a default.
type HasParameter struct {
	node
	Name        string
	IsCondition bool
	Type        string
	Default     *Constant
}

// NewHasParameter creates a parameter declaration. A type that is not an
// atomic type name is dropped, and the parameter defaults to string.
func NewHasParameter(name string, isCondition bool, typ string, def *Constant) *HasParameter {
	p := &HasParameter{Name: name, IsCondition: isCondition, Default: def}
	if model.IsAtomicFieldType(model.FieldType(typ)) {
		p.Type = typ
	}
	p.has(p, "default", def)
	return p
}

func (*HasParameter) ElementType() string { return "hasParameter" }
func (*HasParameter) parameterDecl()      {}

// Parameter builds the declared parameter. With no default the parameter
// is unbound and must be given a value where the source is referenced.
func (p *HasParameter) Parameter(ctx *Context) model.Parameter {
	typ := model.FieldType(p.Type)
	if typ == "" {
		typ = model.TypeString
	}
	out := model.Parameter{Name: p.Name, Type: typ, IsCondition: p.IsCondition}
	if p.Default == nil {
		return out
	}
	if p.IsCondition {
		out.Condition = p.Default.Condition(ctx, typ)
		return out
	}
	v := p.Default.Value(ctx)
	value, ok := coerceParameter(v, typ)
	if !ok {
		ctx.Log(p.Default, "Type mismatch for parameter '%s', expected '%s'", p.Name, typ)
		return out
	}
	out.Value = value
	return out
}

// ConstantParameter declares a parameter whose value is fixed at
// declaration and cannot be overridden.
type ConstantParameter struct {
	node
	Name  string
	Value *Constant
}

func NewConstantParameter(name string, value *Constant) *ConstantParameter {
	p := &ConstantParameter{Name: name, Value: value}
	p.has(p, "value", value)
	return p
}

func (*ConstantParameter) ElementType() string { return "constantParameter" }
func (*ConstantParameter) parameterDecl()      {}

func (p *ConstantParameter) Parameter(ctx *Context) model.Parameter {
	v := p.Value.Value(ctx)
	if !model.IsAtomicFieldType(v.DataType) {
		ctx.Log(p, "Unexpected expression type '%s'", v.DataType)
		return model.Parameter{
			Name:     p.Name,
			Type:     model.TypeString,
			Constant: true,
			Value:    model.Mk(typeMismatchValue),
		}
	}
	return model.Parameter{
		Name:     p.Name,
		Type:     v.DataType,
		Constant: true,
		Value:    v.Value,
	}
}

// coerceParameter checks a constant against a parameter type. A date is
// promoted to a timestamp; any other mismatch fails.
func coerceParameter(v ExprValue, typ model.FieldType) (model.Fragments, bool) {
	switch {
	case v.DataType == typ:
		return v.Value, true
	case v.DataType == model.TypeUnknown:
		// already reported
		return nil, true
	case typ == model.TypeTimestamp && v.DataType == model.TypeDate:
		return model.Mk(model.DialectFragment{
			Function:  "cast",
			E:         v.Value,
			ValueType: model.TypeTimestamp,
		}), true
	}
	return nil, false
}
