package model

import (
	"encoding/json"
	"fmt"
)

// SegmentType is the kind of a pipeline stage.
type SegmentType string

const (
	// SegmentGrouping is a grouping/aggregate stage (group_by, aggregate).
	SegmentGrouping SegmentType = "grouping"
	// SegmentProjection is a projection stage (project).
	SegmentProjection SegmentType = "projection"
)

// StructRef is a reference to a schema: either a namespace name or an inline
// StructDef. Exactly one of Name and Def is set.
type StructRef struct {
	Name string
	Def  *StructDef
}

// RefByName creates a StructRef naming a namespace entry.
func RefByName(name string) StructRef {
	return StructRef{Name: name}
}

// RefToDef creates a StructRef carrying an inline StructDef.
func RefToDef(def *StructDef) StructRef {
	return StructRef{Def: def}
}

// IsDef reports whether the reference carries an inline StructDef.
func (r StructRef) IsDef() bool {
	return r.Def != nil
}

// MarshalJSON encodes a name reference as a JSON string and an inline
// definition as an object.
func (r StructRef) MarshalJSON() ([]byte, error) {
	if r.Def != nil {
		return json.Marshal(r.Def)
	}
	return json.Marshal(r.Name)
}

// UnmarshalJSON implements json.Unmarshaler for StructRef.
func (r *StructRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*r = StructRef{Name: name}
		return nil
	}
	var def StructDef
	if err := json.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("struct ref: %w", err)
	}
	*r = StructRef{Def: &def}
	return nil
}

// Query is a source reference plus an ordered pipeline of stages.
type Query struct {
	StructRef StructRef `json:"struct_ref"`
	Pipeline  []Segment `json:"pipeline"`
}

func (*Query) namedObject() {}

// Segment is one resolved pipeline stage.
type Segment struct {
	Type       SegmentType        `json:"type"`
	Fields     []SegmentField     `json:"fields"`
	FilterList []FilterExpression `json:"filter_list,omitempty"`
	OrderBy    []OrderBy          `json:"order_by,omitempty"`
	Limit      *int               `json:"limit,omitempty"`
	By         *By                `json:"by,omitempty"`
}

// FieldNames returns the output names of the segment in order.
func (s Segment) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.OutputName()
	}
	return names
}

// SegmentField is one output item of a stage: either a reference to an input
// field by (possibly dotted) name, or a computed field definition.
type SegmentField struct {
	Ref string
	Def *FieldDef
}

// FieldRef creates a SegmentField referencing an input field.
func FieldRef(path string) SegmentField {
	return SegmentField{Ref: path}
}

// FieldDecl creates a SegmentField carrying a computed definition.
func FieldDecl(def FieldDef) SegmentField {
	return SegmentField{Def: &def}
}

// OutputName returns the name the item has in the stage's output schema.
// Dotted references keep only their last component.
func (f SegmentField) OutputName() string {
	if f.Def != nil {
		return f.Def.Identifier()
	}
	return lastPathElement(f.Ref)
}

// IsAggregate reports whether the item is a computed aggregate.
func (f SegmentField) IsAggregate() bool {
	return f.Def != nil && f.Def.Aggregate
}

// MarshalJSON encodes a reference as a JSON string and a definition as an object.
func (f SegmentField) MarshalJSON() ([]byte, error) {
	if f.Def != nil {
		return json.Marshal(f.Def)
	}
	return json.Marshal(f.Ref)
}

// UnmarshalJSON implements json.Unmarshaler for SegmentField.
func (f *SegmentField) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var ref string
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		*f = SegmentField{Ref: ref}
		return nil
	}
	var def FieldDef
	if err := json.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("segment field: %w", err)
	}
	*f = SegmentField{Def: &def}
	return nil
}

// Sort directions.
const (
	Ascending  = "asc"
	Descending = "desc"
)

// OrderBy is one ordering key: an output field name or a 1-based position.
type OrderBy struct {
	Field    string `json:"field,omitempty"`
	Position int    `json:"position,omitempty"`
	Dir      string `json:"dir,omitempty"`
}

// By kinds.
const (
	ByName       = "name"
	ByExpression = "expression"
)

// By is the ordering key of a "top N by" statement.
type By struct {
	By   string    `json:"by"`             // "name" or "expression"
	Name string    `json:"name,omitempty"` // set when By is "name"
	E    Fragments `json:"e,omitempty"`    // set when By is "expression"
}

// FilterExpression is one resolved filter condition.
type FilterExpression struct {
	Source     string    `json:"source"`
	Expression Fragments `json:"expression"`
	Aggregate  bool      `json:"aggregate,omitempty"`
}

// IntPtr returns a pointer to n. Used for Segment.Limit.
func IntPtr(n int) *int {
	return &n
}
