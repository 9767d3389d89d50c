package model

// FieldType is the data type of a field or expression.
type FieldType string

// Atomic field types. These are the only types a parameter may carry.
const (
	TypeString    FieldType = "string"
	TypeNumber    FieldType = "number"
	TypeBoolean   FieldType = "boolean"
	TypeDate      FieldType = "date"
	TypeTimestamp FieldType = "timestamp"
)

// Non-atomic field types.
const (
	TypeStruct  FieldType = "struct"  // joined or nested schema
	TypeTurtle  FieldType = "turtle"  // named sub-query stored on a schema
	TypeNull    FieldType = "null"    // untyped null literal
	TypeUnknown FieldType = "unknown" // result of an expression that failed to resolve
)

// atomicTypes defines the allowed atomic field types.
var atomicTypes = map[FieldType]bool{
	TypeString:    true,
	TypeNumber:    true,
	TypeBoolean:   true,
	TypeDate:      true,
	TypeTimestamp: true,
}

// IsAtomicFieldType reports whether t names one of the atomic field types.
func IsAtomicFieldType(t FieldType) bool {
	return atomicTypes[t]
}

// IsTimeFieldType reports whether t is date or timestamp.
func IsTimeFieldType(t FieldType) bool {
	return t == TypeDate || t == TypeTimestamp
}

// Source kinds for StructSource.Type.
const (
	SourceTable   = "table"
	SourceQuery   = "query"
	SourceLiteral = "literal"
)

// Relationship kinds for StructRelationship.Type.
const (
	RelationshipBaseTable  = "basetable"
	RelationshipForeignKey = "foreignKey"
)

// StructSource records where a schema's rows come from.
type StructSource struct {
	Type  string `json:"type"`            // "table", "query", or "literal"
	Query *Query `json:"query,omitempty"` // set when Type is "query"
}

// StructRelationship records how a schema relates to its container.
type StructRelationship struct {
	Type       string `json:"type"`                  // "basetable" or "foreignKey"
	ForeignKey string `json:"foreign_key,omitempty"` // set when Type is "foreignKey"
}

// StructDef is a resolved, typed, ordered schema.
//
// StructDef values stored in a namespace or ModelDef are never mutated.
// Use Clone before making a revision.
type StructDef struct {
	Name               string               `json:"name"`
	As                 string               `json:"as,omitempty"`
	StructSource       StructSource         `json:"struct_source"`
	StructRelationship StructRelationship   `json:"struct_relationship"`
	Fields             []FieldDef           `json:"fields"`
	PrimaryKey         string               `json:"primary_key,omitempty"`
	Parameters         map[string]Parameter `json:"parameters,omitempty"`
	FilterList         []FilterExpression   `json:"filter_list,omitempty"`
}

func (*StructDef) namedObject() {}

// Identifier returns the name the struct is known by (As, else Name).
func (s *StructDef) Identifier() string {
	if s.As != "" {
		return s.As
	}
	return s.Name
}

// Field returns the field whose identifier is name.
func (s *StructDef) Field(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Identifier() == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// FieldNames returns field identifiers in declaration order.
func (s *StructDef) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Identifier()
	}
	return names
}

// FieldDef is one field of a StructDef.
//
// The payload depends on Type:
//   - atomic types: Expression is set for computed fields, empty for columns
//   - TypeStruct: Struct holds the joined schema
//   - TypeTurtle: Pipeline holds the stored stages
type FieldDef struct {
	Name       string     `json:"name"`
	As         string     `json:"as,omitempty"`
	Type       FieldType  `json:"type"`
	Aggregate  bool       `json:"aggregate,omitempty"`
	Expression Fragments  `json:"e,omitempty"`
	Timeframe  string     `json:"timeframe,omitempty"`
	Struct     *StructDef `json:"struct,omitempty"`
	Pipeline   []Segment  `json:"pipeline,omitempty"`
}

// Identifier returns the name the field is referenced by (As, else Name).
func (f FieldDef) Identifier() string {
	if f.As != "" {
		return f.As
	}
	return f.Name
}

// IsScalar reports whether the field holds a single atomic value.
func (f FieldDef) IsScalar() bool {
	return IsAtomicFieldType(f.Type)
}

// Parameter is a named value or condition parameter declared on a source.
//
// A value parameter is bound when Value is non-nil; a condition parameter is
// bound when Condition is non-nil. Constant parameters reject overrides.
type Parameter struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	IsCondition bool      `json:"is_condition,omitempty"`
	Constant    bool      `json:"constant,omitempty"`
	Value       Fragments `json:"value,omitempty"`
	Condition   Fragments `json:"condition,omitempty"`
}

// Bound reports whether the parameter has a value (or condition).
func (p Parameter) Bound() bool {
	if p.IsCondition {
		return p.Condition != nil
	}
	return p.Value != nil
}

// NamedObject is an entry stored in a namespace: a schema or a query.
//
// This is a sealed interface; only *StructDef and *Query implement it.
type NamedObject interface {
	namedObject()
}

// ModelDef is the completed, immutable result of translating a document.
type ModelDef struct {
	Name    string                `json:"name"`
	Exports []string              `json:"exports"`
	Structs map[string]*StructDef `json:"structs"`
	Queries map[string]*Query     `json:"queries,omitempty"`
}

// NewModelDef creates an empty ModelDef.
func NewModelDef(name string) *ModelDef {
	return &ModelDef{
		Name:    name,
		Exports: []string{},
		Structs: make(map[string]*StructDef),
	}
}

// IsExported reports whether name is in the export list.
func (m *ModelDef) IsExported(name string) bool {
	for _, e := range m.Exports {
		if e == name {
			return true
		}
	}
	return false
}

// ExportedStructs returns a copy of every exported schema, keyed by name.
// This is what an importing document sees.
func (m *ModelDef) ExportedStructs() map[string]*StructDef {
	out := make(map[string]*StructDef)
	for _, name := range m.Exports {
		if s, ok := m.Structs[name]; ok {
			out[name] = s.Clone()
		}
	}
	return out
}
