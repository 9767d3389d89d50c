package model

// Sentinels returned after an error has been logged, so resolution can
// continue with a well-formed but semantically empty value.

// ErrorStructName is the name carried by the sentinel schema.
const ErrorStructName = "undefined_error_structdef"

// ErrorQueryRef is the struct reference carried by the sentinel query.
const ErrorQueryRef = "undefined_query"

// ErrorStructDef returns a fresh empty schema used in place of a schema that
// could not be resolved.
func ErrorStructDef() *StructDef {
	return &StructDef{
		Name:               ErrorStructName,
		StructSource:       StructSource{Type: SourceTable},
		StructRelationship: StructRelationship{Type: RelationshipBaseTable},
		Fields:             []FieldDef{},
	}
}

// IsErrorStructDef reports whether s is the sentinel schema.
func IsErrorStructDef(s *StructDef) bool {
	return s != nil && s.Name == ErrorStructName
}

// ErrorQuery returns a fresh empty query used in place of a query that could
// not be resolved.
func ErrorQuery() *Query {
	return &Query{
		StructRef: RefByName(ErrorQueryRef),
		Pipeline:  []Segment{},
	}
}
