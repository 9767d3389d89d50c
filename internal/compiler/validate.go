package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/mtrans/internal/model"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported value type for validation

	// Schema errors (E101-E104)
	ErrFieldNameEmpty    = "E101" // field has no name
	ErrDuplicateName     = "E102" // duplicate field name in one schema or segment
	ErrPrimaryKeyMissing = "E103" // primary key names no field
	ErrInvalidFieldType  = "E104" // type is not atomic, struct or turtle, or lacks its payload

	// Query errors (E105-E108)
	ErrSegmentFieldEmpty = "E105" // segment field has neither a ref nor a definition
	ErrNegativeLimit     = "E106" // limit below zero
	ErrUnknownExport     = "E107" // export names no struct or query of the model
	ErrEmptyStructRef    = "E108" // query refers to no source
)

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the structure of a translated artifact.
// Returns all errors found (does not fail-fast).
// Supports ModelDef, StructDef and Query.
func Validate(v any) []ValidationError {
	switch x := v.(type) {
	case *model.ModelDef:
		return validateModel(x)
	case model.ModelDef:
		return validateModel(&x)
	case *model.StructDef:
		return validateStruct(x, "struct")
	case model.StructDef:
		return validateStruct(&x, "struct")
	case *model.Query:
		return validateQuery(x, "query")
	case model.Query:
		return validateQuery(&x, "query")
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateModel(m *model.ModelDef) []ValidationError {
	var errs []ValidationError

	// E107: every export names an entry
	for i, name := range m.Exports {
		_, isStruct := m.Structs[name]
		_, isQuery := m.Queries[name]
		if !isStruct && !isQuery {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("exports[%d]", i),
				Message: fmt.Sprintf("export %q names no struct or query", name),
				Code:    ErrUnknownExport,
			})
		}
	}

	for _, name := range model.SortedNames(m.Structs) {
		errs = append(errs, validateStruct(m.Structs[name], "structs."+name)...)
	}
	for _, name := range model.SortedNames(m.Queries) {
		errs = append(errs, validateQuery(m.Queries[name], "queries."+name)...)
	}
	return errs
}

func validateStruct(s *model.StructDef, path string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)

	for i, f := range s.Fields {
		fieldPath := fmt.Sprintf("%s.fields[%d]", path, i)

		// E101: field name required
		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   fieldPath + ".name",
				Message: "field name is required and must be non-empty",
				Code:    ErrFieldNameEmpty,
			})
		} else {
			// E102: duplicate field name
			id := f.Identifier()
			if seen[id] {
				errs = append(errs, ValidationError{
					Field:   fieldPath + ".name",
					Message: fmt.Sprintf("duplicate field name: %q", id),
					Code:    ErrDuplicateName,
				})
			}
			seen[id] = true
		}

		errs = append(errs, validateFieldType(f, fieldPath)...)
	}

	// E103: primary key names a field
	if s.PrimaryKey != "" {
		if _, ok := s.Field(s.PrimaryKey); !ok {
			errs = append(errs, ValidationError{
				Field:   path + ".primary_key",
				Message: fmt.Sprintf("primary key %q is not a field", s.PrimaryKey),
				Code:    ErrPrimaryKeyMissing,
			})
		}
	}

	if s.StructSource.Query != nil {
		errs = append(errs, validateQuery(s.StructSource.Query, path+".struct_source.query")...)
	}
	return errs
}

// validateFieldType validates a field's type and the payload it requires,
// descending into joins and turtles.
func validateFieldType(f model.FieldDef, path string) []ValidationError {
	switch f.Type {
	case model.TypeStruct:
		if f.Struct == nil {
			return []ValidationError{{
				Field:   path + ".struct",
				Message: fmt.Sprintf("struct field %q has no schema", f.Identifier()),
				Code:    ErrInvalidFieldType,
			}}
		}
		return validateStruct(f.Struct, path+".struct")
	case model.TypeTurtle:
		var errs []ValidationError
		for i, seg := range f.Pipeline {
			errs = append(errs, validateSegment(seg, fmt.Sprintf("%s.pipeline[%d]", path, i))...)
		}
		return errs
	}

	// E104: anything else must be atomic
	if !model.IsAtomicFieldType(f.Type) {
		return []ValidationError{{
			Field:   path + ".type",
			Message: fmt.Sprintf("invalid type %q for field %q", f.Type, f.Identifier()),
			Code:    ErrInvalidFieldType,
		}}
	}
	return nil
}

func validateQuery(q *model.Query, path string) []ValidationError {
	var errs []ValidationError

	// E108: the query has a source
	switch {
	case q.StructRef.IsDef():
		errs = append(errs, validateStruct(q.StructRef.Def, path+".struct_ref")...)
	case strings.TrimSpace(q.StructRef.Name) == "":
		errs = append(errs, ValidationError{
			Field:   path + ".struct_ref",
			Message: "query requires a source name or definition",
			Code:    ErrEmptyStructRef,
		})
	}

	for i, seg := range q.Pipeline {
		errs = append(errs, validateSegment(seg, fmt.Sprintf("%s.pipeline[%d]", path, i))...)
	}
	return errs
}

func validateSegment(seg model.Segment, path string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)

	for i, f := range seg.Fields {
		fieldPath := fmt.Sprintf("%s.fields[%d]", path, i)

		// E105: a segment field is a ref or a definition
		if f.Def == nil && strings.TrimSpace(f.Ref) == "" {
			errs = append(errs, ValidationError{
				Field:   fieldPath,
				Message: "segment field requires a reference or a definition",
				Code:    ErrSegmentFieldEmpty,
			})
			continue
		}

		name := f.OutputName()
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   fieldPath,
				Message: fmt.Sprintf("duplicate output name: %q", name),
				Code:    ErrDuplicateName,
			})
		}
		seen[name] = true

		if f.Def != nil {
			errs = append(errs, validateFieldType(*f.Def, fieldPath)...)
		}
	}

	// E106: limit is non-negative
	if seg.Limit != nil && *seg.Limit < 0 {
		errs = append(errs, ValidationError{
			Field:   path + ".limit",
			Message: fmt.Sprintf("limit must be non-negative, got %d", *seg.Limit),
			Code:    ErrNegativeLimit,
		})
	}
	return errs
}
