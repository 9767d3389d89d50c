package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/mtrans/internal/model"
)

// CompileTable compiles one table value into a schema. The table is named
// by the last selector of v's path.
func CompileTable(v cue.Value) (*model.StructDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &model.StructDef{
		StructSource:       model.StructSource{Type: model.SourceTable},
		StructRelationship: model.StructRelationship{Type: model.RelationshipBaseTable},
		Fields:             []model.FieldDef{},
	}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		def.Name = sels[len(sels)-1].Unquoted()
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Field: "fields", Message: "fields are required", Pos: v.Pos()}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		t, err := fieldType(iter.Value())
		if err != nil {
			return nil, err
		}
		def.Fields = append(def.Fields, model.FieldDef{Name: iter.Selector().Unquoted(), Type: t})
	}
	if len(def.Fields) == 0 {
		return nil, &CompileError{Field: "fields", Message: "at least one field is required", Pos: fieldsVal.Pos()}
	}

	if pkVal := v.LookupPath(cue.ParsePath("primary_key")); pkVal.Exists() {
		pk, err := pkVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if _, ok := def.Field(pk); !ok {
			return nil, &CompileError{
				Field:   "primary_key",
				Message: fmt.Sprintf("primary key %q is not a field", pk),
				Pos:     pkVal.Pos(),
			}
		}
		def.PrimaryKey = pk
	}
	return def, nil
}

// fieldType accepts an atomic type name as a concrete string, or a bare
// CUE kind.
func fieldType(v cue.Value) (model.FieldType, error) {
	if s, err := v.String(); err == nil {
		t := model.FieldType(s)
		if !model.IsAtomicFieldType(t) {
			return "", &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("unsupported field type %q", s),
				Pos:     v.Pos(),
			}
		}
		return t, nil
	}
	switch v.IncompleteKind() {
	case cue.StringKind:
		return model.TypeString, nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		return model.TypeNumber, nil
	case cue.BoolKind:
		return model.TypeBoolean, nil
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileTables compiles every table under the top-level "table" field of
// v, collecting all errors.
func CompileTables(v cue.Value) ([]*model.StructDef, []error) {
	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: "no tables found"}}
	}
	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating tables: %v", err)}}
	}
	var defs []*model.StructDef
	var errs []error
	for iter.Next() {
		def, err := CompileTable(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "table."+iter.Selector().Unquoted()))
			continue
		}
		defs = append(defs, def)
	}
	return defs, errs
}

// CompileSchemaString compiles CUE source text holding table declarations.
// filename is used in error positions.
func CompileSchemaString(src, filename string) ([]*model.StructDef, []error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, []error{convertCompileError(formatCUEError(err), filename)}
	}
	return CompileTables(v)
}

// LoadSchemas loads the CUE package in dir and compiles its tables.
// Every table that compiles is returned alongside the errors of the rest.
func LoadSchemas(dir string) ([]*model.StructDef, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}
	return CompileTables(value)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    fieldCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
