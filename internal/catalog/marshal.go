package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/mtrans/internal/model"
)

// marshalStruct converts a schema to canonical JSON TEXT for storage.
func marshalStruct(def *model.StructDef) (string, error) {
	data, err := model.MarshalCanonical(def)
	if err != nil {
		return "", fmt.Errorf("marshal struct: %w", err)
	}
	return string(data), nil
}

func unmarshalStruct(data string) (*model.StructDef, error) {
	var def model.StructDef
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return nil, fmt.Errorf("unmarshal struct: %w", err)
	}
	if def.Fields == nil {
		def.Fields = []model.FieldDef{}
	}
	return &def, nil
}

// marshalModel converts a model to canonical JSON TEXT and its content hash.
func marshalModel(m *model.ModelDef) (string, string, error) {
	data, err := model.MarshalCanonical(m)
	if err != nil {
		return "", "", fmt.Errorf("marshal model: %w", err)
	}
	hash, err := model.ModelHash(m)
	if err != nil {
		return "", "", err
	}
	return string(data), hash, nil
}

func unmarshalModel(data string) (*model.ModelDef, error) {
	m := model.NewModelDef("")
	if err := json.Unmarshal([]byte(data), m); err != nil {
		return nil, fmt.Errorf("unmarshal model: %w", err)
	}
	if m.Exports == nil {
		m.Exports = []string{}
	}
	if m.Structs == nil {
		m.Structs = make(map[string]*model.StructDef)
	}
	return m, nil
}
