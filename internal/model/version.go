package model

// Version constants for the model schema and translator.
const (
	// ModelVersion is the serialized model schema version.
	ModelVersion = "1"

	// TranslatorVersion is the translator version.
	TranslatorVersion = "0.1.0"
)
