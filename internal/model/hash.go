package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainModel  = "mtrans/model/v1"
	DomainStruct = "mtrans/struct/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModelHash computes a content-addressed ID for a completed model.
// Two models with the same exports, schemas and queries hash identically.
func ModelHash(m *ModelDef) (string, error) {
	canonical, err := MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("ModelHash: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

// StructHash computes a content-addressed ID for a schema.
func StructHash(s *StructDef) (string, error) {
	canonical, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("StructHash: %w", err)
	}
	return hashWithDomain(DomainStruct, canonical), nil
}
