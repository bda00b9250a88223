package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. Version suffix enables
// future algorithm migration.
const (
	DomainSpec  = "silica/spec/v1"
	DomainModel = "silica/model/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SpecKey computes the content-addressed specialization key for a
// (definition, concrete-argument tuple) pair. The key is stable across runs
// and processes given the same inputs; the monomorphizer's cache and the
// persistent compile cache both index by it.
func SpecKey(def string, args []int64) (Key, error) {
	obj := map[string]any{
		"def":  def,
		"args": args,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SpecKey: failed to marshal: %w", err)
	}

	return Key(hashWithDomain(DomainSpec, canonical)), nil
}

// ModelKey computes the content-addressed key for a solved existential model
// in a specific concrete-argument context.
func ModelKey(component string, args []int64) (string, error) {
	obj := map[string]any{
		"component": component,
		"args":      args,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ModelKey: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainModel, canonical), nil
}

// MustSpecKey is like SpecKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSpecKey(def string, args []int64) Key {
	key, err := SpecKey(def, args)
	if err != nil {
		panic(err)
	}
	return key
}
