package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainIR     = "promptc/ir/v1"
	DomainPrompt = "promptc/prompt/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data). The null byte prevents domain/data boundary
// ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest computes the content address of r over its canonical JSON.
// Two schemas that lower to the same IR share a digest regardless of
// declaration order or source layout, since spans never serialize.
func Digest(r *IntermediateRepr) (string, error) {
	canonical, err := MarshalCanonical(r)
	if err != nil {
		return "", fmt.Errorf("Digest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainIR, canonical), nil
}

// PromptDigest identifies one function config's prompt template, so
// consumers can cache rendered prompts per (function, config, template).
func PromptDigest(function string, cfg FunctionConfig) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"function": function,
		"config":   cfg.Name,
		"client":   cfg.Client.String(),
		"template": cfg.PromptTemplate,
	})
	if err != nil {
		return "", fmt.Errorf("PromptDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPrompt, canonical), nil
}

// MustDigest is like Digest but panics on error.
// Use only in tests or when the IR is known to serialize.
func MustDigest(r *IntermediateRepr) string {
	d, err := Digest(r)
	if err != nil {
		panic(err)
	}
	return d
}
