package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainRow   = "qoracle/row/v1"
	DomainQuery = "qoracle/query/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical encoding of v under domain.
// Equal values produce equal fingerprints regardless of map iteration order.
func Fingerprint(domain string, v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// RowFingerprint fingerprints a projected row of column values.
func RowFingerprint(row map[string]any) (string, error) {
	obj := make(IRObject, len(row))
	for k, v := range row {
		irv, err := FromGo(v)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", k, err)
		}
		obj[k] = irv
	}
	return Fingerprint(DomainRow, obj)
}
