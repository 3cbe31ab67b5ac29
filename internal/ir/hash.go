package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainTrace prefixes trace digests. The version suffix allows the
// algorithm to change without colliding with old digests.
const DomainTrace = "crmbdd/trace/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes the canonical form of v under the given domain.
func Digest(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}
