package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainFragment prefixes fragment content hashes.
const DomainFragment = "rxflow/fragment/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data). The separator keeps
// domain and data boundaries unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content address of f's structure.
func Hash(f Fragment) (string, error) {
	canonical, err := MarshalCanonical(Describe(f))
	if err != nil {
		return "", fmt.Errorf("Hash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFragment, canonical), nil
}
