package tree

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainTree is the domain prefix for tree fingerprints.
// The version suffix allows the algorithm to change later.
const DomainTree = "querysteps/tree/v1"

// Fingerprint returns a content-addressed identity for a snapshot:
// SHA256(domain + 0x00 + canonical JSON). Structurally equal snapshots have
// equal fingerprints.
func Fingerprint(m NodeModel) (string, error) {
	data, err := m.MarshalCanonical()
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainTree))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the snapshot is known to be valid.
func MustFingerprint(m NodeModel) string {
	fp, err := Fingerprint(m)
	if err != nil {
		panic(err)
	}
	return fp
}
