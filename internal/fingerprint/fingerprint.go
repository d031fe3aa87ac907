// Package fingerprint hashes a view catalog so that a stored plan can detect
// drift between plan time and apply time.
package fingerprint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/pgview/pgview/ir"
)

// Fingerprint represents a fingerprint of a catalog state
type Fingerprint struct {
	Hash string `json:"hash"` // SHA256 of the normalized catalog
}

// Compute generates a fingerprint for the given catalog. The catalog is
// expected to be normalized; JSON marshaling sorts map keys, so the hash is
// stable across runs.
func Compute(catalog *ir.Catalog) (*Fingerprint, error) {
	data, err := json.Marshal(catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to compute catalog hash: %w", err)
	}

	hash := sha256.Sum256(data)
	return &Fingerprint{Hash: fmt.Sprintf("%x", hash)}, nil
}

// String returns a human-readable representation of the fingerprint
func (f *Fingerprint) String() string {
	if len(f.Hash) >= 8 {
		return fmt.Sprintf("Catalog fingerprint: %s", f.Hash[:8])
	}
	return fmt.Sprintf("Catalog fingerprint: %s", f.Hash)
}
