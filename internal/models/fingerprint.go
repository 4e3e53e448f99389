package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// fingerprint is the SHA-256 of the canonical JSON of fields. encoding/json
// writes map keys sorted, so equal field sets always hash identically.
func fingerprint(fields map[string]string) string {
	raw, err := json.Marshal(fields)
	if err != nil {
		// map[string]string always marshals
		panic(err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
