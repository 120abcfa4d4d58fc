// this file provides the SHA-256 fingerprint used to detect replayed authorization responses.

package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash calculates the SHA-256 checksum of data and returns it as a hex string.
func Hash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", NewValidationError("data is empty")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
