// signed protocol messages are canonicalized per RFC 8785 (JCS) before signing, so the
// signature covers the same bytes whichever JSON encoder the other party uses.

package crypto

import (
	"encoding/json"

	"github.com/gowebpki/jcs"
)

// CanonicalizeJSON converts JSON to canonical form per RFC 8785.
// Invalid JSON is rejected with a validation error.
func CanonicalizeJSON(jsonData []byte) ([]byte, error) {
	canonical, err := jcs.Transform(jsonData)
	if err != nil {
		return nil, WrapValidationError(err, "failed to canonicalize JSON")
	}
	return canonical, nil
}

// CanonicalJSON marshals v and returns its canonical form.
func CanonicalJSON(v any) ([]byte, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, WrapValidationError(err, "failed to marshal message")
	}
	return CanonicalizeJSON(jsonBytes)
}
