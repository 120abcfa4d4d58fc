// algorithm.go defines the signing algorithms supported by the merchant keys
package crypto

// Algorithm specifies which signing algorithm to use for JWS signatures
type Algorithm string

const (
	// AlgorithmEd25519: EdDSA with Ed25519 curve (default)
	AlgorithmEd25519 Algorithm = "EdDSA"

	// AlgorithmRSA: RS256 (RSA with SHA-256)
	AlgorithmRSA Algorithm = "RS256"
)

// ParseAlgorithm maps a keygen flag value to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "ed25519", "EdDSA", "":
		return AlgorithmEd25519, nil
	case "rsa", "RS256":
		return AlgorithmRSA, nil
	default:
		return "", NewValidationError("unsupported algorithm " + s + " (use ed25519 or rsa)")
	}
}
