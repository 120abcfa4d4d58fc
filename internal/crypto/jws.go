// jws.go - signing and parsing JWS (JSON Web Signature) compact serializations
//
// Messages are canonicalized (RFC 8785) before signing so that every party signs and
// verifies the same bytes. Signing uses github.com/go-jose/go-jose/v4; verification against
// trust roots is done with lestrrat-go/jwx in the trust package.
package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"
)

// JWSHeader represents the header fields of a JWS token used by the merchant
type JWSHeader struct {
	Algorithm string `json:"alg"` // "EdDSA" or "RS256"
	KeyID     string `json:"kid"`
}

// Signer produces compact JWS signatures with the merchant's private key.
type Signer struct {
	signer jose.Signer
	keyID  string
}

// NewSigner creates a signer for an Ed25519 or RSA private key.
func NewSigner(privateKey any, keyID string) (*Signer, error) {
	if keyID == "" {
		return nil, NewValidationError("keyID is required")
	}

	var alg jose.SignatureAlgorithm
	switch privateKey.(type) {
	case ed25519.PrivateKey:
		alg = jose.EdDSA
	case *rsa.PrivateKey:
		alg = jose.RS256
	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported private key type %T", privateKey))
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: alg, Key: privateKey},
		(&jose.SignerOptions{}).WithHeader("kid", keyID),
	)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to create signer")
	}
	return &Signer{signer: signer, keyID: keyID}, nil
}

// KeyID returns the kid placed in every JWS header.
func (s *Signer) KeyID() string { return s.keyID }

// Sign signs a payload and returns the JWS compact serialization.
func (s *Signer) Sign(payload []byte) (string, error) {
	jws, err := s.signer.Sign(payload)
	if err != nil {
		return "", WrapInternalError(err, "failed to sign payload")
	}

	compact, err := jws.CompactSerialize()
	if err != nil {
		return "", WrapInternalError(err, "failed to serialize JWS")
	}
	return compact, nil
}

// SignJSON marshals v, canonicalizes it and signs the result.
func (s *Signer) SignJSON(v any) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return s.Sign(canonical)
}

// VerifyWithKey verifies a JWS compact serialization against a single public key and returns the payload.
// Used by tooling; the server verifies against trust roots instead.
func VerifyWithKey(jwsString string, publicKey any) ([]byte, error) {
	var alg jose.SignatureAlgorithm
	switch publicKey.(type) {
	case ed25519.PublicKey:
		alg = jose.EdDSA
	case *rsa.PublicKey:
		alg = jose.RS256
	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported public key type %T", publicKey))
	}

	jws, err := jose.ParseSigned(jwsString, []jose.SignatureAlgorithm{alg})
	if err != nil {
		return nil, WrapValidationError(err, "failed to parse JWS")
	}

	payload, err := jws.Verify(publicKey)
	if err != nil {
		return nil, WrapSignatureError(err, "failed to verify JWS")
	}
	return payload, nil
}

// ParseHeader extracts the header from a JWS without verifying it.
// alg and kid are required; other header fields are ignored.
func ParseHeader(jwsString string) (JWSHeader, error) {

	// Base64URL(Header).Base64URL(Payload).Base64URL(Signature)
	parts := strings.Split(jwsString, ".")
	if len(parts) != 3 {
		return JWSHeader{}, NewValidationError("invalid JWS format")
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return JWSHeader{}, WrapValidationError(err, "error decoding the header")
	}

	var header JWSHeader
	if err := json.NewDecoder(bytes.NewReader(headerBytes)).Decode(&header); err != nil {
		return JWSHeader{}, WrapValidationError(err, "could not unmarshal header")
	}

	if header.Algorithm == "" {
		return JWSHeader{}, NewValidationError("missing required field: alg")
	}
	if header.KeyID == "" {
		return JWSHeader{}, NewValidationError("missing required field: kid")
	}
	return header, nil
}

// UnverifiedPayload decodes the payload of a JWS without checking the signature.
// Only use the result for logging or for routing a message before it is verified.
func UnverifiedPayload(jwsString string) ([]byte, error) {
	parts := strings.Split(jwsString, ".")
	if len(parts) != 3 {
		return nil, NewValidationError("invalid JWS format")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, WrapValidationError(err, "error decoding the payload")
	}
	return payload, nil
}
