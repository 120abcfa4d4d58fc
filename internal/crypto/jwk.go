// JWK (JSON Web Key) helpers
//
// these functions convert raw RSA/Ed25519 keys to JWK format. They are used by keygen to
// create the merchant key files and by the server to publish /.well-known/jwks.json.
// Reference: https://datatracker.ietf.org/doc/html/rfc7517

package crypto

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// algorithmFor returns the JWS algorithm used with a raw key (public or private).
func algorithmFor(raw any) (jwa.SignatureAlgorithm, error) {
	switch raw.(type) {
	case ed25519.PrivateKey, ed25519.PublicKey:
		return jwa.EdDSA(), nil
	case *rsa.PrivateKey, *rsa.PublicKey:
		return jwa.RS256(), nil
	default:
		return jwa.SignatureAlgorithm{}, NewValidationError(fmt.Sprintf("unsupported key type %T", raw))
	}
}

// KeyToJWK converts an Ed25519 or RSA key (private or public) to a signing JWK with kid, alg and use set.
func KeyToJWK(raw any, keyID string) (jwk.Key, error) {
	if raw == nil {
		return nil, NewValidationError("key is nil")
	}
	if keyID == "" {
		return nil, NewValidationError("keyID is required")
	}

	alg, err := algorithmFor(raw)
	if err != nil {
		return nil, err
	}

	key, err := jwk.Import(raw)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to create JWK")
	}
	if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, WrapKeyManagementError(err, "failed to set key ID")
	}
	if err := key.Set(jwk.AlgorithmKey, alg); err != nil {
		return nil, WrapKeyManagementError(err, "failed to set algorithm")
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, WrapKeyManagementError(err, "failed to set key usage")
	}
	return key, nil
}

// PublicKeyOf returns the public half of a private signing key.
func PublicKeyOf(privateKey any) (any, error) {
	switch k := privateKey.(type) {
	case ed25519.PrivateKey:
		return k.Public(), nil
	case *rsa.PrivateKey:
		return &k.PublicKey, nil
	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported private key type %T", privateKey))
	}
}

// PublicJWKSet builds the JWK set published by the merchant for the given private key.
func PublicJWKSet(privateKey any, keyID string) (jwk.Set, error) {
	publicKey, err := PublicKeyOf(privateKey)
	if err != nil {
		return nil, err
	}
	key, err := KeyToJWK(publicKey, keyID)
	if err != nil {
		return nil, err
	}
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, WrapKeyManagementError(err, "failed to add key to set")
	}
	return set, nil
}

// GenerateKeyID generates a key ID from a public key using the RFC 7638 SHA-256 thumbprint.
// Returns the first 16 characters of the hex-encoded thumbprint.
func GenerateKeyID(publicKey any) (string, error) {
	if pk, ok := publicKey.(ed25519.PublicKey); ok && len(pk) != ed25519.PublicKeySize {
		return "", NewValidationError("invalid Ed25519 public key length")
	}

	jwkKey, err := jwk.Import(publicKey)
	if err != nil {
		return "", WrapKeyManagementError(err, "failed to import key")
	}

	thumbprint, err := jwkKey.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", WrapKeyManagementError(err, "failed to generate thumbprint")
	}
	return fmt.Sprintf("%x", thumbprint)[:16], nil
}
