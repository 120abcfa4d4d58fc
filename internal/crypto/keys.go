// this file contains functions to generate, save and load the merchant's signing keys
//
// Ed25519 is the default key type; RSA (RS256) is supported for parties that require it.
// Keys are stored as single-key JWK sets so that the public file can be published as-is.

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// GenerateEd25519KeyPair generates a new ED25519 private key
func GenerateEd25519KeyPair() (ed25519.PrivateKey, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, WrapInternalError(err, "failed to generate key pair")
	}
	return privateKey, nil
}

// GenerateRSAKeyPair generates a new RSA key pair with the specified bit size
// minimum key size is 2048 bits - key size must be a multiple of 256
func GenerateRSAKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits < 2048 {
		return nil, NewValidationError("key size must be at least 2048 bits")
	}
	if bits%256 != 0 {
		return nil, NewValidationError("key size should be a multiple of 256")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, WrapInternalError(err, "failed to generate key pair")
	}
	return privateKey, nil
}

// SaveKeyToJWKFile writes a JWK (private or public) to baseDir/filename as a single-key JWK set.
// Private keys are written with 0600 permissions.
func SaveKeyToJWKFile(key jwk.Key, baseDir, filename string) error {
	jwkSet := jwk.NewSet()
	if err := jwkSet.AddKey(key); err != nil {
		return WrapKeyManagementError(err, "failed to add key to set")
	}

	jsonBytes, err := json.MarshalIndent(jwkSet, "", "  ")
	if err != nil {
		return WrapInternalError(err, "failed to marshal JWK set")
	}

	perm := os.FileMode(0644)
	if isPrivateKey(key) {
		perm = 0600
	}

	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return WrapKeyManagementError(err, fmt.Sprintf("failed to open root directory %s", baseDir))
	}
	defer root.Close()

	if err := root.WriteFile(filename, jsonBytes, perm); err != nil {
		return WrapKeyManagementError(err, "failed to write file")
	}
	return nil
}

// ReadJWKFile reads the first key of the JWK set stored at baseDir/filename.
func ReadJWKFile(baseDir, filename string) (jwk.Key, error) {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("failed to open root directory %s", baseDir))
	}
	defer root.Close()

	jsonBytes, err := root.ReadFile(filename)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to read file")
	}

	jwkSet, err := jwk.Parse(jsonBytes)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to parse JWK set")
	}
	if jwkSet.Len() == 0 {
		return nil, NewKeyManagementError("JWK set is empty")
	}

	key, ok := jwkSet.Key(0)
	if !ok {
		return nil, NewKeyManagementError("failed to get key from JWK set")
	}
	if _, ok := key.KeyID(); !ok {
		return nil, NewKeyManagementError(fmt.Sprintf("key in %s has no kid", filename))
	}
	return key, nil
}

// ReadPrivateKeyFromJWKFile loads a signing key (Ed25519 or RSA) and its key id.
func ReadPrivateKeyFromJWKFile(baseDir, filename string) (any, string, error) {
	key, err := ReadJWKFile(baseDir, filename)
	if err != nil {
		return nil, "", err
	}

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, "", WrapKeyManagementError(err, "failed to export key")
	}

	switch raw.(type) {
	case ed25519.PrivateKey, *rsa.PrivateKey:
	default:
		return nil, "", NewKeyManagementError(fmt.Sprintf("key is not a supported private key (%T)", raw))
	}

	keyID, _ := key.KeyID()
	return raw, keyID, nil
}

func isPrivateKey(key jwk.Key) bool {
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return false
	}
	switch raw.(type) {
	case ed25519.PrivateKey, *rsa.PrivateKey:
		return true
	}
	return false
}
