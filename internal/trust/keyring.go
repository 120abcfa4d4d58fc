// keyring.go holds the public keys of one trust root and implements jws.KeyProvider for it.
//
// A keyring is populated from two sources:
//   - manual keys: single-key JWK files loaded from a directory at startup (not refreshed)
//   - JWKS endpoints: registered with a shared jwk.Cache and refreshed in the background
//
// A message is only accepted if its kid resolves to a key in the keyring of the trust root
// the orchestrator expects for that message. Keys of other roots are never consulted.
package trust

import (
	"context"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/information-sharing-networks/saturn-demo/internal/crypto"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
)

// Keyring is the set of keys trusted for one root.
type Keyring struct {
	root saturn.TrustRoot

	// manualKeys is keyed by kid
	manualKeys map[string]jwk.Key

	// jwksURLs are registered with jwkCache
	jwksURLs []string
	jwkCache *jwk.Cache

	mu     sync.RWMutex
	logger *slog.Logger
}

func newKeyring(root saturn.TrustRoot, logger *slog.Logger) *Keyring {
	return &Keyring{
		root:       root,
		manualKeys: make(map[string]jwk.Key),
		logger:     logger.With(slog.String("trust_root", string(root))),
	}
}

// Root returns the trust root name.
func (k *Keyring) Root() saturn.TrustRoot { return k.root }

// AddKey adds a public key to the keyring. The key must carry a kid.
func (k *Keyring) AddKey(key jwk.Key) error {
	keyID, ok := key.KeyID()
	if !ok || keyID == "" {
		return saturn.NewKeyError("key has no kid")
	}

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return saturn.WrapKeyError(err, "failed to export key")
	}
	switch raw.(type) {
	case *rsa.PublicKey, ed25519.PublicKey:
	default:
		return saturn.NewKeyError(fmt.Sprintf("kid %s is not an RSA or Ed25519 public key (%T)", keyID, raw))
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.manualKeys[keyID] = key
	return nil
}

// Len returns the number of manually configured keys.
func (k *Keyring) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.manualKeys)
}

// loadManualKeys loads every .jwk, .jwks or .jwks.json file in dir.
// Files that cannot be used are logged and skipped; a missing directory is an error.
func (k *Keyring) loadManualKeys(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return saturn.WrapKeyError(err, fmt.Sprintf("trust root %s: cannot read keys directory", k.root))
	}
	if !info.IsDir() {
		return saturn.NewKeyError(fmt.Sprintf("trust root %s: %s is not a directory", k.root, dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return saturn.WrapKeyError(err, "failed to read keys directory")
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filename := entry.Name()
		if !strings.HasSuffix(filename, ".jwk") &&
			!strings.HasSuffix(filename, ".jwks") &&
			!strings.HasSuffix(filename, ".jwks.json") {
			k.logger.Debug("skipping: non-JWK file", slog.String("file", filename))
			continue
		}

		key, err := crypto.ReadJWKFile(dir, filename)
		if err != nil {
			k.logger.Error("skipping: failed to read key file",
				slog.String("file", filename),
				slog.String("error", err.Error()))
			continue
		}
		if err := k.AddKey(key); err != nil {
			k.logger.Warn("skipping: unusable key",
				slog.String("file", filename),
				slog.String("error", err.Error()))
			continue
		}

		keyID, _ := key.KeyID()
		k.logger.Info("trust root key loaded",
			slog.String("file", filename),
			slog.String("kid", keyID))
	}
	return nil
}

// FetchKeys implements jws.KeyProvider.
//
// The kid of the signature is looked up in the manual keys first and then in the
// cached JWKS of each registered endpoint.
func (k *Keyring) FetchKeys(ctx context.Context, sink jws.KeySink, sig *jws.Signature, msg *jws.Message) error {
	kid, ok := sig.ProtectedHeaders().KeyID()
	if !ok || kid == "" {
		return crypto.NewValidationError("kid is required in JWS header")
	}
	alg, ok := sig.ProtectedHeaders().Algorithm()
	if !ok {
		return crypto.NewValidationError("alg is required in JWS header")
	}

	k.mu.RLock()
	key, exists := k.manualKeys[kid]
	k.mu.RUnlock()
	if exists {
		sink.Key(alg, key)
		return nil
	}

	if k.jwkCache != nil {
		for _, u := range k.jwksURLs {
			keySet, err := k.jwkCache.Lookup(ctx, u)
			if err != nil {
				k.logger.Debug("failed to lookup JWK set from cache",
					slog.String("jwk_url", u),
					slog.String("error", err.Error()))
				continue
			}
			if key, found := keySet.LookupKeyID(kid); found {
				sink.Key(alg, key)
				return nil
			}
		}
	}

	return crypto.NewKeyManagementError(fmt.Sprintf("kid %s is not trusted by root %s", kid, k.root))
}
