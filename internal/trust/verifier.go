package trust

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/information-sharing-networks/saturn-demo/internal/crypto"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
)

// RootConfig configures the keys of one trust root.
type RootConfig struct {
	// KeysDir holds single-key JWK files. Optional.
	KeysDir string

	// JWKSURLs are fetched and refreshed in the background. Optional.
	JWKSURLs []string
}

// Config configures the verifier.
type Config struct {
	Roots map[saturn.TrustRoot]RootConfig

	// SkipJWKCache disables fetching remote JWKS (tests and offline tooling)
	SkipJWKCache bool

	JWKCacheMinRefreshInterval time.Duration
	JWKCacheMaxRefreshInterval time.Duration
}

// Verifier checks compact JWS signatures against named trust roots.
type Verifier struct {
	keyrings map[saturn.TrustRoot]*Keyring
	logger   *slog.Logger
}

// NewVerifier loads the manual keys of every configured root and registers their JWKS endpoints.
func NewVerifier(ctx context.Context, cfg Config, logger *slog.Logger) (*Verifier, error) {
	if logger == nil {
		return nil, saturn.NewInternalError("logger cannot be nil")
	}

	v := &Verifier{
		keyrings: make(map[saturn.TrustRoot]*Keyring),
		logger:   logger,
	}

	var cache *jwk.Cache
	if !cfg.SkipJWKCache {
		c, err := jwk.NewCache(ctx, httprc.NewClient())
		if err != nil {
			return nil, saturn.WrapKeyError(err, "failed to create JWK cache")
		}
		cache = c
	} else {
		logger.Info("JWK cache initialization skipped")
	}

	for root, rc := range cfg.Roots {
		kr := newKeyring(root, logger)
		if rc.KeysDir != "" {
			if err := kr.loadManualKeys(rc.KeysDir); err != nil {
				return nil, err
			}
		}

		if cache != nil {
			kr.jwkCache = cache
			for _, u := range rc.JWKSURLs {
				err := cache.Register(ctx, u,
					jwk.WithMinInterval(cfg.JWKCacheMinRefreshInterval),
					jwk.WithMaxInterval(cfg.JWKCacheMaxRefreshInterval),
					jwk.WithWaitReady(false), // fetch in background
				)
				if err != nil {
					logger.Warn("failed to register JWK endpoint",
						slog.String("trust_root", string(root)),
						slog.String("jwk_url", u),
						slog.String("error", err.Error()))
					continue
				}
				kr.jwksURLs = append(kr.jwksURLs, u)
			}
		}

		if kr.Len() == 0 && len(kr.jwksURLs) == 0 {
			logger.Warn("trust root has no keys", slog.String("trust_root", string(root)))
		}
		logger.Info("trust root initialized",
			slog.String("trust_root", string(root)),
			slog.Int("manual_keys", kr.Len()),
			slog.Int("jwks_endpoints", len(kr.jwksURLs)))

		v.keyrings[root] = kr
	}
	return v, nil
}

// NewVerifierFromKeyrings builds a verifier from prepared keyrings (used by tests and tooling).
func NewVerifierFromKeyrings(logger *slog.Logger, keyrings ...*Keyring) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Verifier{keyrings: make(map[saturn.TrustRoot]*Keyring), logger: logger}
	for _, kr := range keyrings {
		v.keyrings[kr.root] = kr
	}
	return v
}

// NewKeyring creates an empty keyring for root. Keys are added with AddKey.
func NewKeyring(root saturn.TrustRoot, logger *slog.Logger) *Keyring {
	if logger == nil {
		logger = slog.Default()
	}
	return newKeyring(root, logger)
}

// Keyring returns the keyring of a root.
func (v *Verifier) Keyring(root saturn.TrustRoot) (*Keyring, bool) {
	kr, ok := v.keyrings[root]
	return kr, ok
}

// Verify checks a compact JWS against the keys of root and returns its payload.
// Any failure is reported as a signature error.
func (v *Verifier) Verify(ctx context.Context, compact string, root saturn.TrustRoot) ([]byte, error) {
	kr, ok := v.keyrings[root]
	if !ok {
		return nil, saturn.NewKeyError(fmt.Sprintf("trust root %s is not configured", root))
	}

	if _, err := crypto.ParseHeader(compact); err != nil {
		return nil, saturn.WrapSignatureError(err, "invalid JWS")
	}

	payload, err := jws.Verify([]byte(compact), jws.WithKeyProvider(kr), jws.WithContext(ctx))
	if err != nil {
		return nil, saturn.WrapSignatureError(err, fmt.Sprintf("signature not trusted by %s root", root))
	}
	return payload, nil
}

// VerifyMessage verifies a compact JWS against root and decodes the payload into msg.
func (v *Verifier) VerifyMessage(ctx context.Context, compact string, root saturn.TrustRoot, msg saturn.Message) error {
	payload, err := v.Verify(ctx, compact, root)
	if err != nil {
		return err
	}
	return saturn.DecodeMessage(payload, msg)
}
