// Package authority fetches, verifies and caches the signed authority documents
// published by the parties of a payment.
//
// An authority document is accepted when:
//   - the envelope qualifier and the signed @qualifier are the expected ones
//   - the signature verifies against the requested trust root
//   - the URL declared inside the document is the URL it was fetched from
//   - it has not expired
//
// Accepted documents are cached until they expire, but never longer than the configured maximum TTL.
package authority

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/services"
)

// DefaultMaxTTL caps how long a document is cached when it declares a distant expiry.
const DefaultMaxTTL = time.Hour

// Verifier checks a signed message against a trust root.
type Verifier interface {
	VerifyMessage(ctx context.Context, compact string, root saturn.TrustRoot, msg saturn.Message) error
}

type cacheKey struct {
	url  string
	root saturn.TrustRoot
}

type cacheEntry struct {
	doc   any
	until time.Time
}

// Resolver resolves provider and payee authorities.
type Resolver struct {
	transport services.Transport
	verifier  Verifier
	maxTTL    time.Duration
	logger    *slog.Logger

	// now is replaced in tests
	now func() time.Time

	mu    sync.RWMutex
	cache map[cacheKey]cacheEntry
}

// NewResolver creates a resolver. maxTTL <= 0 selects DefaultMaxTTL.
func NewResolver(transport services.Transport, verifier Verifier, maxTTL time.Duration, logger *slog.Logger) *Resolver {
	if maxTTL <= 0 {
		maxTTL = DefaultMaxTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		transport: transport,
		verifier:  verifier,
		maxTTL:    maxTTL,
		logger:    logger.With(slog.String("component", "authority")),
		now:       time.Now,
		cache:     make(map[cacheKey]cacheEntry),
	}
}

// ProviderAuthority returns the verified provider authority published at url.
func (r *Resolver) ProviderAuthority(ctx context.Context, url string, root saturn.TrustRoot) (*saturn.ProviderAuthority, error) {
	if doc, ok := r.cached(url, root); ok {
		if pa, ok := doc.(*saturn.ProviderAuthority); ok {
			return pa, nil
		}
	}

	var pa saturn.ProviderAuthority
	if err := r.fetch(ctx, url, root, saturn.QualifierProviderAuthority, &pa); err != nil {
		return nil, err
	}
	if err := r.accept(url, pa.ProviderAuthorityURL, pa.Expires); err != nil {
		return nil, err
	}

	r.store(url, root, &pa, pa.Expires)
	return &pa, nil
}

// PayeeAuthority returns the verified payee authority published at url.
func (r *Resolver) PayeeAuthority(ctx context.Context, url string, root saturn.TrustRoot) (*saturn.PayeeAuthority, error) {
	if doc, ok := r.cached(url, root); ok {
		if pa, ok := doc.(*saturn.PayeeAuthority); ok {
			return pa, nil
		}
	}

	var pa saturn.PayeeAuthority
	if err := r.fetch(ctx, url, root, saturn.QualifierPayeeAuthority, &pa); err != nil {
		return nil, err
	}
	if err := r.accept(url, pa.PayeeAuthorityURL, pa.Expires); err != nil {
		return nil, err
	}

	r.store(url, root, &pa, pa.Expires)
	return &pa, nil
}

// Invalidate drops every cached document fetched from url.
func (r *Resolver) Invalidate(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.cache {
		if k.url == url {
			delete(r.cache, k)
		}
	}
}

// Len returns the number of cached documents, expired or not.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Resolver) fetch(ctx context.Context, url string, root saturn.TrustRoot, want saturn.Qualifier, msg saturn.Message) error {
	var env saturn.Envelope
	if err := r.transport.GetJSON(ctx, url, &env); err != nil {
		return err
	}
	if env.Qualifier != want {
		return saturn.NewMalformedMessageError(fmt.Sprintf("%s: unexpected qualifier %q, expected %q", url, env.Qualifier, want))
	}
	if env.Signature == "" {
		return saturn.NewMalformedMessageError(fmt.Sprintf("%s: missing signature", url))
	}
	if err := r.verifier.VerifyMessage(ctx, env.Signature, root, msg); err != nil {
		return err
	}

	r.logger.Debug("authority fetched",
		slog.String("url", url),
		slog.String("qualifier", string(want)),
		slog.String("trust_root", string(root)))
	return nil
}

func (r *Resolver) accept(fetchedFrom, declared string, expires time.Time) error {
	if declared != fetchedFrom {
		return saturn.NewMalformedMessageError(fmt.Sprintf("authority fetched from %s declares URL %s", fetchedFrom, declared))
	}
	if !r.now().Before(expires) {
		return saturn.NewMalformedMessageError(fmt.Sprintf("authority %s expired at %s", fetchedFrom, expires.Format(time.RFC3339)))
	}
	return nil
}

func (r *Resolver) cached(url string, root saturn.TrustRoot) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[cacheKey{url: url, root: root}]
	if !ok || !r.now().Before(e.until) {
		return nil, false
	}
	return e.doc, true
}

func (r *Resolver) store(url string, root saturn.TrustRoot, doc any, expires time.Time) {
	until := r.now().Add(r.maxTTL)
	if expires.Before(until) {
		until = expires
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[cacheKey{url: url, root: root}] = cacheEntry{doc: doc, until: until}
}
