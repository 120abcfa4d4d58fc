// Package sessionstore keeps the attributes of a browser session (the checkout in progress,
// the pending reservation and the reference of the last result).
//
// Each browser session is identified by the id held in its session cookie. Attributes are
// JSON encoded and expire together after the configured idle TTL.
//
// Two implementations are provided: Redis (shared between server instances) and Memory
// (single instance, used when REDIS_URL is not set and in tests).
package sessionstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
)

// DefaultTTL is how long an idle browser session is kept.
const DefaultTTL = 30 * time.Minute

// Attribute keys used by the merchant.
const (
	KeyCheckout         = "checkout"
	KeyPendingOperation = "pending"
	KeyResultReference  = "result"
)

// Store is a per-browser-session attribute store.
type Store interface {
	// Set stores value (JSON encoded) under key and refreshes the session TTL.
	Set(ctx context.Context, sessionID, key string, value any) error

	// Get decodes the value stored under key into out. It reports false if the attribute does not exist.
	Get(ctx context.Context, sessionID, key string, out any) (bool, error)

	// Take is Get followed by Delete as one atomic step. Of several concurrent callers only
	// one finds the attribute, which makes Take a claim on it.
	Take(ctx context.Context, sessionID, key string, out any) (bool, error)

	// Delete removes an attribute. Deleting a missing attribute is not an error.
	Delete(ctx context.Context, sessionID, key string) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

func jsonEncode(value any) ([]byte, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, saturn.WrapInternalError(err, "failed to encode session attribute")
	}
	return b, nil
}

func jsonDecode(b []byte, out any) error {
	if err := json.Unmarshal(b, out); err != nil {
		return saturn.WrapInternalError(err, "failed to decode session attribute")
	}
	return nil
}
